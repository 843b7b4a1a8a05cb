package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fyerfyer/scholar-assistant/internal/database"
	"github.com/fyerfyer/scholar-assistant/internal/models"
	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/repository"
	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/fyerfyer/scholar-assistant/internal/transform"
	"github.com/fyerfyer/scholar-assistant/pkg/storage"
	"github.com/fyerfyer/scholar-assistant/pkg/taskqueue"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeTransformer 按模式返回确定性结果
type fakeTransformer struct {
	calls   atomic.Int32
	fail    bool          // 为true时所有调用都回退
	delay   time.Duration // 每次调用前等待
	pingErr error
}

func (f *fakeTransformer) Transform(ctx context.Context, mode transform.Mode, input string) transform.Result {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}

	r := transform.Result{Mode: mode, Attempts: 1}
	if f.fail || ctx.Err() != nil {
		r.Fallback = true
		r.Text = input
		if mode == transform.ModeFormatTranslate {
			r.Target = input
		}
		if mode == transform.ModeSummarize {
			r.Summary = &transform.SummaryReply{Failed: true}
		}
		return r
	}

	switch mode {
	case transform.ModeFormatTranslate:
		r.Text, r.Target = "EN["+input+"]", "ZH["+input+"]"
	case transform.ModeTranslate:
		r.Text = "译:" + input
	case transform.ModeSummarize:
		summary := "overall"
		r.Summary = &transform.SummaryReply{Summary: &summary}
	default:
		r.Text = "P[" + input + "]"
	}
	return r
}

func (f *fakeTransformer) Ping(ctx context.Context) error {
	return f.pingErr
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestDB(t *testing.T) repository.PaperRepository {
	dbName := fmt.Sprintf("file:svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Paper{}, &models.PaperArchive{}))

	originalDB := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = originalDB
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewPaperRepositoryWithDB(db)
}

func newTestService(t *testing.T, tr Transformer, opts ...PaperOption) (*PaperService, repository.PaperRepository) {
	repo := setupTestDB(t)
	opts = append([]PaperOption{WithLogger(quietLogger())}, opts...)
	return NewPaperService(repo, tr, opts...), repo
}

func samplePaper() paper.Paper {
	setup := section.New("Setup", "We use a grid.")
	setup.Children = append(setup.Children, section.New("Data", "Two datasets."))
	return paper.Paper{
		Title:        "On Testing",
		Authors:      "A. Author",
		Abstract:     "We test things.",
		Introduction: "Testing matters.",
		Sections:     []*section.Section{setup, section.New("Results", "It works.")},
	}
}

func TestCreateAndGetPaper(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{})
	ctx := context.Background()

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, models.PaperStatusIdle, rec.Status)
	assert.Equal(t, "On Testing", rec.Title)
	assert.Equal(t, 3, rec.SectionCount)

	snap, err := srv.GetSnapshot(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "We test things.", snap.Abstract)
	require.Len(t, snap.Sections, 2)
	assert.Equal(t, "Data", snap.Sections[0].Children[0].Title)

	// 空论文获得一个默认章节
	rec, err = srv.CreatePaper(ctx, paper.Paper{})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.SectionCount)

	_, err = srv.GetPaper(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrPaperNotFound))
}

func TestSectionEdits(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{})
	ctx := context.Background()

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)
	snap, err := srv.GetSnapshot(ctx, rec.ID)
	require.NoError(t, err)
	setupID := snap.Sections[0].ID
	resultsID := snap.Sections[1].ID

	child, err := srv.AddChildSection(ctx, rec.ID, resultsID)
	require.NoError(t, err)
	require.NotNil(t, child)

	sibling, err := srv.AddSiblingSection(ctx, rec.ID, setupID)
	require.NoError(t, err)

	snap, err = srv.GetSnapshot(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, snap.Sections, 3)
	assert.Equal(t, sibling.ID, snap.Sections[1].ID)
	require.Len(t, snap.Sections[2].Children, 1)
	assert.Equal(t, child.ID, snap.Sections[2].Children[0].ID)

	updated, err := srv.DeleteSection(ctx, rec.ID, setupID)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.SectionCount)

	_, err = srv.DeleteSection(ctx, rec.ID, "missing")
	assert.True(t, errors.Is(err, section.ErrSectionNotFound))
}

func TestCreatePaperRejectsNilSections(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{})
	ctx := context.Background()

	_, err := srv.CreatePaper(ctx, paper.Paper{Title: "x", Sections: []*section.Section{nil}})
	assert.ErrorIs(t, err, paper.ErrInvalidPaper)

	method := section.New("Method", "")
	method.Children = []*section.Section{nil}
	_, err = srv.CreatePaper(ctx, paper.Paper{Title: "x", Sections: []*section.Section{method}})
	assert.ErrorIs(t, err, paper.ErrInvalidPaper)

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)
	_, err = srv.UpdatePaper(ctx, rec.ID, paper.Paper{Title: "y", Sections: []*section.Section{nil}})
	assert.ErrorIs(t, err, paper.ErrInvalidPaper)
}

func TestUpdatePaperKeepsResult(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{})
	ctx := context.Background()

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)
	_, err = srv.ProcessSync(ctx, rec.ID, ProcessOptions{}, false)
	require.NoError(t, err)

	p := samplePaper()
	p.Title = "Renamed"
	updated, err := srv.UpdatePaper(ctx, rec.ID, p)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	snap, err := srv.GetSnapshot(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, paper.ModeAnalyze, snap.Mode)
	assert.Equal(t, "overall", snap.Summary)
}

func TestProcessSyncAnalyze(t *testing.T) {
	tr := &fakeTransformer{}
	srv, _ := newTestService(t, tr)
	ctx := context.Background()

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)

	taskID, result, err := srv.Process(ctx, rec.ID, ProcessOptions{Translate: true})
	require.NoError(t, err)
	assert.Empty(t, taskID)
	require.NotNil(t, result)
	assert.Equal(t, paper.StatusDone, result.Status)

	stored, err := srv.GetPaper(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusDone, stored.Status)
	assert.Equal(t, "analyze", stored.Mode)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Zero(t, stored.FallbackCount)

	snap, err := srv.GetSnapshot(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, snap.Translated)
	assert.Equal(t, "EN[We test things.]", snap.AbstractProcessed)
	assert.Equal(t, "ZH[We test things.]", snap.ZhAbstractProcessed)
	assert.Equal(t, "译:On Testing", snap.ZhTitle)
	require.Len(t, snap.ZhSectionsProcessed, 2)
	assert.True(t, section.SameShape(snap.Sections, snap.ZhSectionsProcessed))
	// 原始内容不变
	assert.Equal(t, "We test things.", snap.Abstract)
}

func TestProcessSyncPolishWithFallback(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{fail: true})
	ctx := context.Background()

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)

	result, err := srv.ProcessSync(ctx, rec.ID, ProcessOptions{Polish: true, PolishLanguage: paper.LanguageChinese}, false)
	require.NoError(t, err)
	assert.Equal(t, paper.StatusDoneWithFallback, result.Status)
	assert.Positive(t, result.Fallbacks)

	stored, err := srv.GetPaper(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusDoneWithFallback, stored.Status)
	assert.Equal(t, "polish", stored.Mode)
	assert.Equal(t, result.Fallbacks, stored.FallbackCount)
}

func TestProcessSyncTimeout(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{delay: time.Second}, WithTimeout(20*time.Millisecond))
	ctx := context.Background()

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)

	result, err := srv.ProcessSync(ctx, rec.ID, ProcessOptions{}, false)
	require.NoError(t, err)
	assert.Equal(t, paper.StatusDoneWithFallback, result.Status)

	stored, err := srv.GetPaper(ctx, rec.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Error, "processing interrupted")
}

func TestProcessRejectsBusyPaper(t *testing.T) {
	srv, repo := newTestService(t, &fakeTransformer{})
	ctx := context.Background()

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, rec.ID, models.PaperStatusRunning, ""))

	_, err = srv.ProcessSync(ctx, rec.ID, ProcessOptions{}, false)
	assert.True(t, errors.Is(err, models.ErrPaperBusy))

	_, err = srv.UpdatePaper(ctx, rec.ID, samplePaper())
	assert.True(t, errors.Is(err, models.ErrPaperBusy))

	err = srv.DeletePaper(ctx, rec.ID)
	assert.True(t, errors.Is(err, models.ErrPaperBusy))
}

func TestProcessAsync(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := taskqueue.DefaultConfig()
	cfg.RedisAddr = mr.Addr()
	queue, err := taskqueue.NewRedisQueue(cfg)
	require.NoError(t, err)
	defer queue.Close()

	srv, _ := newTestService(t, &fakeTransformer{}, WithTaskQueue(queue))
	ctx := context.Background()
	assert.True(t, srv.AsyncEnabled())

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)

	taskID, result, err := srv.Process(ctx, rec.ID, ProcessOptions{Async: true, Polish: true})
	require.NoError(t, err)
	assert.NotEmpty(t, taskID)
	assert.Nil(t, result)

	stored, err := srv.GetPaper(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusQueued, stored.Status)
	assert.Equal(t, taskID, stored.CurrentTaskID)

	info, err := srv.GetTaskInfo(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, taskID, info.ID)

	// 已入队的论文不能再次同步处理
	_, err = srv.ProcessSync(ctx, rec.ID, ProcessOptions{}, false)
	assert.True(t, errors.Is(err, models.ErrPaperBusy))

	task, err := queue.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.TaskPaperPolish, task.Type)

	handler := NewPaperTaskHandler(srv, quietLogger())
	out, err := handler.ProcessTask(ctx, task)
	require.NoError(t, err)
	res, ok := out.(*taskqueue.ProcessResult)
	require.True(t, ok)
	assert.Equal(t, rec.ID, res.PaperID)
	assert.Equal(t, string(paper.StatusDone), res.Status)

	stored, err = srv.GetPaper(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusDone, stored.Status)
	assert.Equal(t, "polish", stored.Mode)
}

func TestPaperTaskHandlerRejectsBadPayload(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{})
	handler := NewPaperTaskHandler(srv, quietLogger())

	assert.ElementsMatch(t, []taskqueue.TaskType{taskqueue.TaskPaperAnalyze, taskqueue.TaskPaperPolish}, handler.GetTaskTypes())

	_, err := handler.ProcessTask(context.Background(), &taskqueue.Task{ID: "t1", Type: taskqueue.TaskPaperAnalyze})
	assert.True(t, errors.Is(err, taskqueue.ErrInvalidPayload))
}

func TestDeletePaper(t *testing.T) {
	st, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)
	srv, repo := newTestService(t, &fakeTransformer{}, WithStorage(st))
	ctx := context.Background()

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)
	archive, err := srv.Archive(ctx, rec.ID, paper.FormatJSON)
	require.NoError(t, err)

	require.NoError(t, srv.DeletePaper(ctx, rec.ID))

	_, err = srv.GetPaper(ctx, rec.ID)
	assert.True(t, errors.Is(err, models.ErrPaperNotFound))
	_, err = repo.GetArchive(ctx, archive.ID)
	assert.True(t, errors.Is(err, models.ErrArchiveNotFound))

	exists, err := st.Exists(ctx, archive.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPing(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{})
	assert.NoError(t, srv.Ping(context.Background()))

	srv, _ = newTestService(t, &fakeTransformer{pingErr: errors.New("unreachable")})
	assert.EqualError(t, srv.Ping(context.Background()), "unreachable")
}

func TestExportFormats(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{})
	ctx := context.Background()

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)
	_, err = srv.ProcessSync(ctx, rec.ID, ProcessOptions{Translate: true}, false)
	require.NoError(t, err)

	out, err := srv.Export(ctx, rec.ID, ExportJSON, ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "application/json", out.ContentType)
	assert.Contains(t, string(out.Data), `"zh_title"`)

	out, err = srv.Export(ctx, rec.ID, ExportYAML, ExportOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out.Data), "zh_title:")

	out, err = srv.Export(ctx, rec.ID, ExportMarkdown, ExportOptions{Language: paper.LanguageChinese, Notes: true})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.Filename, ".zh.md"))
	assert.Contains(t, string(out.Data), "译:On Testing")
	assert.Contains(t, string(out.Data), "overall")

	out, err = srv.Export(ctx, rec.ID, ExportHTML, ExportOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out.Data), "<html")

	_, err = srv.Export(ctx, rec.ID, "pdf", ExportOptions{})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestArchiveAndRestore(t *testing.T) {
	st, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)
	srv, _ := newTestService(t, &fakeTransformer{}, WithStorage(st))
	ctx := context.Background()

	rec, err := srv.CreatePaper(ctx, samplePaper())
	require.NoError(t, err)

	archive, err := srv.Archive(ctx, rec.ID, paper.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "yaml", archive.Format)
	assert.Positive(t, archive.Size)

	p := samplePaper()
	p.Title = "Changed"
	_, err = srv.UpdatePaper(ctx, rec.ID, p)
	require.NoError(t, err)

	restored, err := srv.RestoreArchive(ctx, archive.ID)
	require.NoError(t, err)
	assert.Equal(t, "On Testing", restored.Title)

	archives, err := srv.ListArchives(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, archives, 1)

	require.NoError(t, srv.DeleteArchive(ctx, archive.ID))
	archives, err = srv.ListArchives(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, archives)
}

func TestArchiveWithoutStorage(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{})
	_, err := srv.Archive(context.Background(), "any", paper.FormatJSON)
	assert.True(t, errors.Is(err, ErrStorageDisabled))
}

func TestImport(t *testing.T) {
	srv, _ := newTestService(t, &fakeTransformer{})
	ctx := context.Background()

	md := "# Graph Paper\n\n## Abstract\n\nShort abstract.\n\n## 1 Introduction\n\nWhy.\n\n## 2 Method\n\nHow.\n"
	rec, err := srv.Import(ctx, "paper.md", strings.NewReader(md))
	require.NoError(t, err)
	assert.Equal(t, "Graph Paper", rec.Title)

	snap, err := srv.GetSnapshot(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Short abstract.", snap.Abstract)
	assert.Equal(t, "Why.", snap.Introduction)
	require.Len(t, snap.Sections, 1)
	assert.Equal(t, "Method", snap.Sections[0].Title)

	// 快照导入保留处理结果，处理中状态重置为idle
	exported, err := srv.Export(ctx, rec.ID, ExportJSON, ExportOptions{})
	require.NoError(t, err)
	rec2, err := srv.Import(ctx, "copy.json", bytes.NewReader(exported.Data))
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, rec2.ID)
	assert.Equal(t, models.PaperStatusIdle, rec2.Status)

	running := `{"title": "x", "status": "running", "sections": []}`
	rec3, err := srv.Import(ctx, "x.json", strings.NewReader(running))
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusIdle, rec3.Status)

	_, err = srv.Import(ctx, "paper.pdf", strings.NewReader("x"))
	assert.Error(t, err)
}
