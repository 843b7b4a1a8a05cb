package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/scholar-assistant/internal/document"
	"github.com/fyerfyer/scholar-assistant/internal/models"
	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ExportFormat 导出格式
type ExportFormat string

const (
	ExportJSON     ExportFormat = "json"
	ExportYAML     ExportFormat = "yaml"
	ExportMarkdown ExportFormat = "markdown"
	ExportHTML     ExportFormat = "html"
)

// ErrUnsupportedFormat 不支持的导出格式
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ErrStorageDisabled 未配置归档存储
var ErrStorageDisabled = errors.New("archive storage not configured")

// ExportOptions 导出选项，仅对markdown和html生效
type ExportOptions struct {
	Language paper.Language // 阅读语言
	Notes    bool           // 是否附带总结笔记
}

// Exported 导出结果
type Exported struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export 按格式导出论文
func (s *PaperService) Export(ctx context.Context, id string, format ExportFormat, opts ExportOptions) (*Exported, error) {
	snap, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return exportSnapshot(id, snap, format, opts)
}

func exportSnapshot(id string, snap paper.Snapshot, format ExportFormat, opts ExportOptions) (*Exported, error) {
	if opts.Language == "" {
		opts.Language = paper.LanguageEnglish
	}

	switch format {
	case ExportJSON, "":
		data, err := paper.Encode(snap, paper.FormatJSON)
		if err != nil {
			return nil, err
		}
		return &Exported{Filename: id + ".json", ContentType: "application/json", Data: data}, nil
	case ExportYAML:
		data, err := paper.Encode(snap, paper.FormatYAML)
		if err != nil {
			return nil, err
		}
		return &Exported{Filename: id + ".yaml", ContentType: "application/x-yaml", Data: data}, nil
	case ExportMarkdown:
		view := document.NewView(snap, opts.Language, opts.Notes)
		return &Exported{
			Filename:    fmt.Sprintf("%s.%s.md", id, opts.Language),
			ContentType: "text/markdown; charset=utf-8",
			Data:        []byte(document.RenderMarkdown(view)),
		}, nil
	case ExportHTML:
		view := document.NewView(snap, opts.Language, opts.Notes)
		return &Exported{
			Filename:    fmt.Sprintf("%s.%s.html", id, opts.Language),
			ContentType: "text/html; charset=utf-8",
			Data:        document.RenderHTML(view),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// Archive 将论文快照保存到归档存储
func (s *PaperService) Archive(ctx context.Context, id string, format paper.Format) (*models.PaperArchive, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	if format == "" {
		format = paper.FormatJSON
	}

	snap, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := paper.Encode(snap, format)
	if err != nil {
		return nil, err
	}

	info, err := s.storage.Save(ctx, bytes.NewReader(data), fmt.Sprintf("%s.%s", id, format))
	if err != nil {
		return nil, fmt.Errorf("failed to save archive: %w", err)
	}

	archive := &models.PaperArchive{
		ID:      info.ID,
		PaperID: id,
		Format:  string(format),
		Path:    info.Path,
		Size:    info.Size,
	}
	if err := s.repo.SaveArchive(ctx, archive); err != nil {
		// 记录保存失败时清理已写入的文件
		if delErr := s.storage.Delete(ctx, info.ID); delErr != nil {
			s.logger.WithError(delErr).WithField("archive_id", info.ID).Warn("Failed to clean up archive file")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"paper_id":   id,
		"archive_id": archive.ID,
		"format":     format,
		"size":       archive.Size,
	}).Info("Paper archived")
	return archive, nil
}

// ListArchives 列出论文的归档
func (s *PaperService) ListArchives(ctx context.Context, id string) ([]*models.PaperArchive, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListArchives(ctx, id)
}

// RestoreArchive 用归档内容覆盖论文当前快照
func (s *PaperService) RestoreArchive(ctx context.Context, archiveID string) (*models.Paper, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}

	archive, err := s.repo.GetArchive(ctx, archiveID)
	if err != nil {
		return nil, err
	}

	reader, err := s.storage.Get(ctx, archive.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	restored, err := paper.Decode(data, paper.Format(archive.Format))
	if err != nil {
		return nil, err
	}

	rec, err := s.mutate(ctx, archive.PaperID, func(snap *paper.Snapshot) error {
		*snap = restored
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"paper_id":   archive.PaperID,
		"archive_id": archive.ID,
	}).Info("Paper restored from archive")
	return rec, nil
}

// DeleteArchive 删除归档文件及记录
func (s *PaperService) DeleteArchive(ctx context.Context, archiveID string) error {
	if s.storage == nil {
		return ErrStorageDisabled
	}

	archive, err := s.repo.GetArchive(ctx, archiveID)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, archive.ID); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		s.logger.WithError(err).WithField("archive_id", archive.ID).Warn("Failed to delete archive file")
	}
	return s.repo.DeleteArchive(ctx, archive.ID)
}

// Import 从上传文件创建论文
// json/yaml按会话快照恢复(包括处理结果)，md/txt按文档结构解析
func (s *PaperService) Import(ctx context.Context, filename string, r io.Reader) (*models.Paper, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	if format, ok := paper.FormatFromExt(ext); ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		snap, err := paper.Decode(data, format)
		if err != nil {
			return nil, err
		}
		return s.createSnapshot(ctx, snap)
	}

	importer, err := document.ImporterFor(filename)
	if err != nil {
		return nil, err
	}
	p, err := importer.Import(r)
	if err != nil {
		return nil, err
	}
	return s.CreatePaper(ctx, p)
}

// createSnapshot 以导入的快照创建论文，处理中的状态不保留
func (s *PaperService) createSnapshot(ctx context.Context, snap paper.Snapshot) (*models.Paper, error) {
	status := models.PaperStatus(snap.Status)
	if snap.Status == paper.StatusRunning || snap.Status == "" {
		snap.Status = paper.StatusIdle
		status = models.PaperStatusIdle
	}

	rec := &models.Paper{
		ID:          uuid.New().String(),
		Status:      status,
		ProcessedAt: snap.FinishedAt,
	}
	if err := fillRecord(rec, snap); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create paper: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"paper_id": rec.ID,
		"status":   rec.Status,
	}).Info("Paper imported from snapshot")
	return rec, nil
}
