package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/scholar-assistant/internal/models"
	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/pipeline"
	"github.com/fyerfyer/scholar-assistant/internal/repository"
	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/fyerfyer/scholar-assistant/internal/transform"
	"github.com/fyerfyer/scholar-assistant/pkg/storage"
	"github.com/fyerfyer/scholar-assistant/pkg/taskqueue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Transformer 单次大模型转换及连通性检查
type Transformer interface {
	Transform(ctx context.Context, mode transform.Mode, input string) transform.Result
	Ping(ctx context.Context) error
}

// ProcessOptions 处理请求选项
type ProcessOptions struct {
	Translate      bool           // 分析模式下是否翻译
	Polish         bool           // 是否为润色模式
	PolishLanguage paper.Language // 润色语言
	Async          bool           // 是否提交到任务队列
}

// PaperService 论文服务
// 负责论文的录入、编辑、处理和导入导出
type PaperService struct {
	repo         repository.PaperRepository // 论文仓储
	status       *PaperStatusManager        // 状态管理器
	tr           Transformer                // 大模型转换器
	storage      storage.Storage            // 归档存储
	taskQueue    taskqueue.Queue            // 任务队列
	asyncEnabled bool                       // 是否启用异步处理
	timeout      time.Duration              // 单次处理超时时间
	bodyOffset   int                        // 总结时正文编号偏移
	logger       *logrus.Logger             // 日志记录器
}

// PaperOption 论文服务配置选项
type PaperOption func(*PaperService)

// NewPaperService 创建论文服务
func NewPaperService(repo repository.PaperRepository, tr Transformer, opts ...PaperOption) *PaperService {
	srv := &PaperService{
		repo:       repo,
		tr:         tr,
		timeout:    30 * time.Minute,
		bodyOffset: section.DefaultBodyOffset,
		logger:     logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	if srv.status == nil {
		srv.status = NewPaperStatusManager(repo, srv.logger)
	}
	return srv
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) PaperOption {
	return func(s *PaperService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStorage 设置归档存储
func WithStorage(st storage.Storage) PaperOption {
	return func(s *PaperService) {
		s.storage = st
	}
}

// WithTaskQueue 设置任务队列，设置后启用异步处理
func WithTaskQueue(queue taskqueue.Queue) PaperOption {
	return func(s *PaperService) {
		s.taskQueue = queue
		s.asyncEnabled = queue != nil
	}
}

// WithTimeout 设置单次处理超时时间
func WithTimeout(timeout time.Duration) PaperOption {
	return func(s *PaperService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithBodyOffset 设置总结时正文顶层章节的起始编号
func WithBodyOffset(offset int) PaperOption {
	return func(s *PaperService) {
		if offset > 0 {
			s.bodyOffset = offset
		}
	}
}

// WithStatusManager 设置状态管理器
func WithStatusManager(manager *PaperStatusManager) PaperOption {
	return func(s *PaperService) {
		s.status = manager
	}
}

// StatusManager 返回状态管理器
func (s *PaperService) StatusManager() *PaperStatusManager {
	return s.status
}

// AsyncEnabled 是否启用了异步处理
func (s *PaperService) AsyncEnabled() bool {
	return s.asyncEnabled
}

// CreatePaper 录入新论文
func (s *PaperService) CreatePaper(ctx context.Context, p paper.Paper) (*models.Paper, error) {
	if len(p.Sections) == 0 {
		p.Sections = section.NewTree()
	}
	section.AssignIDs(p.Sections)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rec := &models.Paper{
		ID:     uuid.New().String(),
		Status: models.PaperStatusIdle,
	}
	if err := fillRecord(rec, paper.NewSnapshot(p, nil)); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create paper: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"paper_id": rec.ID,
		"sections": rec.SectionCount,
	}).Info("Paper created")
	return rec, nil
}

// GetPaper 获取论文记录
func (s *PaperService) GetPaper(ctx context.Context, id string) (*models.Paper, error) {
	return s.repo.GetByID(ctx, id)
}

// GetSnapshot 获取论文快照
func (s *PaperService) GetSnapshot(ctx context.Context, id string) (paper.Snapshot, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return paper.Snapshot{}, err
	}
	return decodeRecord(rec)
}

// ListPapers 获取论文列表
func (s *PaperService) ListPapers(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Paper, int64, error) {
	return s.repo.List(ctx, offset, limit, filters)
}

// UpdatePaper 替换论文内容，保留上一次的处理结果
func (s *PaperService) UpdatePaper(ctx context.Context, id string, p paper.Paper) (*models.Paper, error) {
	if len(p.Sections) == 0 {
		p.Sections = section.NewTree()
	}
	section.AssignIDs(p.Sections)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(snap *paper.Snapshot) error {
		snap.Paper = p
		return nil
	})
}

// DeletePaper 删除论文及其归档
func (s *PaperService) DeletePaper(ctx context.Context, id string) error {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.status.EnsureEditable(rec); err != nil {
		return err
	}

	if s.storage != nil {
		archives, err := s.repo.ListArchives(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list archives: %w", err)
		}
		for _, a := range archives {
			if err := s.storage.Delete(ctx, a.ID); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
				s.logger.WithError(err).WithField("archive_id", a.ID).Warn("Failed to delete archive file")
			}
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithField("paper_id", id).Info("Paper deleted")
	return nil
}

// AddChildSection 在指定章节下追加子章节
func (s *PaperService) AddChildSection(ctx context.Context, id, parentID string) (*section.Section, error) {
	var created *section.Section
	_, err := s.mutate(ctx, id, func(snap *paper.Snapshot) error {
		child, err := section.AddChild(snap.Sections, parentID)
		created = child
		return err
	})
	return created, err
}

// AddSiblingSection 在指定章节之后插入同级章节
func (s *PaperService) AddSiblingSection(ctx context.Context, id, sectionID string) (*section.Section, error) {
	var created *section.Section
	_, err := s.mutate(ctx, id, func(snap *paper.Snapshot) error {
		tree, sibling, err := section.AddSibling(snap.Sections, sectionID)
		if err != nil {
			return err
		}
		snap.Sections = tree
		created = sibling
		return nil
	})
	return created, err
}

// DeleteSection 删除章节及其子章节
func (s *PaperService) DeleteSection(ctx context.Context, id, sectionID string) (*models.Paper, error) {
	return s.mutate(ctx, id, func(snap *paper.Snapshot) error {
		tree, err := section.Delete(snap.Sections, sectionID)
		if err != nil {
			return err
		}
		snap.Sections = tree
		return nil
	})
}

// mutate 读取快照、修改并保存，处理中的论文不允许修改
func (s *PaperService) mutate(ctx context.Context, id string, fn func(snap *paper.Snapshot) error) (*models.Paper, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.status.EnsureEditable(rec); err != nil {
		return nil, err
	}

	snap, err := decodeRecord(rec)
	if err != nil {
		return nil, err
	}
	if err := fn(&snap); err != nil {
		return nil, err
	}

	if err := fillRecord(rec, snap); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update paper: %w", err)
	}
	return rec, nil
}

// Process 处理论文
// 启用任务队列且请求异步时返回任务ID，否则同步处理并返回空任务ID
func (s *PaperService) Process(ctx context.Context, id string, opts ProcessOptions) (string, *paper.Result, error) {
	if opts.Async && s.asyncEnabled {
		taskID, err := s.ProcessAsync(ctx, id, opts)
		return taskID, nil, err
	}

	result, err := s.ProcessSync(ctx, id, opts, false)
	return "", result, err
}

// ProcessSync 同步处理论文并保存结果
// fromQueue表示由任务队列触发，此时论文应处于queued状态
func (s *PaperService) ProcessSync(ctx context.Context, id string, opts ProcessOptions, fromQueue bool) (*paper.Result, error) {
	if err := s.status.MarkAsRunning(ctx, id, fromQueue); err != nil {
		return nil, err
	}

	result, err := s.run(ctx, id, opts)
	if err != nil {
		if markErr := s.status.MarkAsFailed(context.WithoutCancel(ctx), id, err.Error()); markErr != nil {
			s.logger.WithError(markErr).WithField("paper_id", id).Error("Failed to mark paper as failed")
		}
		return nil, err
	}
	return result, nil
}

// run 执行处理流程并保存快照，调用前论文已处于running状态
func (s *PaperService) run(ctx context.Context, id string, opts ProcessOptions) (*paper.Result, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := decodeRecord(rec)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithField("paper_id", id)
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	orchestrator := pipeline.NewOrchestrator(s.tr,
		pipeline.WithLogger(s.logger),
		pipeline.WithBodyOffset(s.bodyOffset),
		pipeline.WithStatusHook(func(st paper.Status) {
			log.WithField("status", st).Debug("Pipeline status changed")
		}),
	)
	result := orchestrator.Run(runCtx, snap.Paper, pipeline.Options{
		Translate:      opts.Translate,
		Polish:         opts.Polish,
		PolishLanguage: opts.PolishLanguage,
	})

	// 超时或取消时未完成的字段已经用回退值填充，结果照常保存
	errMsg := ""
	if err := runCtx.Err(); err != nil {
		errMsg = fmt.Sprintf("processing interrupted: %v", err)
		log.WithError(err).Warn("Paper processing interrupted, remaining fields fell back")
	}

	snap.Result = *result
	if err := fillRecord(rec, snap); err != nil {
		return nil, err
	}
	rec.Status = models.PaperStatus(result.Status)
	rec.Error = errMsg
	rec.ProcessedAt = result.FinishedAt

	// 保存不受处理超时影响
	if err := s.repo.Update(context.WithoutCancel(ctx), rec); err != nil {
		return nil, fmt.Errorf("failed to save processing result: %w", err)
	}
	return result, nil
}

// ProcessAsync 提交论文处理任务
func (s *PaperService) ProcessAsync(ctx context.Context, id string, opts ProcessOptions) (string, error) {
	if s.taskQueue == nil {
		return "", errors.New("task queue not initialized")
	}

	if err := s.status.MarkAsQueued(ctx, id); err != nil {
		return "", err
	}

	taskType := taskqueue.TaskPaperAnalyze
	if opts.Polish {
		taskType = taskqueue.TaskPaperPolish
	}

	taskID, err := s.taskQueue.Enqueue(ctx, taskType, id, &taskqueue.ProcessPayload{
		PaperID:        id,
		Translate:      opts.Translate,
		PolishLanguage: string(opts.PolishLanguage),
	})
	if err != nil {
		_ = s.status.MarkAsFailed(ctx, id, err.Error())
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	if err := s.repo.SetTask(ctx, id, taskID); err != nil {
		s.logger.WithError(err).WithField("paper_id", id).Warn("Failed to record task id")
	}

	s.logger.WithFields(logrus.Fields{
		"paper_id":  id,
		"task_id":   taskID,
		"task_type": taskType,
	}).Info("Paper processing task enqueued")
	return taskID, nil
}

// GetTaskInfo 获取论文当前任务的信息
func (s *PaperService) GetTaskInfo(ctx context.Context, id string) (*taskqueue.TaskInfo, error) {
	if s.taskQueue == nil {
		return nil, nil
	}

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.CurrentTaskID == "" {
		return nil, nil
	}

	task, err := s.taskQueue.GetTask(ctx, rec.CurrentTaskID)
	if err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return taskqueue.NewTaskInfo(task), nil
}

// WaitForProcessing 等待论文当前任务结束
func (s *PaperService) WaitForProcessing(ctx context.Context, id string, timeout time.Duration) (*models.Paper, error) {
	if s.taskQueue == nil {
		return nil, errors.New("task queue not initialized")
	}

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.CurrentTaskID != "" && !rec.Status.Finished() {
		if _, err := s.taskQueue.WaitForTask(ctx, rec.CurrentTaskID, timeout); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(ctx, id)
}

// Ping 检查大模型接口连通性
func (s *PaperService) Ping(ctx context.Context) error {
	return s.tr.Ping(ctx)
}

// fillRecord 将快照写入数据库记录
func fillRecord(rec *models.Paper, snap paper.Snapshot) error {
	data, err := paper.Encode(snap, paper.FormatJSON)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	rec.Snapshot = datatypes.JSON(data)
	rec.Title = snap.Title
	rec.Mode = string(snap.Mode)
	rec.SectionCount = section.Count(snap.Sections)
	rec.FallbackCount = snap.Fallbacks
	return nil
}

// decodeRecord 从数据库记录解析快照
func decodeRecord(rec *models.Paper) (paper.Snapshot, error) {
	snap, err := paper.Decode(rec.Snapshot, paper.FormatJSON)
	if err != nil {
		return paper.Snapshot{}, fmt.Errorf("failed to decode snapshot of paper %s: %w", rec.ID, err)
	}
	return snap, nil
}
