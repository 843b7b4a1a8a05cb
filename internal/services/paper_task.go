package services

import (
	"context"
	"fmt"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/pkg/taskqueue"
	"github.com/sirupsen/logrus"
)

// PaperTaskHandler 论文处理任务的处理器
type PaperTaskHandler struct {
	service *PaperService
	logger  *logrus.Logger
}

// NewPaperTaskHandler 创建论文处理任务的处理器
func NewPaperTaskHandler(service *PaperService, logger *logrus.Logger) *PaperTaskHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &PaperTaskHandler{
		service: service,
		logger:  logger,
	}
}

// GetTaskTypes 返回支持的任务类型
func (h *PaperTaskHandler) GetTaskTypes() []taskqueue.TaskType {
	return []taskqueue.TaskType{
		taskqueue.TaskPaperAnalyze,
		taskqueue.TaskPaperPolish,
	}
}

// ProcessTask 处理论文任务
func (h *PaperTaskHandler) ProcessTask(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload taskqueue.ProcessPayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, err
	}
	if payload.PaperID == "" {
		payload.PaperID = task.PaperID
	}

	log := h.logger.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
		"paper_id":  payload.PaperID,
	})
	log.Info("Processing paper task")

	opts := ProcessOptions{Translate: payload.Translate}
	switch task.Type {
	case taskqueue.TaskPaperAnalyze:
	case taskqueue.TaskPaperPolish:
		opts.Polish = true
		lang, err := paper.ParseLanguage(payload.PolishLanguage)
		if err != nil {
			lang = paper.LanguageEnglish
		}
		opts.PolishLanguage = lang
	default:
		return nil, fmt.Errorf("unsupported task type: %s", task.Type)
	}

	result, err := h.service.ProcessSync(ctx, payload.PaperID, opts, true)
	if err != nil {
		log.WithError(err).Error("Paper task failed")
		return nil, err
	}

	res := &taskqueue.ProcessResult{
		PaperID:   payload.PaperID,
		Status:    string(result.Status),
		Fallbacks: result.Fallbacks,
	}
	if result.StartedAt != nil && result.FinishedAt != nil {
		res.Duration = result.FinishedAt.Sub(*result.StartedAt).String()
	}
	log.WithField("status", res.Status).Info("Paper task completed")
	return res, nil
}
