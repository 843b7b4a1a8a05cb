package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyerfyer/scholar-assistant/internal/models"
	"github.com/fyerfyer/scholar-assistant/internal/repository"
	"github.com/sirupsen/logrus"
)

// validTransitions 有效的论文状态转换
var validTransitions = map[models.PaperStatus][]models.PaperStatus{
	models.PaperStatusIdle: {
		models.PaperStatusQueued,
		models.PaperStatusRunning,
	},
	models.PaperStatusQueued: {
		models.PaperStatusRunning,
		models.PaperStatusFailed, // 入队后任务可能直接失败
	},
	models.PaperStatusRunning: {
		models.PaperStatusDone,
		models.PaperStatusDoneWithFallback,
		models.PaperStatusFailed,
	},
	// 终态都允许重新处理
	models.PaperStatusDone:             {models.PaperStatusQueued, models.PaperStatusRunning},
	models.PaperStatusDoneWithFallback: {models.PaperStatusQueued, models.PaperStatusRunning},
	models.PaperStatusFailed:           {models.PaperStatusQueued, models.PaperStatusRunning},
}

// PaperStatusManager 论文状态管理器
// 负责论文处理生命周期的状态转换
type PaperStatusManager struct {
	repo   repository.PaperRepository
	logger *logrus.Logger
}

// NewPaperStatusManager 创建论文状态管理器
func NewPaperStatusManager(repo repository.PaperRepository, logger *logrus.Logger) *PaperStatusManager {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	return &PaperStatusManager{
		repo:   repo,
		logger: logger,
	}
}

// ValidateStateTransition 验证状态转换的有效性
func (m *PaperStatusManager) ValidateStateTransition(from, to models.PaperStatus) error {
	for _, validTo := range validTransitions[from] {
		if validTo == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", models.ErrInvalidPaperStatus, from, to)
}

// sourcesOf 返回可以转换到目标状态的全部状态
func sourcesOf(to models.PaperStatus) []models.PaperStatus {
	var from []models.PaperStatus
	for status, targets := range validTransitions {
		for _, t := range targets {
			if t == to {
				from = append(from, status)
				break
			}
		}
	}
	return from
}

// MarkAsQueued 将论文标记为已入队
func (m *PaperStatusManager) MarkAsQueued(ctx context.Context, paperID string) error {
	return m.transition(ctx, paperID, sourcesOf(models.PaperStatusQueued), models.PaperStatusQueued)
}

// MarkAsRunning 将论文标记为处理中
// fromQueue为true时只接受已入队的论文，否则已入队或处理中的论文返回ErrPaperBusy
func (m *PaperStatusManager) MarkAsRunning(ctx context.Context, paperID string, fromQueue bool) error {
	var from []models.PaperStatus
	for _, status := range sourcesOf(models.PaperStatusRunning) {
		if (status == models.PaperStatusQueued) == fromQueue {
			from = append(from, status)
		}
	}
	return m.transition(ctx, paperID, from, models.PaperStatusRunning)
}

// MarkAsFailed 将论文标记为处理失败
func (m *PaperStatusManager) MarkAsFailed(ctx context.Context, paperID string, errorMsg string) error {
	m.logger.WithFields(logrus.Fields{
		"paper_id": paperID,
		"error":    errorMsg,
	}).Error("Marking paper as failed")

	return m.repo.UpdateStatus(ctx, paperID, models.PaperStatusFailed, errorMsg)
}

// transition 原子地执行一次状态转换
func (m *PaperStatusManager) transition(ctx context.Context, paperID string, from []models.PaperStatus, to models.PaperStatus) error {
	ok, err := m.repo.TransitionStatus(ctx, paperID, from, to)
	if err != nil {
		return fmt.Errorf("failed to update paper status: %w", err)
	}
	if ok {
		m.logger.WithFields(logrus.Fields{
			"paper_id": paperID,
			"status":   to,
		}).Info("Paper status changed")
		return nil
	}

	// 转换失败，区分论文不存在和状态不允许
	current, err := m.GetStatus(ctx, paperID)
	if err != nil {
		return err
	}
	if current == models.PaperStatusQueued || current == models.PaperStatusRunning {
		return fmt.Errorf("%w: %s", models.ErrPaperBusy, paperID)
	}
	return fmt.Errorf("%w: %s -> %s", models.ErrInvalidPaperStatus, current, to)
}

// GetStatus 获取论文当前状态
func (m *PaperStatusManager) GetStatus(ctx context.Context, paperID string) (models.PaperStatus, error) {
	p, err := m.repo.GetByID(ctx, paperID)
	if err != nil {
		return "", fmt.Errorf("failed to get paper status: %w", err)
	}
	return p.Status, nil
}

// EnsureEditable 论文处理中时不允许修改
func (m *PaperStatusManager) EnsureEditable(p *models.Paper) error {
	if p.Status == models.PaperStatusQueued || p.Status == models.PaperStatusRunning {
		return fmt.Errorf("%w: %s", models.ErrPaperBusy, p.ID)
	}
	return nil
}

// RecoverInterrupted 将上次运行中断而停留在处理中的论文标记为失败
func (m *PaperStatusManager) RecoverInterrupted(ctx context.Context) (int, error) {
	papers, _, err := m.repo.List(ctx, 0, -1, map[string]interface{}{"status": models.PaperStatusRunning})
	if err != nil {
		return 0, fmt.Errorf("failed to list running papers: %w", err)
	}

	recovered := 0
	for _, p := range papers {
		err := m.repo.UpdateStatus(ctx, p.ID, models.PaperStatusFailed, "processing interrupted")
		if err != nil && !errors.Is(err, models.ErrPaperNotFound) {
			return recovered, err
		}
		recovered++
	}

	if recovered > 0 {
		m.logger.WithField("count", recovered).Warn("Recovered interrupted papers")
	}
	return recovered, nil
}
