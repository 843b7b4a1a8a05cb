package repository

import (
	"context"

	"github.com/fyerfyer/scholar-assistant/internal/models"
)

// PaperRepository 论文仓储接口
// 负责论文快照及其归档记录的存储和检索
type PaperRepository interface {
	// Create 创建论文记录
	Create(ctx context.Context, paper *models.Paper) error

	// Update 更新论文记录
	Update(ctx context.Context, paper *models.Paper) error

	// GetByID 根据ID获取论文
	GetByID(ctx context.Context, id string) (*models.Paper, error)

	// List 列出论文列表，支持分页和筛选
	List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Paper, int64, error)

	// Delete 删除论文及其归档记录
	Delete(ctx context.Context, id string) error

	// UpdateStatus 更新论文状态
	UpdateStatus(ctx context.Context, id string, status models.PaperStatus, errorMsg string) error

	// TransitionStatus 仅当当前状态属于from时才更新为to，返回是否更新成功
	TransitionStatus(ctx context.Context, id string, from []models.PaperStatus, to models.PaperStatus) (bool, error)

	// SetTask 记录论文当前关联的任务ID
	SetTask(ctx context.Context, id, taskID string) error

	// SaveArchive 保存归档记录
	SaveArchive(ctx context.Context, archive *models.PaperArchive) error

	// GetArchive 获取归档记录
	GetArchive(ctx context.Context, id string) (*models.PaperArchive, error)

	// ListArchives 列出论文的归档记录，最新的在前
	ListArchives(ctx context.Context, paperID string) ([]*models.PaperArchive, error)

	// DeleteArchive 删除归档记录
	DeleteArchive(ctx context.Context, id string) error
}
