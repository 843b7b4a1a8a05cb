package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/scholar-assistant/internal/database"
	"github.com/fyerfyer/scholar-assistant/internal/models"
	"gorm.io/gorm"
)

// paperRepository 论文仓储实现
type paperRepository struct {
	db *gorm.DB // 数据库连接
}

// NewPaperRepository 创建论文仓储实例
func NewPaperRepository() PaperRepository {
	return &paperRepository{
		db: database.MustDB(),
	}
}

// NewPaperRepositoryWithDB 使用指定的数据库连接创建论文仓储实例
func NewPaperRepositoryWithDB(db *gorm.DB) PaperRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &paperRepository{
		db: db,
	}
}

// Create 创建论文记录
func (r *paperRepository) Create(ctx context.Context, paper *models.Paper) error {
	if paper.ID == "" {
		return errors.New("paper ID cannot be empty")
	}
	return r.db.WithContext(ctx).Create(paper).Error
}

// Update 更新论文记录
func (r *paperRepository) Update(ctx context.Context, paper *models.Paper) error {
	if paper.ID == "" {
		return errors.New("paper ID cannot be empty")
	}
	return r.db.WithContext(ctx).Save(paper).Error
}

// GetByID 根据ID获取论文
func (r *paperRepository) GetByID(ctx context.Context, id string) (*models.Paper, error) {
	var paper models.Paper
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&paper).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrPaperNotFound, id)
		}
		return nil, err
	}
	return &paper, nil
}

// List 列出论文列表，支持分页和筛选
// 支持的筛选条件：status, title
func (r *paperRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Paper, int64, error) {
	var papers []*models.Paper
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Paper{})

	if filters != nil {
		switch s := filters["status"].(type) {
		case models.PaperStatus:
			if s != "" {
				query = query.Where("status = ?", string(s))
			}
		case string:
			if s != "" {
				query = query.Where("status = ?", s)
			}
		}

		if title, ok := filters["title"].(string); ok && title != "" {
			query = query.Where("title LIKE ?", "%"+title+"%")
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 列表不需要快照内容
	err := query.Omit("snapshot").
		Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&papers).Error
	if err != nil {
		return nil, 0, err
	}

	return papers, total, nil
}

// Delete 删除论文记录
func (r *paperRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("paper_id = ?", id).Delete(&models.PaperArchive{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Paper{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", models.ErrPaperNotFound, id)
		}
		return nil
	})
}

// UpdateStatus 更新论文状态
func (r *paperRepository) UpdateStatus(ctx context.Context, id string, status models.PaperStatus, errorMsg string) error {
	result := r.db.WithContext(ctx).Model(&models.Paper{}).
		Where("id = ?", id).
		Updates(statusUpdates(status, errorMsg))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrPaperNotFound, id)
	}
	return nil
}

// TransitionStatus 条件更新论文状态
func (r *paperRepository) TransitionStatus(ctx context.Context, id string, from []models.PaperStatus, to models.PaperStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Paper{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(statusUpdates(to, ""))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// statusUpdates 构造状态更新字段
func statusUpdates(status models.PaperStatus, errorMsg string) map[string]interface{} {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"error":      errorMsg,
		"updated_at": now,
	}

	// 终止状态记录处理完成时间
	if status.Finished() {
		updates["processed_at"] = &now
	}
	return updates
}

// SetTask 记录论文当前关联的任务ID
func (r *paperRepository) SetTask(ctx context.Context, id, taskID string) error {
	return r.db.WithContext(ctx).Model(&models.Paper{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_task_id": taskID,
			"updated_at":      time.Now(),
		}).Error
}

// SaveArchive 保存归档记录
func (r *paperRepository) SaveArchive(ctx context.Context, archive *models.PaperArchive) error {
	if archive.ID == "" {
		return errors.New("archive ID cannot be empty")
	}
	return r.db.WithContext(ctx).Create(archive).Error
}

// GetArchive 获取归档记录
func (r *paperRepository) GetArchive(ctx context.Context, id string) (*models.PaperArchive, error) {
	var archive models.PaperArchive
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&archive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrArchiveNotFound, id)
		}
		return nil, err
	}
	return &archive, nil
}

// ListArchives 列出论文的归档记录
func (r *paperRepository) ListArchives(ctx context.Context, paperID string) ([]*models.PaperArchive, error) {
	var archives []*models.PaperArchive
	err := r.db.WithContext(ctx).
		Where("paper_id = ?", paperID).
		Order("created_at DESC").
		Find(&archives).Error
	return archives, err
}

// DeleteArchive 删除归档记录
func (r *paperRepository) DeleteArchive(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PaperArchive{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrArchiveNotFound, id)
	}
	return nil
}
