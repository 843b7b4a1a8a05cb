package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaperStatus 论文处理状态类型
type PaperStatus string

const (
	// PaperStatusIdle 已录入，尚未处理
	PaperStatusIdle PaperStatus = "idle"
	// PaperStatusQueued 已提交到任务队列，等待处理
	PaperStatusQueued PaperStatus = "queued"
	// PaperStatusRunning 处理中
	PaperStatusRunning PaperStatus = "running"
	// PaperStatusDone 处理完成
	PaperStatusDone PaperStatus = "done"
	// PaperStatusDoneWithFallback 处理完成，部分字段使用了回退值
	PaperStatusDoneWithFallback PaperStatus = "done_with_fallback"
	// PaperStatusFailed 处理失败(任务异常或超时)
	PaperStatusFailed PaperStatus = "failed"
)

// Finished 是否为终止状态
func (s PaperStatus) Finished() bool {
	return s == PaperStatusDone || s == PaperStatusDoneWithFallback || s == PaperStatusFailed
}

// Paper 论文数据模型
// 论文内容和处理结果以不透明JSON快照的形式保存
type Paper struct {
	ID            string         `gorm:"primaryKey"`             // 论文ID，主键
	Title         string         `gorm:"type:varchar(1000)"`     // 标题，冗余保存用于列表
	Status        PaperStatus    `gorm:"not null;index;size:20"` // 处理状态
	Mode          string         `gorm:"size:20"`                // 最近一次处理模式
	Snapshot      datatypes.JSON `gorm:"type:json"`              // 会话快照
	SectionCount  int            `gorm:"not null;default:0"`     // 正文章节总数
	FallbackCount int            `gorm:"not null;default:0"`     // 最近一次处理的回退字段数
	Error         string         `gorm:"type:text"`              // 错误信息
	CurrentTaskID string         `gorm:"size:50;index"`          // 当前关联的任务ID
	CreatedAt     time.Time      `gorm:"not null;index"`         // 创建时间
	UpdatedAt     time.Time      `gorm:"not null;index"`         // 更新时间
	ProcessedAt   *time.Time     `gorm:"index"`                  // 最近处理完成时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (p *Paper) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = PaperStatusIdle
	}
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (p *Paper) BeforeUpdate(tx *gorm.DB) (err error) {
	p.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (Paper) TableName() string {
	return "papers"
}

// PaperArchive 会话归档记录
// 归档文件本身保存在对象存储中
type PaperArchive struct {
	ID        string    `gorm:"primaryKey"`         // 归档ID
	PaperID   string    `gorm:"not null;index"`     // 所属论文ID
	Format    string    `gorm:"not null;size:10"`   // 归档格式：json, yaml
	Path      string    `gorm:"not null"`           // 存储路径
	URL       string    `gorm:"type:text"`          // 访问地址
	Size      int64     `gorm:"not null;default:0"` // 文件大小（字节）
	CreatedAt time.Time `gorm:"not null;index"`     // 创建时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (a *PaperArchive) BeforeCreate(tx *gorm.DB) (err error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	return nil
}

// TableName 明确指定表名
func (PaperArchive) TableName() string {
	return "paper_archives"
}
