package model

import (
	"time"

	"github.com/fyerfyer/scholar-assistant/internal/models"
	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/pkg/taskqueue"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// PaperInfo 论文概要信息
type PaperInfo struct {
	ID          string     `json:"id"`                     // 论文ID
	Title       string     `json:"title"`                  // 标题
	Status      string     `json:"status"`                 // 处理状态
	Mode        string     `json:"mode,omitempty"`         // 最近一次处理模式
	Sections    int        `json:"sections"`               // 正文章节数
	Fallbacks   int        `json:"fallbacks"`              // 回退字段数
	Error       string     `json:"error,omitempty"`        // 错误信息
	TaskID      string     `json:"task_id,omitempty"`      // 当前任务ID
	CreatedAt   time.Time  `json:"created_at"`             // 创建时间
	UpdatedAt   time.Time  `json:"updated_at"`             // 更新时间
	ProcessedAt *time.Time `json:"processed_at,omitempty"` // 最近处理完成时间
}

// NewPaperInfo 从数据库记录构造论文概要
func NewPaperInfo(p *models.Paper) PaperInfo {
	return PaperInfo{
		ID:          p.ID,
		Title:       p.Title,
		Status:      string(p.Status),
		Mode:        p.Mode,
		Sections:    p.SectionCount,
		Fallbacks:   p.FallbackCount,
		Error:       p.Error,
		TaskID:      p.CurrentTaskID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		ProcessedAt: p.ProcessedAt,
	}
}

// PaperDetailResponse 论文详情，包含完整快照
type PaperDetailResponse struct {
	PaperInfo
	Snapshot paper.Snapshot `json:"snapshot"`
}

// PaperListResponse 论文列表响应
type PaperListResponse struct {
	Total    int64       `json:"total"`     // 总数量
	Page     int         `json:"page"`      // 当前页码
	PageSize int         `json:"page_size"` // 每页大小
	Papers   []PaperInfo `json:"papers"`    // 论文列表
}

// SectionResponse 章节编辑响应
type SectionResponse struct {
	PaperID   string `json:"paper_id"`             // 论文ID
	SectionID string `json:"section_id,omitempty"` // 新建章节ID
}

// ProcessResponse 处理请求响应
// 同步处理时返回结果，异步处理时返回任务ID
type ProcessResponse struct {
	PaperID   string        `json:"paper_id"`          // 论文ID
	Status    string        `json:"status"`            // 当前状态
	TaskID    string        `json:"task_id,omitempty"` // 异步任务ID
	Fallbacks int           `json:"fallbacks"`         // 回退字段数
	Result    *paper.Result `json:"result,omitempty"`  // 同步处理结果
}

// PaperStatusResponse 处理状态查询响应
type PaperStatusResponse struct {
	PaperID     string              `json:"paper_id"`               // 论文ID
	Status      string              `json:"status"`                 // 处理状态
	Mode        string              `json:"mode,omitempty"`         // 处理模式
	Fallbacks   int                 `json:"fallbacks"`              // 回退字段数
	Error       string              `json:"error,omitempty"`        // 错误信息
	ProcessedAt *time.Time          `json:"processed_at,omitempty"` // 处理完成时间
	Task        *taskqueue.TaskInfo `json:"task,omitempty"`         // 关联任务
}

// ArchiveInfo 归档信息
type ArchiveInfo struct {
	ID        string    `json:"id"`         // 归档ID
	PaperID   string    `json:"paper_id"`   // 论文ID
	Format    string    `json:"format"`     // 归档格式
	Size      int64     `json:"size"`       // 文件大小
	CreatedAt time.Time `json:"created_at"` // 创建时间
}

// NewArchiveInfo 从归档记录构造归档信息
func NewArchiveInfo(a *models.PaperArchive) ArchiveInfo {
	return ArchiveInfo{
		ID:        a.ID,
		PaperID:   a.PaperID,
		Format:    a.Format,
		Size:      a.Size,
		CreatedAt: a.CreatedAt,
	}
}

// PingResponse 大模型连通性检查响应
type PingResponse struct {
	Reachable bool   `json:"reachable"`       // 是否可达
	Error     string `json:"error,omitempty"` // 错误信息
}
