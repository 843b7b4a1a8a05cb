package model

import (
	"mime/multipart"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/section"
)

// 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// PaperRequest 论文录入/修改请求
type PaperRequest struct {
	Title        string             `json:"title" binding:"max=1000"`
	Authors      string             `json:"authors"`
	Institutes   string             `json:"institutes"`
	Keywords     string             `json:"keywords"`
	Abstract     string             `json:"abstract"`
	Introduction string             `json:"introduction"`
	Sections     []*section.Section `json:"sections"`
}

// ToPaper 转换为论文结构
func (r *PaperRequest) ToPaper() paper.Paper {
	return paper.Paper{
		Title:        r.Title,
		Authors:      r.Authors,
		Institutes:   r.Institutes,
		Keywords:     r.Keywords,
		Abstract:     r.Abstract,
		Introduction: r.Introduction,
		Sections:     r.Sections,
	}
}

// PaperURIRequest 论文路径参数
type PaperURIRequest struct {
	ID string `uri:"id" binding:"required"` // 论文ID
}

// SectionURIRequest 章节路径参数
type SectionURIRequest struct {
	ID        string `uri:"id" binding:"required"`  // 论文ID
	SectionID string `uri:"sid" binding:"required"` // 章节ID
}

// PaperListRequest 论文列表请求
type PaperListRequest struct {
	PaginationRequest
	Status string `form:"status" json:"status" binding:"omitempty,oneof=idle queued running done done_with_fallback failed"` // 状态过滤
	Title  string `form:"title" json:"title" binding:"omitempty"`                                                            // 标题关键字
}

// ProcessRequest 论文处理请求
// polish为true时进入润色模式，忽略translate
type ProcessRequest struct {
	Translate      bool   `json:"translate"`                                       // 是否翻译为中文
	Polish         bool   `json:"polish"`                                          // 是否润色
	PolishLanguage string `json:"polish_language" binding:"omitempty,oneof=en zh"` // 润色语言
	Async          bool   `json:"async"`                                           // 是否提交到任务队列
}

// ExportRequest 导出请求
type ExportRequest struct {
	Format   string `form:"format" binding:"omitempty,oneof=json yaml markdown html"` // 导出格式
	Language string `form:"lang" binding:"omitempty,oneof=en zh"`                     // 阅读语言
	Notes    bool   `form:"notes"`                                                    // 是否附带总结笔记
}

// ArchiveRequest 归档请求
type ArchiveRequest struct {
	Format string `json:"format" binding:"omitempty,oneof=json yaml"` // 归档格式
}

// ImportRequest 导入请求
type ImportRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 上传文件：.json .yaml .yml .md .markdown .txt
}

// ArchiveURIRequest 归档路径参数
type ArchiveURIRequest struct {
	ArchiveID string `uri:"aid" binding:"required"` // 归档ID
}
