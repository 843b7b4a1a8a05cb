package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskPaperAnalyze 论文分析任务：格式化、翻译、摘要
	TaskPaperAnalyze TaskType = "paper_analyze"
	// TaskPaperPolish 论文润色任务
	TaskPaperPolish TaskType = "paper_polish"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Finished 是否为终止状态
func (s TaskStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task 任务基础结构
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	PaperID     string          `json:"paper_id"`     // 关联的论文ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷数据
	Result      json.RawMessage `json:"result"`       // 任务结果数据
	Error       string          `json:"error"`        // 错误信息（如果处理失败）
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// ProcessPayload 论文处理任务载荷
type ProcessPayload struct {
	PaperID        string `json:"paper_id"`        // 论文ID
	Translate      bool   `json:"translate"`       // 是否翻译为中文
	PolishLanguage string `json:"polish_language"` // 润色语言：en, zh
}

// ProcessResult 论文处理任务结果
type ProcessResult struct {
	PaperID   string `json:"paper_id"`  // 论文ID
	Status    string `json:"status"`    // 论文最终状态
	Fallbacks int    `json:"fallbacks"` // 回退字段数
	Duration  string `json:"duration"`  // 处理耗时
}
