package models

import "errors"

var (
	// ErrPaperNotFound 论文不存在错误
	ErrPaperNotFound = errors.New("paper not found")

	// ErrInvalidPaperStatus 无效的论文状态转换
	ErrInvalidPaperStatus = errors.New("invalid paper status")

	// ErrPaperBusy 论文正在处理中，不能修改或重复提交
	ErrPaperBusy = errors.New("paper is being processed")

	// ErrArchiveNotFound 归档不存在错误
	ErrArchiveNotFound = errors.New("archive not found")
)
