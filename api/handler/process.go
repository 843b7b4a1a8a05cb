package handler

import (
	"fmt"
	"net/http"

	"github.com/fyerfyer/scholar-assistant/api/middleware"
	"github.com/fyerfyer/scholar-assistant/api/model"
	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ProcessPaper 处理论文
// POST /api/papers/:id/process
func (h *PaperHandler) ProcessPaper(c *gin.Context) {
	var uri model.PaperURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的论文ID"))
		return
	}
	var req model.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的请求参数", err.Error()))
		return
	}

	lang, err := paper.ParseLanguage(req.PolishLanguage)
	if err != nil {
		middleware.HandleError(c, middleware.NewValidationError("不支持的润色语言", err.Error()))
		return
	}
	opts := services.ProcessOptions{
		Translate:      req.Translate,
		Polish:         req.Polish,
		PolishLanguage: lang,
		Async:          req.Async,
	}

	h.logger.WithFields(logrus.Fields{
		middleware.FieldPaperID: uri.ID,
		"translate":             opts.Translate,
		"polish":                opts.Polish,
		"async":                 opts.Async && h.paperService.AsyncEnabled(),
	}).Info("Paper processing requested")

	taskID, result, err := h.paperService.Process(c.Request.Context(), uri.ID, opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	if taskID != "" {
		c.JSON(http.StatusAccepted, model.NewSuccessResponse(model.ProcessResponse{
			PaperID: uri.ID,
			Status:  "queued",
			TaskID:  taskID,
		}))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ProcessResponse{
		PaperID:   uri.ID,
		Status:    string(result.Status),
		Fallbacks: result.Fallbacks,
		Result:    result,
	}))
}

// GetPaperStatus 获取论文处理状态
// GET /api/papers/:id/status
func (h *PaperHandler) GetPaperStatus(c *gin.Context) {
	var uri model.PaperURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的论文ID"))
		return
	}

	p, err := h.paperService.GetPaper(c.Request.Context(), uri.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := model.PaperStatusResponse{
		PaperID:     p.ID,
		Status:      string(p.Status),
		Mode:        p.Mode,
		Fallbacks:   p.FallbackCount,
		Error:       p.Error,
		ProcessedAt: p.ProcessedAt,
	}

	// 任务信息获取失败不影响状态查询
	task, err := h.paperService.GetTaskInfo(c.Request.Context(), uri.ID)
	if err != nil {
		h.logger.WithError(err).WithField(middleware.FieldPaperID, uri.ID).Warn("Failed to get task info")
	}
	resp.Task = task

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// ExportPaper 导出论文
// GET /api/papers/:id/export?format=&lang=&notes=
func (h *PaperHandler) ExportPaper(c *gin.Context) {
	var uri model.PaperURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的论文ID"))
		return
	}
	var req model.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的导出参数", err.Error()))
		return
	}

	lang, err := paper.ParseLanguage(req.Language)
	if err != nil {
		middleware.HandleError(c, middleware.NewValidationError("不支持的语言", err.Error()))
		return
	}

	out, err := h.paperService.Export(c.Request.Context(), uri.ID, services.ExportFormat(req.Format), services.ExportOptions{
		Language: lang,
		Notes:    req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

// ArchivePaper 归档论文快照
// POST /api/papers/:id/archives
func (h *PaperHandler) ArchivePaper(c *gin.Context) {
	var uri model.PaperURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的论文ID"))
		return
	}
	var req model.ArchiveRequest
	// 请求体可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleError(c, middleware.NewValidationError("无效的归档参数", err.Error()))
			return
		}
	}

	archive, err := h.paperService.Archive(c.Request.Context(), uri.ID, paper.Format(req.Format))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.NewSuccessResponse(model.NewArchiveInfo(archive)))
}

// ListArchives 列出论文的归档
// GET /api/papers/:id/archives
func (h *PaperHandler) ListArchives(c *gin.Context) {
	var uri model.PaperURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的论文ID"))
		return
	}

	archives, err := h.paperService.ListArchives(c.Request.Context(), uri.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	infos := make([]model.ArchiveInfo, 0, len(archives))
	for _, a := range archives {
		infos = append(infos, model.NewArchiveInfo(a))
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(infos))
}

// RestoreArchive 用归档覆盖论文当前内容
// POST /api/archives/:aid/restore
func (h *PaperHandler) RestoreArchive(c *gin.Context) {
	var uri model.ArchiveURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的归档ID"))
		return
	}

	p, err := h.paperService.RestoreArchive(c.Request.Context(), uri.ArchiveID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewPaperInfo(p)))
}

// DeleteArchive 删除归档
// DELETE /api/archives/:aid
func (h *PaperHandler) DeleteArchive(c *gin.Context) {
	var uri model.ArchiveURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的归档ID"))
		return
	}

	if err := h.paperService.DeleteArchive(c.Request.Context(), uri.ArchiveID); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"id": uri.ArchiveID}))
}

// PingLLM 检查大模型接口连通性
// GET /api/llm/ping
func (h *PaperHandler) PingLLM(c *gin.Context) {
	if err := h.paperService.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Warn("LLM endpoint unreachable")
		c.JSON(http.StatusBadGateway, &model.Response{
			Code:    http.StatusBadGateway,
			Message: "大模型接口不可用",
			Data:    model.PingResponse{Reachable: false, Error: err.Error()},
			TraceID: middleware.TraceID(c),
		})
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.PingResponse{Reachable: true}))
}
