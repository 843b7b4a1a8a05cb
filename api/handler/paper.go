package handler

import (
	"errors"
	"net/http"

	"github.com/fyerfyer/scholar-assistant/api/middleware"
	"github.com/fyerfyer/scholar-assistant/api/model"
	"github.com/fyerfyer/scholar-assistant/internal/document"
	"github.com/fyerfyer/scholar-assistant/internal/models"
	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/fyerfyer/scholar-assistant/internal/services"
	"github.com/fyerfyer/scholar-assistant/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaperHandler 处理论文相关的API请求
type PaperHandler struct {
	paperService *services.PaperService // 论文服务
	logger       *logrus.Logger         // 日志记录器
}

// NewPaperHandler 创建新的论文处理器
func NewPaperHandler(paperService *services.PaperService) *PaperHandler {
	return &PaperHandler{
		paperService: paperService,
		logger:       middleware.GetLogger(),
	}
}

// CreatePaper 录入论文
// POST /api/papers
func (h *PaperHandler) CreatePaper(c *gin.Context) {
	var req model.PaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的请求参数", err.Error()))
		return
	}

	p, err := h.paperService.CreatePaper(c.Request.Context(), req.ToPaper())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.NewSuccessResponse(model.NewPaperInfo(p)))
}

// GetPaper 获取论文详情
// GET /api/papers/:id
func (h *PaperHandler) GetPaper(c *gin.Context) {
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
	snap, err := h.paperService.GetSnapshot(c.Request.Context(), uri.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.PaperDetailResponse{
		PaperInfo: model.NewPaperInfo(p),
		Snapshot:  snap,
	}))
}

// ListPapers 获取论文列表
// GET /api/papers
func (h *PaperHandler) ListPapers(c *gin.Context) {
	var req model.PaperListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的查询参数", err.Error()))
		return
	}

	filters := make(map[string]interface{})
	if req.Status != "" {
		filters["status"] = req.Status
	}
	if req.Title != "" {
		filters["title"] = req.Title
	}

	page, pageSize := req.GetPage(), req.GetPageSize()
	papers, total, err := h.paperService.ListPapers(c.Request.Context(), (page-1)*pageSize, pageSize, filters)
	if err != nil {
		h.fail(c, err)
		return
	}

	infos := make([]model.PaperInfo, 0, len(papers))
	for _, p := range papers {
		infos = append(infos, model.NewPaperInfo(p))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.PaperListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Papers:   infos,
	}))
}

// UpdatePaper 修改论文内容
// PUT /api/papers/:id
func (h *PaperHandler) UpdatePaper(c *gin.Context) {
	var uri model.PaperURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的论文ID"))
		return
	}
	var req model.PaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的请求参数", err.Error()))
		return
	}

	p, err := h.paperService.UpdatePaper(c.Request.Context(), uri.ID, req.ToPaper())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewPaperInfo(p)))
}

// DeletePaper 删除论文
// DELETE /api/papers/:id
func (h *PaperHandler) DeletePaper(c *gin.Context) {
	var uri model.PaperURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的论文ID"))
		return
	}

	if err := h.paperService.DeletePaper(c.Request.Context(), uri.ID); err != nil {
		h.fail(c, err)
		return
	}

	h.logger.WithField(middleware.FieldPaperID, uri.ID).Info("Paper deleted via API")
	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"id": uri.ID}))
}

// AddChildSection 追加子章节
// POST /api/papers/:id/sections/:sid/children
func (h *PaperHandler) AddChildSection(c *gin.Context) {
	var uri model.SectionURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的章节路径"))
		return
	}

	child, err := h.paperService.AddChildSection(c.Request.Context(), uri.ID, uri.SectionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.NewSuccessResponse(model.SectionResponse{
		PaperID:   uri.ID,
		SectionID: child.ID,
	}))
}

// AddSiblingSection 在章节之后插入同级章节
// POST /api/papers/:id/sections/:sid/siblings
func (h *PaperHandler) AddSiblingSection(c *gin.Context) {
	var uri model.SectionURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的章节路径"))
		return
	}

	sibling, err := h.paperService.AddSiblingSection(c.Request.Context(), uri.ID, uri.SectionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.NewSuccessResponse(model.SectionResponse{
		PaperID:   uri.ID,
		SectionID: sibling.ID,
	}))
}

// DeleteSection 删除章节及其子章节
// DELETE /api/papers/:id/sections/:sid
func (h *PaperHandler) DeleteSection(c *gin.Context) {
	var uri model.SectionURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的章节路径"))
		return
	}

	if _, err := h.paperService.DeleteSection(c.Request.Context(), uri.ID, uri.SectionID); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SectionResponse{PaperID: uri.ID}))
}

// ImportPaper 从上传文件导入论文
// POST /api/papers/import
func (h *PaperHandler) ImportPaper(c *gin.Context) {
	var req model.ImportRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("未提供文件"))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("无法打开上传的文件", err.Error()))
		return
	}
	defer file.Close()

	p, err := h.paperService.Import(c.Request.Context(), req.File.Filename, file)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		middleware.FieldPaperID: p.ID,
		"filename":              req.File.Filename,
	}).Info("Paper imported via API")
	c.JSON(http.StatusCreated, model.NewSuccessResponse(model.NewPaperInfo(p)))
}

// fail 将服务层错误转换为应用错误
func (h *PaperHandler) fail(c *gin.Context, err error) {
	middleware.HandleError(c, toAppError(err))
}

func toAppError(err error) error {
	switch {
	case errors.Is(err, models.ErrPaperNotFound):
		return middleware.NewNotFoundError("未找到论文")
	case errors.Is(err, models.ErrArchiveNotFound):
		return middleware.NewNotFoundError("未找到归档")
	case errors.Is(err, section.ErrSectionNotFound):
		return middleware.NewNotFoundError("未找到章节")
	case errors.Is(err, taskqueue.ErrTaskNotFound):
		return middleware.NewNotFoundError("未找到任务")
	case errors.Is(err, models.ErrPaperBusy):
		return middleware.NewConflictError("论文正在处理中，请稍后再试")
	case errors.Is(err, models.ErrInvalidPaperStatus):
		return middleware.NewConflictError("当前状态不允许该操作", err.Error())
	case errors.Is(err, document.ErrUnsupportedType):
		return middleware.NewValidationError("不支持的文件类型，仅支持 .json, .yaml, .yml, .md, .markdown, .txt")
	case errors.Is(err, services.ErrUnsupportedFormat):
		return middleware.NewValidationError("不支持的导出格式")
	case errors.Is(err, services.ErrStorageDisabled):
		return middleware.NewBusinessError("未配置归档存储")
	case errors.Is(err, paper.ErrInvalidPaper):
		return middleware.NewValidationError("论文内容不合法", err.Error())
	}
	return err
}
