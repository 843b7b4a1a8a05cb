package api

import (
	"net/http"

	"github.com/fyerfyer/scholar-assistant/api/handler"
	"github.com/fyerfyer/scholar-assistant/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(paperHandler *handler.PaperHandler) *gin.Engine {
	router := gin.New()

	// 应用全局中间件
	router.Use(Cors())
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
		router.Use(middleware.ResponseLogger())
	}

	api := router.Group("/api")
	{
		papers := api.Group("/papers")
		{
			papers.POST("", paperHandler.CreatePaper)
			papers.GET("", paperHandler.ListPapers)
			papers.POST("/import", paperHandler.ImportPaper)

			papers.GET("/:id", paperHandler.GetPaper)
			papers.PUT("/:id", paperHandler.UpdatePaper)
			papers.DELETE("/:id", paperHandler.DeletePaper)

			// 章节编辑
			papers.POST("/:id/sections/:sid/children", paperHandler.AddChildSection)
			papers.POST("/:id/sections/:sid/siblings", paperHandler.AddSiblingSection)
			papers.DELETE("/:id/sections/:sid", paperHandler.DeleteSection)

			// 处理与导出
			papers.POST("/:id/process", paperHandler.ProcessPaper)
			papers.GET("/:id/status", paperHandler.GetPaperStatus)
			papers.GET("/:id/export", paperHandler.ExportPaper)

			papers.POST("/:id/archives", paperHandler.ArchivePaper)
			papers.GET("/:id/archives", paperHandler.ListArchives)
		}

		archives := api.Group("/archives")
		{
			archives.POST("/:aid/restore", paperHandler.RestoreArchive)
			archives.DELETE("/:aid", paperHandler.DeleteArchive)
		}

		api.GET("/llm/ping", paperHandler.PingLLM)

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
// 如果需要支持跨域请求，可以启用此中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
