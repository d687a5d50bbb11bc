package router

import (
	"time"

	"moneysync/api"
	"moneysync/config"
	_ "moneysync/docs"
	"moneysync/middleware"
	"moneysync/store"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, stores *store.Registry) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	expenseHandler := api.NewExpenseHandler(stores)
	categoryHandler := api.NewCategoryHandler(stores)
	goalHandler := api.NewGoalHandler(stores)
	balanceHandler := api.NewBalanceHandler(stores)
	exportHandler := api.NewExportHandler(stores)

	// API v1 路由组，全部需要 JWT 认证
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth())
	{
		// 写接口限流
		write := v1.Group("")
		write.Use(middleware.WriteRateLimit(60, time.Minute))
		{
			write.POST("/expenses", expenseHandler.Create)
			write.PUT("/expenses/:id", expenseHandler.Update)
			write.DELETE("/expenses/:id", expenseHandler.Delete)

			write.POST("/categories", categoryHandler.Create)
			write.PUT("/categories/:id", categoryHandler.Update)
			write.DELETE("/categories/:id", categoryHandler.Delete)

			write.POST("/goals", goalHandler.Create)
			write.PUT("/goals/:id", goalHandler.Update)
			write.DELETE("/goals/:id", goalHandler.Delete)

			write.POST("/balance", balanceHandler.Create)
			write.PUT("/balance/:id", balanceHandler.Update)
			write.DELETE("/balance/:id", balanceHandler.Delete)
		}

		v1.GET("/expenses", expenseHandler.List)
		v1.GET("/categories", categoryHandler.List)
		v1.GET("/goals", goalHandler.List)
		v1.GET("/balance", balanceHandler.List)
		v1.GET("/balance/summary", balanceHandler.Summary)

		export := v1.Group("/export")
		{
			export.GET("/csv", exportHandler.ExportCSV)
			export.GET("/json", exportHandler.ExportJSON)
			export.GET("/excel", exportHandler.ExportExcel)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
