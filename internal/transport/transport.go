package transport

import (
	"github.com/gin-gonic/gin"
)

func InitRoutes(imgHandler *ImageHandler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := router.Group("/api")
	{
		api.POST("/remove-background", imgHandler.RemoveBackground)
		api.POST("/resize-image", imgHandler.ResizeImage)
		api.POST("/upload", imgHandler.UploadAsync)
		api.GET("/health", imgHandler.Health)
	}

	router.GET("/image/:id", imgHandler.GetImage)
	router.GET("/image/:id/file", imgHandler.GetImageFile)
	router.DELETE("/image/:id", imgHandler.DeleteImage)

	return router
}
