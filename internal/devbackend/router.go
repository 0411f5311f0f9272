package devbackend

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schemapanel/internal/logging"
)

// NewRouter регистрирует REST-контракт бэкенда.
func NewRouter(storage *Storage, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.Gin(log))

	r.GET("/read/:entity", ReadHandler(storage, log))
	r.GET("/read/:entity/:route", ReadHandler(storage, log))
	r.GET("/read/:entity/:route/:user", ReadHandler(storage, log))
	r.GET("/bulk_read/:entity/:window", BulkReadHandler(storage))

	r.POST("/create/:entity", CreateHandler(storage))
	r.PUT("/update/:entity/:id", UpdateHandler(storage))
	r.DELETE("/delete/:entity/:id", DeleteHandler(storage))

	r.POST("/bulk_create/:entity", BulkCreateHandler(storage))
	r.PUT("/bulk_update/:entity", BulkUpdateHandler(storage))
	r.DELETE("/bulk_delete/:entity", BulkDeleteHandler(storage))

	r.POST("/query/:entity", QueryHandler(storage))
	r.POST("/search/:entity", SearchHandler(storage))
	r.POST("/authenticate", AuthenticateHandler(storage))
	r.GET("/logs/:entity", LogsHandler(storage))

	return r
}
