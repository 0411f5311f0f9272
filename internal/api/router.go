package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schemapanel/internal/logging"
)

// NewRouter собирает маршруты панели под /api.
func NewRouter(p *Panel) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Gin(p.Log))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/meta", MetaListHandler(p))
		apiGroup.GET("/meta/:entity", MetaEntityHandler(p))
		apiGroup.GET("/admin/lint", LintHandler(p))
		apiGroup.POST("/login", LoginHandler(p))
		apiGroup.POST("/logout", LogoutHandler())

		apiGroup.POST("/:entity/options", OptionsHandler(p))
		apiGroup.POST("/:entity/validate", ValidateHandler(p))
		apiGroup.GET("/:entity/rows", RowsHandler(p))
		apiGroup.POST("/:entity/query", QueryHandler(p))
		apiGroup.POST("/:entity/search", SearchHandler(p))
		apiGroup.GET("/:entity/export", ExportHandler(p))
		apiGroup.POST("/:entity/import/:op", ImportHandler(p))

		apiGroup.POST("/:entity/records", CreateHandler(p))
		apiGroup.PUT("/:entity/records/:id", UpdateHandler(p))
		apiGroup.DELETE("/:entity/records/:id", DeleteHandler(p))
	}
	return r
}

// Run слушает addr до отмены ctx, затем даёт запросам 5 секунд на завершение.
func Run(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
