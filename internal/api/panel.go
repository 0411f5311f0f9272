// Package api отдаёт слою представления JSON-поверхность панели:
// метаданные схем, опции, валидация, чтение, запись, экспорт и импорт CSV.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schemapanel/internal/bulk"
	"schemapanel/internal/client"
	"schemapanel/internal/cond"
	"schemapanel/internal/schema"
	"schemapanel/internal/table"
	"schemapanel/internal/validate"
)

// Backend: вызовы REST-контракта бэкенда, которые нужны панели.
type Backend interface {
	Read(ctx context.Context, entity, routeKey, userID string) (table.Table, error)
	BulkRead(ctx context.Context, entity string, w client.TimeWindow) (table.Table, error)
	Create(ctx context.Context, entity string, fields map[string]string, userID string) (client.Response, error)
	Update(ctx context.Context, entity, id string, fields map[string]string, userID string) (client.Response, error)
	Delete(ctx context.Context, entity, id, userID string) (client.Response, error)
	BulkCreate(ctx context.Context, entity string, p bulk.CreatePayload) (client.Response, error)
	BulkUpdate(ctx context.Context, entity string, p bulk.UpdatePayload) (client.Response, error)
	BulkDelete(ctx context.Context, entity string, p bulk.DeletePayload) (client.Response, error)
	Query(ctx context.Context, entity, query string) ([][]any, error)
	Search(ctx context.Context, entity, search string) ([][]any, error)
	Authenticate(ctx context.Context, username, password string) (client.User, error)
}

// Panel связывает реестр схем, движок валидации и бэкенд.
type Panel struct {
	Registry  *schema.Registry
	Backend   Backend
	Validator *validate.Engine
	Evaluator *cond.Evaluator
	Log       *zap.Logger
}

func NewPanel(reg *schema.Registry, backend Backend, v *validate.Engine, log *zap.Logger) *Panel {
	if log == nil {
		log = zap.NewNop()
	}
	if v == nil {
		v = validate.New(validate.WithLogger(log))
	}
	return &Panel{
		Registry:  reg,
		Backend:   backend,
		Validator: v,
		Evaluator: cond.NewEvaluator(log),
		Log:       log,
	}
}

// entityOr404: общий пролог обработчиков с :entity.
func (p *Panel) entityOr404(c *gin.Context) (*schema.EntitySchema, bool) {
	e, err := p.Registry.Get(c.Param("entity"))
	if err != nil {
		respondErr(c, err)
		return nil, false
	}
	return e, true
}

// UserIDCookie и UserIDHeader: откуда берётся текущий пользователь.
const (
	UserIDCookie = "user_id"
	UserIDHeader = "X-User-ID"
)

func currentUser(c *gin.Context) string {
	if v, err := c.Cookie(UserIDCookie); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.GetHeader(UserIDHeader))
}

func requireUser(c *gin.Context) (string, bool) {
	uid := currentUser(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return "", false
	}
	return uid, true
}
