package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schemapanel/internal/filter"
	"schemapanel/internal/form"
	"schemapanel/internal/schema"
	"schemapanel/internal/table"
	"schemapanel/internal/validate"
)

// ValidateHandler проверяет значения формы. Без quality=true внешние проверки не запускаются.
func ValidateHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		var body struct {
			Values  map[string]string `json:"values"`
			Fields  []string          `json:"fields"`
			Quality bool              `json:"quality"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		var res validate.Result
		if body.Quality {
			res = p.Validator.Validate(c.Request.Context(), e, body.Values, body.Fields...)
		} else {
			res = p.Validator.ValidateSync(e, body.Values, body.Fields...)
		}
		if !res.OK() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": res.Errors, "messages": res.Messages()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"errors": []validate.FieldError{}})
	}
}

func tableJSON(c *gin.Context, t table.Table) {
	c.JSON(http.StatusOK, gin.H{"columns": t.Columns, "data": t.Data()})
}

// RowsHandler: чтение через read-route бэкенда и локальный фильтр поверх.
// Неразборный фильтр не ошибка: строки возвращаются как есть.
func RowsHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		route := c.Query("route")
		uid := currentUser(c)
		if _, err := e.RoutePath(route, uid); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		t, err := p.Backend.Read(c.Request.Context(), e.Name, route, uid)
		if err != nil {
			respondErr(c, err)
			return
		}
		tableJSON(c, filter.Apply(t, c.Query("filter"), p.Log))
	}
}

// submit проводит тело запроса через контроллер формы: поля вне формы пропускаются.
func (p *Panel) submit(c *gin.Context, e *schema.EntitySchema, mode form.Mode, id string) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	var opts []form.Option
	opts = append(opts, form.WithLogger(p.Log), form.WithEvaluator(p.Evaluator))
	if mode == form.ModeEdit {
		opts = append(opts, form.WithRecord(id, nil))
	}
	ctrl := form.New(e, mode, p.Validator, p.Backend, opts...)
	defer ctrl.Close()

	for k, v := range body {
		if _, err := ctrl.Set(k, v); err != nil {
			if errors.Is(err, form.ErrUnknownField) || errors.Is(err, form.ErrReadOnly) {
				p.Log.Debug("field skipped", zap.String("entity", e.Name), zap.String("field", k), zap.Error(err))
				continue
			}
			respondErr(c, err)
			return
		}
	}
	resp, err := ctrl.Submit(c.Request.Context(), uid)
	if err != nil {
		respondErr(c, err)
		return
	}
	code := http.StatusOK
	if mode == form.ModeCreate {
		code = http.StatusCreated
	}
	c.JSON(code, resp)
}

func CreateHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		if !e.Scopes.Create {
			respondErr(c, fmt.Errorf("create %s: %w", e.Name, errForbidden))
			return
		}
		p.submit(c, e, form.ModeCreate, "")
	}
}

func UpdateHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		if len(e.UpdateFields()) == 0 {
			respondErr(c, fmt.Errorf("update %s: %w", e.Name, errForbidden))
			return
		}
		p.submit(c, e, form.ModeEdit, c.Param("id"))
	}
}

func DeleteHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		if !e.Scopes.Delete {
			respondErr(c, fmt.Errorf("delete %s: %w", e.Name, errForbidden))
			return
		}
		uid, ok := requireUser(c)
		if !ok {
			return
		}
		resp, err := p.Backend.Delete(c.Request.Context(), e.Name, c.Param("id"), uid)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// QueryHandler пересылает строку запроса бэкенду без разбора.
func QueryHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		var body struct {
			Query string `json:"query_string" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query_string is required"})
			return
		}
		rows, err := p.Backend.Query(c.Request.Context(), e.Name, body.Query)
		if err != nil {
			respondErr(c, err)
			return
		}
		if rows == nil {
			rows = [][]any{}
		}
		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}

func SearchHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		var body struct {
			Search string `json:"search_string" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "search_string is required"})
			return
		}
		rows, err := p.Backend.Search(c.Request.Context(), e.Name, body.Search)
		if err != nil {
			respondErr(c, err)
			return
		}
		if rows == nil {
			rows = [][]any{}
		}
		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}
