package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schemapanel/internal/cond"
	"schemapanel/internal/schema"
)

type metaField struct {
	Name          string           `json:"name"`
	Kind          schema.FieldKind `json:"kind"`
	Options       []string         `json:"options,omitempty"`
	Dynamic       bool             `json:"dynamic,omitempty"`
	Rules         []string         `json:"rules,omitempty"`
	QualityChecks []string         `json:"quality_checks,omitempty"`
}

type metaRoute struct {
	Key             string `json:"key"`
	BelongsToUserID bool   `json:"belongs_to_user_id,omitempty"`
}

type metaEntity struct {
	Entity       string      `json:"entity"`
	Columns      []string    `json:"columns"`
	CanCreate    bool        `json:"can_create"`
	CanDelete    bool        `json:"can_delete"`
	CreateFields []metaField `json:"create_fields"`
	UpdateFields []metaField `json:"update_fields"`
	ReadRoutes   []metaRoute `json:"read_routes"`
}

func MetaListHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"entities": p.Registry.Names()})
	}
}

// describe строит описание полей; опции разрешаются для пустой формы.
func (p *Panel) describe(e *schema.EntitySchema, fields []string) []metaField {
	dynamic := e.DynamicOptions(p.Evaluator, cond.Binding{})
	out := make([]metaField, 0, len(fields))
	for _, f := range fields {
		opts := e.ResolveOptions(f, dynamic)
		out = append(out, metaField{
			Name:          f,
			Kind:          opts.Kind,
			Options:       opts.Options,
			Dynamic:       opts.Dynamic || len(e.ConditionalOptions[f]) > 0,
			Rules:         e.ValidationRules[f],
			QualityChecks: e.QualityChecks[f],
		})
	}
	return out
}

// MetaEntityHandler отдаёт всё, что нужно экрану сущности: колонки таблицы и обе формы.
func MetaEntityHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		routes := make([]metaRoute, 0, len(e.ReadRoutes))
		for _, r := range e.ReadRoutes {
			routes = append(routes, metaRoute{Key: r.Key, BelongsToUserID: r.BelongsToUserID})
		}
		createFields := []metaField{}
		if e.Scopes.Create {
			createFields = p.describe(e, e.CreateFields())
		}
		c.JSON(http.StatusOK, metaEntity{
			Entity:       e.Name,
			Columns:      append([]string{}, e.Scopes.Read...),
			CanCreate:    e.Scopes.Create,
			CanDelete:    e.Scopes.Delete,
			CreateFields: createFields,
			UpdateFields: p.describe(e, e.UpdateFields()),
			ReadRoutes:   routes,
		})
	}
}

// OptionsHandler пересчитывает опции полей для текущих значений формы.
func OptionsHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		var body struct {
			Values map[string]string `json:"values"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		b := cond.Binding{}
		for k, v := range body.Values {
			b[k] = v
		}
		dynamic := e.DynamicOptions(p.Evaluator, b)
		out := make(map[string]schema.FieldOptions)
		for _, f := range e.Scopes.Read {
			if schema.IsSystemField(f) {
				continue
			}
			out[f] = e.ResolveOptions(f, dynamic)
		}
		c.JSON(http.StatusOK, gin.H{"entity": e.Name, "fields": out})
	}
}

// LintHandler: отчёт о противоречиях в загруженных схемах.
func LintHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		var entities []*schema.EntitySchema
		for _, n := range p.Registry.Names() {
			if e, err := p.Registry.Get(n); err == nil {
				entities = append(entities, e)
			}
		}
		issues := schema.Lint(entities...)
		if issues == nil {
			issues = []schema.Issue{}
		}
		c.JSON(http.StatusOK, gin.H{"issues": issues})
	}
}
