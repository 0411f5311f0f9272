package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schemapanel/internal/bulk"
	"schemapanel/internal/client"
	"schemapanel/internal/schema"
	"schemapanel/internal/table"
)

// ExportHandler: GET /api/:entity/export?window=..., CSV-вложение за окно времени.
func ExportHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		w, err := client.ParseTimeWindow(c.DefaultQuery("window", string(client.WindowToday)))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "windows": client.TimeWindows})
			return
		}
		t, err := p.Backend.BulkRead(c.Request.Context(), e.Name, w)
		if err != nil {
			respondErr(c, err)
			return
		}
		var buf bytes.Buffer
		if err := bulk.Export(&buf, t); err != nil {
			respondErr(c, err)
			return
		}
		name := bulk.ExportFilename(e.Name, time.Now())
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	}
}

// ImportHandler: POST /api/:entity/import/:op, multipart-поле file.
// Для update можно передать columns=a,b; по умолчанию применяются все колонки файла.
func ImportHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := p.entityOr404(c)
		if !ok {
			return
		}
		uid, ok := requireUser(c)
		if !ok {
			return
		}
		op := c.Param("op")
		switch op {
		case "create", "update", "delete":
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown import operation " + op})
			return
		}

		file, _, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart file not found (field name 'file')"})
			return
		}
		defer file.Close()

		t, err := bulk.Parse(file)
		if err != nil {
			respondErr(c, err)
			return
		}

		ctx := c.Request.Context()
		var resp client.Response
		switch op {
		case "create":
			if !e.Scopes.Create {
				respondErr(c, fmt.Errorf("create %s: %w", e.Name, errForbidden))
				return
			}
			if err := bulk.ValidateRows(p.Validator, e, t); err != nil {
				respondErr(c, err)
				return
			}
			payload, err := bulk.BuildCreate(t, uid)
			if err != nil {
				respondErr(c, err)
				return
			}
			resp, err = p.Backend.BulkCreate(ctx, e.Name, payload)
			if err != nil {
				respondErr(c, err)
				return
			}
		case "update":
			if len(e.UpdateFields()) == 0 {
				respondErr(c, fmt.Errorf("update %s: %w", e.Name, errForbidden))
				return
			}
			selected, err := importColumns(e, c.PostForm("columns"), t)
			if err != nil {
				respondErr(c, err)
				return
			}
			payload, err := bulk.BuildUpdate(e, t, uid, selected)
			if err != nil {
				respondErr(c, err)
				return
			}
			if err := bulk.ValidateRows(p.Validator, e, t, selected...); err != nil {
				respondErr(c, err)
				return
			}
			resp, err = p.Backend.BulkUpdate(ctx, e.Name, payload)
			if err != nil {
				respondErr(c, err)
				return
			}
		case "delete":
			if !e.Scopes.Delete {
				respondErr(c, fmt.Errorf("delete %s: %w", e.Name, errForbidden))
				return
			}
			payload, err := bulk.BuildDelete(t, uid)
			if err != nil {
				respondErr(c, err)
				return
			}
			resp, err = p.Backend.BulkDelete(ctx, e.Name, payload)
			if err != nil {
				respondErr(c, err)
				return
			}
		}
		p.Log.Info("import applied", zap.String("entity", e.Name), zap.String("op", op), zap.Int("rows", t.Len()))
		c.JSON(http.StatusOK, resp)
	}
}

// importColumns: явный список из формы или все подтверждаемые колонки файла.
func importColumns(e *schema.EntitySchema, raw string, t table.Table) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return bulk.ConfirmableColumns(e, t)
	}
	var cols []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols, nil
}
