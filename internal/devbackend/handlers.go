package devbackend

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schemapanel/internal/bulk"
	"schemapanel/internal/client"
	"schemapanel/internal/filter"
	"schemapanel/internal/table"
)

func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"status": "error", "error": msg})
}

// failErr сводит ошибки хранилища к HTTP-кодам.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEntityNotFound), errors.Is(err, ErrRecordNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		fail(c, http.StatusBadRequest, err.Error())
	}
}

func tableJSON(c *gin.Context, t table.Table) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "columns": t.Columns, "data": t.Data()})
}

// fieldsOf приводит значения JSON-тела к строкам и вынимает user_id.
func fieldsOf(body map[string]any) (map[string]string, string) {
	out := make(map[string]string, len(body))
	userID := ""
	for k, v := range body {
		if k == "user_id" {
			userID = table.Stringify(v)
			continue
		}
		out[k] = table.Stringify(v)
	}
	return out, userID
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// ReadHandler: GET read/:entity[/:route[/:user]].
// Маршрут сужает выборку своим фильтром и, если привязан к пользователю, его записями.
// Колонки отдаются в порядке scopes.read.
func ReadHandler(storage *Storage, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := storage.entity(c.Param("entity"))
		if err != nil {
			failErr(c, err)
			return
		}
		t, err := storage.Table(e.Name, time.Time{})
		if err != nil {
			failErr(c, err)
			return
		}
		if key := c.Param("route"); key != "" {
			r, ok := e.Route(key)
			if !ok {
				fail(c, http.StatusNotFound, "read route not found: "+key)
				return
			}
			if r.BelongsToUserID {
				uid := c.Param("user")
				if uid == "" {
					fail(c, http.StatusBadRequest, "read route "+key+" requires a user id")
					return
				}
				t = t.WithRows(ownedBy(t, uid))
			}
			if r.Filter != "" {
				t = filter.Apply(t, r.Filter, log)
			}
		}
		var cols []string
		for _, f := range e.Scopes.Read {
			if t.Has(f) {
				cols = append(cols, f)
			}
		}
		if len(cols) > 0 {
			if t, err = t.Project(cols); err != nil {
				fail(c, http.StatusInternalServerError, err.Error())
				return
			}
		}
		tableJSON(c, t)
	}
}

func ownedBy(t table.Table, uid string) []table.Row {
	var rows []table.Row
	for i, row := range t.Rows {
		if v, _ := t.Cell(i, "user_id"); table.Stringify(v) == uid {
			rows = append(rows, row)
		}
	}
	return rows
}

// BulkReadHandler: GET bulk_read/:entity/:window, все колонки за окно по created_at.
func BulkReadHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		w, err := client.ParseTimeWindow(c.Param("window"))
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		t, err := storage.Table(c.Param("entity"), w.Since(storage.now()))
		if err != nil {
			failErr(c, err)
			return
		}
		tableJSON(c, t)
	}
}

func CreateHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "Invalid JSON")
			return
		}
		fields, userID := fieldsOf(body)
		id, err := storage.Create(c.Param("entity"), fields, userID)
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "Record created", "id": id})
	}
}

func UpdateHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "Invalid JSON")
			return
		}
		fields, userID := fieldsOf(body)
		if err := storage.Update(c.Param("entity"), id, fields, userID); err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Record updated", "id": id})
	}
}

// DeleteHandler: тело с user_id необязательно.
func DeleteHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var body map[string]any
		_ = c.ShouldBindJSON(&body)
		_, userID := fieldsOf(body)
		if err := storage.Delete(c.Param("entity"), id, userID); err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Record deleted", "id": id})
	}
}

func BulkCreateHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p bulk.CreatePayload
		if err := c.ShouldBindJSON(&p); err != nil {
			fail(c, http.StatusBadRequest, "Invalid JSON")
			return
		}
		n, err := storage.BulkCreate(c.Param("entity"), p.Columns, p.Data, p.UserID)
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": strconv.Itoa(n) + " rows created", "count": n})
	}
}

func BulkUpdateHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p bulk.UpdatePayload
		if err := c.ShouldBindJSON(&p); err != nil {
			fail(c, http.StatusBadRequest, "Invalid JSON")
			return
		}
		n, err := storage.BulkUpdate(c.Param("entity"), p.Columns, p.Data, p.UserID)
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": strconv.Itoa(n) + " rows updated", "count": n})
	}
}

func BulkDeleteHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p bulk.DeletePayload
		if err := c.ShouldBindJSON(&p); err != nil {
			fail(c, http.StatusBadRequest, "Invalid JSON")
			return
		}
		ids := make([]int64, len(p.IDs))
		for i, id := range p.IDs {
			ids[i] = int64(id)
		}
		n, err := storage.BulkDelete(c.Param("entity"), ids, p.UserID)
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": strconv.Itoa(n) + " rows deleted", "count": n})
	}
}

// QueryHandler понимает тот же язык, что и клиентский фильтр.
func QueryHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Query string `json:"query_string"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "Invalid JSON")
			return
		}
		q, err := filter.Parse(body.Query)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		t, err := storage.Table(c.Param("entity"), time.Time{})
		if err != nil {
			failErr(c, err)
			return
		}
		tableJSON(c, q.Apply(t))
	}
}

// SearchHandler ищет подстроку без учёта регистра в любой ячейке.
func SearchHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Search string `json:"search_string"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "Invalid JSON")
			return
		}
		t, err := storage.Table(c.Param("entity"), time.Time{})
		if err != nil {
			failErr(c, err)
			return
		}
		needle := strings.ToLower(strings.TrimSpace(body.Search))
		var rows []table.Row
		for _, row := range t.Rows {
			for _, v := range row {
				if strings.Contains(strings.ToLower(table.Stringify(v)), needle) {
					rows = append(rows, row)
					break
				}
			}
		}
		tableJSON(c, t.WithRows(rows))
	}
}

// AuthenticateHandler отвечает 200 и в случае неверного пароля: статус несёт поле status.
func AuthenticateHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "Invalid JSON")
			return
		}
		u, ok := storage.Authenticate(body.Username, body.Password)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"status": "error", "message": "Invalid username or password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Authentication successful", "user": u})
	}
}

func LogsHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		ops, err := storage.Logs(c.Param("entity"))
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": ops})
	}
}
