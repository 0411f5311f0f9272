package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"schemapanel/internal/bulk"
	"schemapanel/internal/client"
	"schemapanel/internal/filter"
	"schemapanel/internal/form"
	"schemapanel/internal/schema"
	"schemapanel/internal/validate"
)

var errForbidden = errors.New("operation is not allowed by the entity schema")

// respondErr переводит ошибки ядра в HTTP-ответы.
func respondErr(c *gin.Context, err error) {
	var (
		verr   *validate.ValidationError
		rows   *bulk.RowsError
		fperr  *filter.ParseError
		bperr  *bulk.ParseError
		status *client.ServerStatusError
		neterr *client.NetworkError
	)
	switch {
	case errors.Is(err, schema.ErrSchemaNotFound):
		// экран показывает заглушку загрузки, пока схема не появилась
		c.JSON(http.StatusNotFound, gin.H{"loading": true, "error": err.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "errors": verr.Errors})
	case errors.As(err, &rows):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "rows": rows.Rows})
	case errors.As(err, &fperr), errors.As(err, &bperr),
		errors.Is(err, bulk.ErrEmptyFile), errors.Is(err, bulk.ErrNoRows),
		errors.Is(err, bulk.ErrUnknownColumns), errors.Is(err, bulk.ErrNoIDColumn),
		errors.Is(err, bulk.ErrNoValidIDs), errors.Is(err, bulk.ErrNoColumns),
		errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrReadOnly):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, bulk.ErrNoUser), errors.Is(err, form.ErrNoUser):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, errForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &status):
		c.JSON(http.StatusConflict, gin.H{"error": status.Message, "status": status.Status})
	case errors.Is(err, form.ErrSubmitInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &neterr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "upstream_status": neterr.StatusCode})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
