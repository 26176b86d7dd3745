package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/middlewares"
	"github.com/mmdatafocus/sales_backend/models"
	"github.com/mmdatafocus/sales_backend/utils"
)

const (
	msgMalformedBody = "The request body is malformed or contains invalid data types. Please check the JSON format."
	msgDataConflict  = "The operation could not be completed due to a data conflict. This may be because a referenced item does not exist."
	msgInternal      = "An unexpected internal server error occurred"
	msgLocked        = "The sale is being modified by another request. Please retry."
)

// respondError maps domain errors onto status codes; anything unknown is a 500
// with a generic message and the cause goes to the log.
func respondError(c *gin.Context, err error) {
	var (
		notFound   *models.NotFoundError
		stock      *models.InsufficientStockError
		validation *models.ValidationError
		duplicate  *models.DuplicateError
		inUse      *models.InUseError
	)

	switch {
	case errors.As(err, &notFound):
		writeError(c, http.StatusNotFound, err.Error(), nil)
	case errors.As(err, &stock):
		writeError(c, http.StatusConflict, err.Error(), map[string]int{
			"productId":       stock.ProductId,
			"requestQuantity": stock.RequestedReduction,
			"availableStock":  stock.AvailableStock,
		})
	case errors.As(err, &validation):
		writeError(c, http.StatusBadRequest, validation.Message, validation.Fields)
	case errors.As(err, &duplicate):
		writeError(c, http.StatusConflict, err.Error(), nil)
	case errors.As(err, &inUse):
		writeError(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, models.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, "Invalid username or password.", nil)
	case errors.Is(err, utils.ErrLockNotObtained):
		writeError(c, http.StatusConflict, msgLocked, nil)
	case models.IsForeignKeyError(err):
		writeError(c, http.StatusConflict, msgDataConflict, nil)
	default:
		_ = c.Error(err)
		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(config.GetLogger(), "api", c.FullPath(), c.Request.Method, correlationId, err)
		writeError(c, http.StatusInternalServerError, msgInternal, nil)
	}
}

func writeError(c *gin.Context, status int, message string, details any) {
	c.AbortWithStatusJSON(status, middlewares.NewErrorResponse(status, message, details))
}
