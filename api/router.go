package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/mmdatafocus/sales_backend/middlewares"
	"github.com/mmdatafocus/sales_backend/models"
)

// SaleService is the sale side of the API, implemented by workflow.SaleWorkflow.
type SaleService interface {
	CreateSale(ctx context.Context, input *models.NewSale) (*models.Sale, error)
	UpdateSale(ctx context.Context, id int, input *models.NewSale) (*models.Sale, error)
	DeleteSale(ctx context.Context, id int) error
	GetSale(ctx context.Context, id int) (*models.Sale, error)
	ListSales(ctx context.Context) ([]*models.Sale, error)
	ListSaleDetails(ctx context.Context, saleId int) ([]models.SaleDetail, error)
}

type Handler struct {
	sales SaleService
}

func NewHandler(sales SaleService) *Handler {
	return &Handler{sales: sales}
}

// RegisterRoutes mounts /api/v1. Login is public, every other route needs a token:
// catalog writes and product revisions need ADMIN, sales need USER.
func RegisterRoutes(r gin.IRouter, h *Handler) {
	// gin only decodes; inputs are validated by models with the shared validator
	binding.Validator = nil

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", h.login)

	authed := v1.Group("")
	authed.Use(middlewares.RequireAuth())
	admin := middlewares.RequireRole(models.RoleAdmin)
	user := middlewares.RequireRole(models.RoleUser)

	categories := authed.Group("/categories")
	categories.GET("", h.listCategories)
	categories.GET("/:id", h.getCategory)
	categories.POST("", admin, h.createCategory)
	categories.PUT("/:id", admin, h.updateCategory)
	categories.DELETE("/:id", admin, h.deleteCategory)

	customers := authed.Group("/customers")
	customers.GET("", h.listCustomers)
	customers.GET("/:id", h.getCustomer)
	customers.POST("", admin, h.createCustomer)
	customers.PUT("/:id", admin, h.updateCustomer)
	customers.DELETE("/:id", admin, h.deleteCustomer)

	products := authed.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.GET("/:id/revisions", admin, h.listProductRevisions)
	products.POST("", admin, h.createProduct)
	products.PUT("/:id", admin, h.updateProduct)
	products.DELETE("/:id", admin, h.deleteProduct)

	sales := authed.Group("/sales", user)
	sales.GET("", h.listSales)
	sales.GET("/export", h.exportSales)
	sales.GET("/:id", h.getSale)
	sales.POST("", h.createSale)
	sales.PUT("/:id", h.updateSale)
	sales.DELETE("/:id", h.deleteSale)

	authed.GET("/sale-details/:saleId", user, h.listSaleDetails)
}

func NotFoundHandler(c *gin.Context) {
	writeError(c, http.StatusNotFound, "route not found", nil)
}

// pathId parses a positive integer path parameter, answering 400 otherwise.
func pathId(c *gin.Context, name string) (int, bool) {
	raw := c.Param(name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest,
			"The parameter '"+name+"' with value '"+raw+"' is invalid. Expected type 'int'", nil)
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		writeError(c, http.StatusBadRequest, msgMalformedBody, nil)
		return false
	}
	return true
}
