package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/sales_backend/models"
	"github.com/mmdatafocus/sales_backend/models/reports"
)

func (h *Handler) listSales(c *gin.Context) {
	ctx := c.Request.Context()
	sales, err := h.sales.ListSales(ctx)
	if err == nil {
		err = attachSaleRelations(ctx, sales...)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *Handler) getSale(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sale, err := h.sales.GetSale(ctx, id)
	if err == nil {
		err = attachSaleRelations(ctx, sale)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *Handler) createSale(c *gin.Context) {
	var input models.NewSale
	if !bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	sale, err := h.sales.CreateSale(ctx, &input)
	if err == nil {
		err = attachSaleRelations(ctx, sale)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func (h *Handler) updateSale(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var input models.NewSale
	if !bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	sale, err := h.sales.UpdateSale(ctx, id, &input)
	if err == nil {
		err = attachSaleRelations(ctx, sale)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *Handler) deleteSale(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	if err := h.sales.DeleteSale(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listSaleDetails(c *gin.Context) {
	saleId, ok := pathId(c, "saleId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	details, err := h.sales.ListSaleDetails(ctx, saleId)
	if err == nil {
		err = attachDetailProducts(ctx, details)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) exportSales(c *gin.Context) {
	ctx := c.Request.Context()
	sales, err := h.sales.ListSales(ctx)
	if err == nil {
		err = attachSaleRelations(ctx, sales...)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	filename := "sales-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Type", reports.XlsxContentType)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)
	if err := reports.WriteSalesWorkbook(c.Writer, sales); err != nil {
		_ = c.Error(err)
	}
}
