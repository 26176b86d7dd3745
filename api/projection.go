package api

import (
	"context"
	"errors"

	"github.com/mmdatafocus/sales_backend/middlewares"
	"github.com/mmdatafocus/sales_backend/models"
	"github.com/mmdatafocus/sales_backend/utils"
)

// attachSaleRelations fills missing customers and products through the request's
// dataloaders, one batch per kind for all sales.
func attachSaleRelations(ctx context.Context, sales ...*models.Sale) error {
	customerIds := make([]int, 0, len(sales))
	for _, sale := range sales {
		if sale.Customer == nil {
			customerIds = append(customerIds, sale.CustomerId)
		}
	}
	customers, err := loadCustomers(ctx, utils.UniqueSlice(customerIds))
	if err != nil {
		return err
	}

	details := make([]*models.SaleDetail, 0)
	for _, sale := range sales {
		if c, ok := customers[sale.CustomerId]; ok && sale.Customer == nil {
			sale.Customer = c
		}
		for i := range sale.Details {
			details = append(details, &sale.Details[i])
		}
	}
	return attachProducts(ctx, details)
}

func attachDetailProducts(ctx context.Context, details []models.SaleDetail) error {
	ptrs := make([]*models.SaleDetail, len(details))
	for i := range details {
		ptrs[i] = &details[i]
	}
	return attachProducts(ctx, ptrs)
}

func attachProducts(ctx context.Context, details []*models.SaleDetail) error {
	productIds := make([]int, 0, len(details))
	for _, d := range details {
		if d.Product == nil {
			productIds = append(productIds, d.ProductId)
		}
	}
	if len(productIds) == 0 {
		return nil
	}
	products, errs := middlewares.GetProducts(ctx, utils.UniqueSlice(productIds))
	byId, err := collect(products, errs)
	if err != nil {
		return err
	}
	for _, d := range details {
		if p, ok := byId[d.ProductId]; ok && d.Product == nil {
			d.Product = p
		}
	}
	return nil
}

func loadCustomers(ctx context.Context, ids []int) (map[int]*models.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	customers, errs := middlewares.GetCustomers(ctx, ids)
	return collect(customers, errs)
}

// missing rows are skipped, any other loader error is returned
func collect[T models.Identifier](results []*T, errs []error) (map[int]*T, error) {
	for _, err := range errs {
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}
	byId := make(map[int]*T, len(results))
	for _, r := range results {
		if r != nil {
			byId[(*r).GetId()] = r
		}
	}
	return byId, nil
}
