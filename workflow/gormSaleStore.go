package workflow

import (
	"context"
	"errors"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSaleStore keeps sales in MySQL. Product rows are read with SELECT ... FOR UPDATE
// so concurrent sales on the same product serialize on the row lock.
// Reads outside a transaction load details only; customers and products are
// attached by the request's dataloaders.
type GormSaleStore struct {
	db *gorm.DB
}

// NewGormSaleStore with a nil db uses config.GetDB() on every call, so it can be
// built before the database is connected.
func NewGormSaleStore(db *gorm.DB) *GormSaleStore {
	return &GormSaleStore{db: db}
}

func (s *GormSaleStore) conn() *gorm.DB {
	if s.db != nil {
		return s.db
	}
	return config.GetDB()
}

func (s *GormSaleStore) Transaction(ctx context.Context, fn func(tx SaleTx) error) error {
	return s.conn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormSaleTx{db: tx})
	})
}

func orderDetails(db *gorm.DB) *gorm.DB {
	return db.Order("sale_details.id")
}

func (s *GormSaleStore) FindSaleById(ctx context.Context, id int) (*models.Sale, error) {
	var sale models.Sale
	err := s.conn().WithContext(ctx).
		Preload("Details", orderDetails).
		First(&sale, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError(models.KindSale, id)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *GormSaleStore) FindSales(ctx context.Context) ([]*models.Sale, error) {
	sales := make([]*models.Sale, 0)
	err := s.conn().WithContext(ctx).
		Preload("Details", orderDetails).
		Order("id").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *GormSaleStore) FindSaleDetails(ctx context.Context, saleId int) ([]models.SaleDetail, error) {
	db := s.conn().WithContext(ctx)
	var count int64
	if err := db.Model(&models.Sale{}).Where("id = ?", saleId).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, models.NewNotFoundError(models.KindSale, saleId)
	}

	details := make([]models.SaleDetail, 0)
	if err := db.Where("sale_id = ?", saleId).Order("id").Find(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

type gormSaleTx struct {
	db *gorm.DB
}

func (t *gormSaleTx) FindCustomerById(ctx context.Context, id int) (*models.Customer, error) {
	var customer models.Customer
	err := t.db.WithContext(ctx).First(&customer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError(models.KindCustomer, id)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// rows are locked in id order to keep lock acquisition consistent across transactions
func (t *gormSaleTx) FindProductsByIds(ctx context.Context, ids []int) ([]*models.Product, error) {
	products := make([]*models.Product, 0, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (t *gormSaleTx) FindProductForUpdate(ctx context.Context, id int) (*models.Product, error) {
	var product models.Product
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError(models.KindProduct, id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (t *gormSaleTx) UpdateProductStock(ctx context.Context, product *models.Product, stock int) error {
	db := t.db.WithContext(ctx)
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Update("stock", stock).Error; err != nil {
		return err
	}
	product.Stock = stock
	return models.RecordProductRevision(db, models.RevisionUpdate, product)
}

func (t *gormSaleTx) FindSaleById(ctx context.Context, id int) (*models.Sale, error) {
	var sale models.Sale
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Details", orderDetails).
		First(&sale, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError(models.KindSale, id)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (t *gormSaleTx) SaveSale(ctx context.Context, sale *models.Sale) error {
	db := t.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(sale).Error; err != nil {
		return err
	}

	keep := make([]int, 0, len(sale.Details))
	for i := range sale.Details {
		detail := &sale.Details[i]
		detail.SaleId = sale.ID
		if err := db.Omit(clause.Associations).Save(detail).Error; err != nil {
			return err
		}
		keep = append(keep, detail.ID)
	}

	// orphaned details
	orphans := db.Where("sale_id = ?", sale.ID)
	if len(keep) > 0 {
		orphans = orphans.Where("id NOT IN ?", keep)
	}
	return orphans.Delete(&models.SaleDetail{}).Error
}

func (t *gormSaleTx) DeleteSale(ctx context.Context, sale *models.Sale) error {
	db := t.db.WithContext(ctx)
	if err := db.Where("sale_id = ?", sale.ID).Delete(&models.SaleDetail{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.Sale{}, sale.ID).Error
}
