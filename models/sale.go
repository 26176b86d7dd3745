package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmdatafocus/sales_backend/utils"
	"github.com/shopspring/decimal"
)

type Sale struct {
	ID         int          `gorm:"primary_key" json:"id"`
	SaleDate   time.Time    `gorm:"type:date;not null" json:"sale_date"`
	CustomerId int          `gorm:"index;not null" json:"customer_id"`
	Customer   *Customer    `gorm:"foreignKey:CustomerId;constraint:OnDelete:RESTRICT" json:"customer,omitempty"`
	Details    []SaleDetail `gorm:"foreignKey:SaleId;constraint:OnDelete:CASCADE" json:"details"`
	CreatedAt  time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// SaleDetail is one line item of a sale. UnitPrice is the price at the time of sale.
type SaleDetail struct {
	ID        int             `gorm:"primary_key" json:"id"`
	SaleId    int             `gorm:"index;not null" json:"sale_id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductId;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"unit_price"`
}

type NewSale struct {
	CustomerId int             `json:"customer_id" binding:"required"`
	Details    []NewSaleDetail `json:"details" binding:"dive"`
}

// NewSaleDetail without DetailId creates a line item; with DetailId it replaces that line item.
type NewSaleDetail struct {
	DetailId  *int             `json:"detail_id"`
	ProductId int              `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price" binding:"required"`
}

func (d SaleDetail) SubTotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

func (s Sale) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range s.Details {
		total = total.Add(d.SubTotal())
	}
	return total
}

// totals are derived, so they are only added on the way out
func (d SaleDetail) MarshalJSON() ([]byte, error) {
	type saleDetail SaleDetail
	return json.Marshal(struct {
		saleDetail
		SubTotal decimal.Decimal `json:"sub_total"`
	}{saleDetail(d), d.SubTotal()})
}

func (s Sale) MarshalJSON() ([]byte, error) {
	type sale Sale
	return json.Marshal(struct {
		sale
		Total decimal.Decimal `json:"total"`
	}{sale(s), s.Total()})
}

// Validate checks field rules. Creation needs at least one line item; an update may
// send none, which removes every line item of the sale.
func (input *NewSale) Validate(requireDetails bool) error {
	fields := utils.ValidateStruct(input)
	if requireDetails && len(input.Details) == 0 {
		if fields == nil {
			fields = make(map[string]string)
		}
		fields["details"] = "must have at least 1 item(s)"
	}
	seen := make(map[int]int)
	for i, d := range input.Details {
		if d.UnitPrice != nil && d.UnitPrice.IsNegative() {
			if fields == nil {
				fields = make(map[string]string)
			}
			fields[fmt.Sprintf("details[%d].unit_price", i)] = "must not be negative"
		}
		if d.DetailId == nil {
			continue
		}
		if first, ok := seen[*d.DetailId]; ok {
			if fields == nil {
				fields = make(map[string]string)
			}
			fields[fmt.Sprintf("details[%d].detail_id", i)] = fmt.Sprintf("duplicates details[%d].detail_id", first)
			continue
		}
		seen[*d.DetailId] = i
	}
	if fields != nil {
		return NewValidationError(fields)
	}
	return nil
}
