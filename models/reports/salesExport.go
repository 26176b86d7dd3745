package reports

import (
	"fmt"
	"io"

	"github.com/mmdatafocus/sales_backend/models"
	"github.com/xuri/excelize/v2"
)

const (
	salesSheet   = "Sales"
	detailsSheet = "Details"

	XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteSalesWorkbook writes one row per sale on "Sales" and one row per line item on "Details".
func WriteSalesWorkbook(w io.Writer, sales []*models.Sale) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(detailsSheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(salesSheet, "A1", &[]interface{}{"SaleId", "SaleDate", "CustomerId", "CustomerName", "Items", "Total"}); err != nil {
		return err
	}
	if err := f.SetSheetRow(detailsSheet, "A1", &[]interface{}{"SaleId", "DetailId", "ProductId", "ProductName", "Quantity", "UnitPrice", "SubTotal"}); err != nil {
		return err
	}

	detailRow := 2
	for i, sale := range sales {
		customerName := ""
		if sale.Customer != nil {
			customerName = sale.Customer.Name + " " + sale.Customer.LastName
		}
		row := []interface{}{
			sale.ID,
			sale.SaleDate.Format("2006-01-02"),
			sale.CustomerId,
			customerName,
			len(sale.Details),
			sale.Total().InexactFloat64(),
		}
		if err := f.SetSheetRow(salesSheet, "A"+fmt.Sprint(i+2), &row); err != nil {
			return err
		}

		for _, d := range sale.Details {
			productName := ""
			if d.Product != nil {
				productName = d.Product.Name
			}
			row := []interface{}{
				sale.ID,
				d.ID,
				d.ProductId,
				productName,
				d.Quantity,
				d.UnitPrice.InexactFloat64(),
				d.SubTotal().InexactFloat64(),
			}
			if err := f.SetSheetRow(detailsSheet, "A"+fmt.Sprint(detailRow), &row); err != nil {
				return err
			}
			detailRow++
		}
	}

	return f.Write(w)
}
