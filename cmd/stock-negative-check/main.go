package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/models"
)

// stock-negative-check audits product stock. Without -product-id it lists every product
// whose stock is below zero and exits with status 3 when it finds any. With -product-id it
// prints that product's revision trail with the stock change of each revision so you can
// see exactly which change moved the stock.
//
// Example:
//
//	go run ./cmd/stock-negative-check/
//	go run ./cmd/stock-negative-check/ -product-id=137 -limit=50
func main() {
	productID := flag.Int("product-id", 0, "Optional: product id whose revision trail is printed")
	limit := flag.Int("limit", 500, "Max rows to print (0 = no limit)")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	ctx := context.Background()

	if *productID > 0 {
		revisions, err := models.GetProductRevisions(ctx, *productID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load revisions: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("product_id=%d revisions=%d\n", *productID, len(revisions))
		fmt.Printf("%-8s %-20s %-7s %-20s %8s %8s\n", "rev_id", "date", "type", "username", "stock", "change")
		prev := 0
		for i, r := range revisions {
			if *limit > 0 && i >= *limit {
				fmt.Printf("... truncated at %d rows\n", *limit)
				break
			}
			change := r.Stock - prev
			if r.RevisionType == models.RevisionDelete {
				change = 0
			}
			flagNeg := ""
			if r.Stock < 0 {
				flagNeg = "  <-- NEGATIVE"
			}
			fmt.Printf("%-8d %-20s %-7s %-20s %8d %+8d%s\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.RevisionType, r.Username, r.Stock, change, flagNeg)
			prev = r.Stock
		}
		return
	}

	query := db.WithContext(ctx).Where("stock < 0").Order("id")
	if *limit > 0 {
		query = query.Limit(*limit)
	}
	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to scan products: %v\n", err)
		os.Exit(1)
	}
	if len(products) == 0 {
		fmt.Println("ok: no product has negative stock")
		return
	}
	fmt.Printf("%d product(s) with negative stock:\n", len(products))
	for _, p := range products {
		fmt.Printf("  id=%d name=%q stock=%d\n", p.ID, p.Name, p.Stock)
	}
	os.Exit(3)
}
