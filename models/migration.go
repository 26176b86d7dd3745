package models

import (
	"log"

	"github.com/mmdatafocus/sales_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Category{},
		&Customer{},
		&Product{}, &ProductRevision{},
		&Sale{}, &SaleDetail{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
