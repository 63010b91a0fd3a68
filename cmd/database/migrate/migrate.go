package migration

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/mattleonard16/taxhelper-sub000/entities"
)

func Migrate(db *gorm.DB) error {
	db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")

	if err := db.AutoMigrate(&entities.ReceiptJob{}); err != nil {
		log.Fatalf("Error migrating receipt job table: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.FieldCorrection{}); err != nil {
		log.Fatalf("Error migrating field correction table: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Transaction{}); err != nil {
		log.Fatalf("Error migrating transaction table: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.InsightRun{}); err != nil {
		log.Fatalf("Error migrating insight run table: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Insight{}); err != nil {
		log.Fatalf("Error migrating insight table: %v", err)
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}
