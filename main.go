package main

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/mattleonard16/taxhelper-sub000/cmd/config"
	migration "github.com/mattleonard16/taxhelper-sub000/cmd/database/migrate"
	"github.com/mattleonard16/taxhelper-sub000/internal/utils"
)

func main() {
	utils.LoadConfig()

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := migration.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	app, err := config.NewApp(db)
	if err != nil {
		log.Fatalf("failed to build app: %v", err)
	}

	port := utils.GetConfig("PORT")
	if port == "" {
		port = "8080"
	}
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
