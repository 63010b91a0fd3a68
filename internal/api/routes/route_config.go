package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mattleonard16/taxhelper-sub000/internal/api/handlers"
	"github.com/mattleonard16/taxhelper-sub000/internal/middleware"
	"github.com/mattleonard16/taxhelper-sub000/pkg/jwt"
)

type Config struct {
	App                *fiber.App
	ReceiptJobHandler  handlers.ReceiptJobHandler
	TransactionHandler handlers.TransactionHandler
	InsightHandler     handlers.InsightHandler
	Middleware         middleware.Middleware
	JWTService         jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.ReceiptJobs()
	c.Transactions()
	c.Insights()
	c.GuestRoute()
}

func (c *Config) ReceiptJobs() {
	jobs := c.App.Group("/api/v1/receipt-jobs", c.Middleware.AuthMiddleware(c.JWTService))
	{
		jobs.Post("", c.ReceiptJobHandler.UploadReceipt)
		jobs.Get("", c.ReceiptJobHandler.GetJobs)
		jobs.Post("/process", c.ReceiptJobHandler.ProcessJobs)
		jobs.Get("/:id", c.ReceiptJobHandler.GetJobDetails)
		jobs.Patch("/:id", c.ReceiptJobHandler.PatchJob)
		jobs.Post("/:id/confirm", c.ReceiptJobHandler.ConfirmJob)
		jobs.Post("/:id/retry", c.ReceiptJobHandler.RetryJob)
		jobs.Delete("/:id", c.ReceiptJobHandler.DiscardJob)
	}
}

func (c *Config) Transactions() {
	transactions := c.App.Group("/api/v1/transactions", c.Middleware.AuthMiddleware(c.JWTService))
	{
		transactions.Post("", c.TransactionHandler.AddTransaction)
		transactions.Get("", c.TransactionHandler.GetTransactions)
		transactions.Get("/tax-stats", c.TransactionHandler.GetTaxStats)
		transactions.Patch("/:id", c.TransactionHandler.UpdateTransaction)
		transactions.Delete("/:id", c.TransactionHandler.DeleteTransaction)
	}
}

func (c *Config) Insights() {
	insights := c.App.Group("/api/v1/insights", c.Middleware.AuthMiddleware(c.JWTService))
	{
		insights.Get("", c.InsightHandler.GetInsights)
		insights.Post("/digest", c.InsightHandler.SendDigest)
		insights.Patch("/:id", c.InsightHandler.PatchInsight)
	}
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}
