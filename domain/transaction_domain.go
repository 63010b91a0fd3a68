package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessAddTransaction    = "transaction added successfully"
	MessageSuccessUpdateTransaction = "transaction updated successfully"
	MessageSuccessDeleteTransaction = "transaction deleted successfully"
	MessageSuccessGetTransactions   = "transactions retrieved successfully"
	MessageSuccessGetTaxStats       = "tax statistics retrieved successfully"

	MessageFailedAddTransaction    = "failed to add transaction"
	MessageFailedUpdateTransaction = "failed to update transaction"
	MessageFailedDeleteTransaction = "failed to delete transaction"
	MessageFailedGetTransactions   = "failed to retrieve transactions"
	MessageFailedGetTaxStats       = "failed to retrieve tax statistics"

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidAmount       = errors.New("amount must be a non-negative number")
	ErrInvalidDate         = errors.New("invalid date")
)

type (
	AddTransactionRequest struct {
		Merchant     string  `json:"merchant" validate:"required"`
		Description  string  `json:"description"`
		Date         string  `json:"date" validate:"required"`
		TotalAmount  float64 `json:"total_amount" validate:"min=0"`
		TaxAmount    float64 `json:"tax_amount" validate:"min=0"`
		Category     string  `json:"category"`
		IsDeductible bool    `json:"is_deductible"`
	}

	UpdateTransactionRequest struct {
		Merchant     *string  `json:"merchant" validate:"omitempty,min=1"`
		Description  *string  `json:"description"`
		Date         *string  `json:"date"`
		TotalAmount  *float64 `json:"total_amount"`
		TaxAmount    *float64 `json:"tax_amount"`
		Category     *string  `json:"category"`
		IsDeductible *bool    `json:"is_deductible"`
	}

	TransactionResponse struct {
		ID           string    `json:"id"`
		Merchant     string    `json:"merchant"`
		Description  string    `json:"description,omitempty"`
		Date         time.Time `json:"date"`
		TotalAmount  float64   `json:"total_amount"`
		TaxAmount    float64   `json:"tax_amount"`
		Category     string    `json:"category,omitempty"`
		IsDeductible bool      `json:"is_deductible"`
		ReceiptJobID *string   `json:"receipt_job_id,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
	}

	TaxStatsResponse struct {
		TotalSpent        float64            `json:"total_spent"`
		TotalTax          float64            `json:"total_tax"`
		DeductibleTotal   float64            `json:"deductible_total"`
		DeductibleByGroup map[string]float64 `json:"deductible_by_category"`
		TransactionCount  int64              `json:"transaction_count"`
	}
)
