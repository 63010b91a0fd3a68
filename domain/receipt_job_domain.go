package domain

import (
	"errors"
	"mime/multipart"
	"time"
)

var (
	MessageSuccessUploadReceipt = "receipt uploaded successfully"
	MessageSuccessQueueReceipt  = "receipt queued for processing"
	MessageSuccessGetJobs       = "receipt jobs retrieved successfully"
	MessageSuccessGetJob        = "receipt job retrieved successfully"
	MessageSuccessPatchJob      = "receipt job updated successfully"
	MessageSuccessConfirmJob    = "receipt job confirmed successfully"
	MessageSuccessRetryJob      = "receipt job requeued for processing"
	MessageSuccessDiscardJob    = "receipt job discarded"
	MessageSuccessProcessJobs   = "queued receipt jobs processed"

	MessageFailedUploadReceipt = "failed to upload receipt"
	MessageFailedGetJobs       = "failed to retrieve receipt jobs"
	MessageFailedPatchJob      = "failed to update receipt job"
	MessageFailedConfirmJob    = "failed to confirm receipt job"
	MessageFailedRetryJob      = "failed to retry receipt job"
	MessageFailedDiscardJob    = "failed to discard receipt job"
	MessageFailedProcessJobs   = "failed to process queued receipt jobs"

	ErrJobNotFound      = errors.New("receipt job not found")
	ErrInvalidJobStatus = errors.New("operation not allowed in current job status")
	ErrConfirmConflict  = errors.New("job was claimed by a concurrent confirmation with no transaction recorded")
)

type (
	ReceiptItem struct {
		Name     string  `json:"name"`
		Amount   float64 `json:"amount"`
		Quantity int     `json:"quantity,omitempty"`
	}

	UploadReceiptRequest struct {
		File            *multipart.FileHeader `json:"file" form:"file" validate:"required"`
		OCRText         string                `json:"ocr_text" form:"ocr_text"`
		OCRConfidence   *float64              `json:"ocr_confidence" form:"ocr_confidence" validate:"omitempty,min=0,max=1"`
		TransactionType string                `json:"transaction_type" form:"transaction_type"`
	}

	// Sync mode carries the extraction inline; async mode carries the job
	// id plus a poll URL instead.
	UploadReceiptResponse struct {
		JobID     string              `json:"job_id"`
		Status    string              `json:"status"`
		PollURL   string              `json:"poll_url,omitempty"`
		Extracted *ReceiptJobResponse `json:"extracted,omitempty"`
	}

	PatchJobRequest struct {
		Merchant     *string  `json:"merchant" validate:"omitempty,min=1"`
		Date         *string  `json:"date"`
		TotalAmount  *float64 `json:"total_amount"`
		TaxAmount    *float64 `json:"tax_amount"`
		Category     *string  `json:"category"`
		IsDeductible *bool    `json:"is_deductible"`
	}

	ConfirmJobResponse struct {
		TransactionID string `json:"transaction_id"`
	}

	ReceiptJobResponse struct {
		ID                   string        `json:"id"`
		Status               string        `json:"status"`
		OriginalName         string        `json:"original_name"`
		MimeType             string        `json:"mime_type"`
		FileSize             int64         `json:"file_size"`
		Merchant             *string       `json:"merchant,omitempty"`
		Date                 *time.Time    `json:"date,omitempty"`
		TotalAmount          *float64      `json:"total_amount,omitempty"`
		TaxAmount            *float64      `json:"tax_amount,omitempty"`
		Items                []ReceiptItem `json:"items,omitempty"`
		Currency             *string       `json:"currency,omitempty"`
		Category             *string       `json:"category,omitempty"`
		CategoryCode         *string       `json:"category_code,omitempty"`
		IsDeductible         *bool         `json:"is_deductible,omitempty"`
		ExtractionConfidence *float64      `json:"extraction_confidence,omitempty"`
		TransactionID        *string       `json:"transaction_id,omitempty"`
		Attempts             int           `json:"attempts"`
		MaxAttempts          int           `json:"max_attempts"`
		LastError            *string       `json:"last_error,omitempty"`
		CreatedAt            time.Time     `json:"created_at"`
		UpdatedAt            time.Time     `json:"updated_at"`
	}

	CorrectionResponse struct {
		FieldName      string    `json:"field_name"`
		OriginalValue  string    `json:"original_value"`
		CorrectedValue string    `json:"corrected_value"`
		CreatedAt      time.Time `json:"created_at"`
	}

	JobProcessResult struct {
		JobID   string `json:"job_id"`
		Status  string `json:"status"`
		Error   string `json:"error,omitempty"`
		Success bool   `json:"success"`
	}

	ProcessJobsResponse struct {
		Processed int                `json:"processed"`
		Succeeded int                `json:"succeeded"`
		Failed    int                `json:"failed"`
		Requeued  int                `json:"requeued"`
		Results   []JobProcessResult `json:"results"`
	}
)
