package receiptjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattleonard16/taxhelper-sub000/domain"
	"github.com/mattleonard16/taxhelper-sub000/entities"
)

// Config carries the deployment-tunable policy constants. Zero values fall
// back to the documented defaults.
type Config struct {
	ConfidenceThreshold   float64       // default 0.7
	StaleProcessingWindow time.Duration // default 15m
	StaleConfirmedWindow  time.Duration // default 5m
	DefaultBatchSize      int           // default 10
	MaxAttempts           int           // default 3
}

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.StaleProcessingWindow <= 0 {
		c.StaleProcessingWindow = 15 * time.Minute
	}
	if c.StaleConfirmedWindow <= 0 {
		c.StaleConfirmedWindow = 5 * time.Minute
	}
	if c.DefaultBatchSize <= 0 {
		c.DefaultBatchSize = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return c
}

// FileStore is the blob storage boundary. GetFile returns (nil, nil) when
// the object does not exist.
type FileStore interface {
	StoreFile(ctx context.Context, path string, data []byte, contentType string) error
	GetFile(ctx context.Context, path string) ([]byte, error)
}

type (
	Service interface {
		UploadReceipt(ctx context.Context, req domain.UploadReceiptRequest, userID string, async bool) (domain.UploadReceiptResponse, error)
		GetJobs(ctx context.Context, userID, status, cursor string, limit int) ([]domain.ReceiptJobResponse, string, error)
		GetJobByID(ctx context.Context, id, userID string) (domain.ReceiptJobResponse, []domain.CorrectionResponse, error)
		PatchJob(ctx context.Context, id string, req domain.PatchJobRequest, userID string) (domain.ReceiptJobResponse, error)
		ConfirmJob(ctx context.Context, id, userID string) (domain.ConfirmJobResponse, error)
		RetryJob(ctx context.Context, id, userID string) error
		DiscardJob(ctx context.Context, id, userID string) error
	}

	receiptJobService struct {
		repo   Repository
		store  FileStore
		worker *Worker
		cfg    Config
	}
)

func NewService(repo Repository, store FileStore, worker *Worker, cfg Config) Service {
	return &receiptJobService{
		repo:   repo,
		store:  store,
		worker: worker,
		cfg:    cfg.withDefaults(),
	}
}

func (s *receiptJobService) UploadReceipt(ctx context.Context, req domain.UploadReceiptRequest, userID string, async bool) (domain.UploadReceiptResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.UploadReceiptResponse{}, domain.ErrParseUUID
	}

	file, err := req.File.Open()
	if err != nil {
		return domain.UploadReceiptResponse{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.UploadReceiptResponse{}, err
	}

	mimeType := req.File.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mimeFromExt(req.File.Filename)
	}

	jobID := uuid.New()
	storagePath := fmt.Sprintf("receipts/%s/%s%s", userUUID, jobID, strings.ToLower(filepath.Ext(req.File.Filename)))

	job := &entities.ReceiptJob{
		ID:           jobID,
		UserID:       userUUID,
		Status:       entities.JobStatusQueued,
		OriginalName: req.File.Filename,
		MimeType:     mimeType,
		FileSize:     req.File.Size,
		StoragePath:  storagePath,
		MaxAttempts:  s.cfg.MaxAttempts,
	}
	if req.OCRText != "" {
		job.OCRText = &req.OCRText
		job.OCRConfidence = req.OCRConfidence
	}

	if err := s.store.StoreFile(ctx, storagePath, data, mimeType); err != nil {
		return domain.UploadReceiptResponse{}, err
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return domain.UploadReceiptResponse{}, err
	}

	if async {
		return domain.UploadReceiptResponse{
			JobID:   jobID.String(),
			Status:  string(entities.JobStatusQueued),
			PollURL: fmt.Sprintf("/api/v1/receipt-jobs/%s", jobID),
		}, nil
	}

	// Sync mode runs the job through the same pipeline inline.
	s.worker.ProcessOne(ctx, job)
	fresh, err := s.repo.GetForUser(ctx, jobID, userUUID)
	if err != nil {
		return domain.UploadReceiptResponse{}, err
	}
	resp := toJobResponse(fresh)
	return domain.UploadReceiptResponse{
		JobID:     jobID.String(),
		Status:    string(fresh.Status),
		Extracted: &resp,
	}, nil
}

func (s *receiptJobService) GetJobs(ctx context.Context, userID, status, cursor string, limit int) ([]domain.ReceiptJobResponse, string, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, "", domain.ErrParseUUID
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var before *time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, "", domain.NewValidationError("cursor")
		}
		before = &t
	}

	jobs, err := s.repo.List(ctx, userUUID, status, before, limit)
	if err != nil {
		return nil, "", err
	}

	responses := make([]domain.ReceiptJobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, toJobResponse(job))
	}

	next := ""
	if len(jobs) == limit {
		next = jobs[len(jobs)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return responses, next, nil
}

func (s *receiptJobService) GetJobByID(ctx context.Context, id, userID string) (domain.ReceiptJobResponse, []domain.CorrectionResponse, error) {
	job, err := s.fetch(ctx, id, userID)
	if err != nil {
		return domain.ReceiptJobResponse{}, nil, err
	}

	corrections, err := s.repo.ListCorrections(ctx, job.ID)
	if err != nil {
		return domain.ReceiptJobResponse{}, nil, err
	}

	correctionResponses := make([]domain.CorrectionResponse, 0, len(corrections))
	for _, c := range corrections {
		correctionResponses = append(correctionResponses, domain.CorrectionResponse{
			FieldName:      c.FieldName,
			OriginalValue:  c.OriginalValue,
			CorrectedValue: c.CorrectedValue,
			CreatedAt:      c.CreatedAt,
		})
	}
	return toJobResponse(job), correctionResponses, nil
}

// PatchJob applies user edits to extracted fields, recording one correction
// row per changed field in the same transaction as the update.
func (s *receiptJobService) PatchJob(ctx context.Context, id string, req domain.PatchJobRequest, userID string) (domain.ReceiptJobResponse, error) {
	job, err := s.fetch(ctx, id, userID)
	if err != nil {
		return domain.ReceiptJobResponse{}, err
	}
	if !editable(job.Status) {
		return domain.ReceiptJobResponse{}, domain.ErrInvalidJobStatus
	}

	var invalid []string
	if req.TotalAmount != nil && !validAmount(*req.TotalAmount) {
		invalid = append(invalid, "totalAmount")
	}
	if req.TaxAmount != nil && !validAmount(*req.TaxAmount) {
		invalid = append(invalid, "taxAmount")
	}
	var parsedDate *time.Time
	if req.Date != nil {
		d, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			invalid = append(invalid, "date")
		} else {
			parsedDate = &d
		}
	}
	if len(invalid) > 0 {
		return domain.ReceiptJobResponse{}, domain.NewValidationError(invalid...)
	}

	var corrections []*entities.FieldCorrection
	record := func(field, original, corrected string) {
		if original == corrected {
			return
		}
		corrections = append(corrections, &entities.FieldCorrection{
			ID:             uuid.New(),
			JobID:          job.ID,
			UserID:         job.UserID,
			FieldName:      field,
			OriginalValue:  original,
			CorrectedValue: corrected,
		})
	}

	if req.Merchant != nil {
		record("merchant", strValue(job.Merchant), *req.Merchant)
		job.Merchant = req.Merchant
	}
	if parsedDate != nil {
		record("date", dateValue(job.Date), parsedDate.Format("2006-01-02"))
		job.Date = parsedDate
	}
	if req.TotalAmount != nil {
		record("totalAmount", floatValue(job.TotalAmount), fmt.Sprintf("%.2f", *req.TotalAmount))
		job.TotalAmount = req.TotalAmount
	}
	if req.TaxAmount != nil {
		record("taxAmount", floatValue(job.TaxAmount), fmt.Sprintf("%.2f", *req.TaxAmount))
		job.TaxAmount = req.TaxAmount
	}
	if req.Category != nil {
		record("category", strValue(job.Category), *req.Category)
		job.Category = req.Category
	}
	if req.IsDeductible != nil {
		record("isDeductible", boolValue(job.IsDeductible), fmt.Sprintf("%t", *req.IsDeductible))
		job.IsDeductible = req.IsDeductible
	}

	if err := s.repo.PatchFields(ctx, job, corrections); err != nil {
		if errors.Is(err, ErrEditConflict) {
			return domain.ReceiptJobResponse{}, domain.ErrInvalidJobStatus
		}
		return domain.ReceiptJobResponse{}, err
	}
	return toJobResponse(job), nil
}

// ConfirmJob turns a reviewed job into a Transaction exactly once, no
// matter how many callers race on it.
func (s *receiptJobService) ConfirmJob(ctx context.Context, id, userID string) (domain.ConfirmJobResponse, error) {
	job, err := s.fetch(ctx, id, userID)
	if err != nil {
		return domain.ConfirmJobResponse{}, err
	}

	// Idempotent fast path for client retries.
	if job.Status == entities.JobStatusConfirmed && job.TransactionID != nil {
		return domain.ConfirmJobResponse{TransactionID: job.TransactionID.String()}, nil
	}
	if !editable(job.Status) {
		return domain.ConfirmJobResponse{}, domain.ErrInvalidJobStatus
	}

	var missing []string
	if job.Merchant == nil || *job.Merchant == "" {
		missing = append(missing, "merchant")
	}
	if job.TotalAmount == nil {
		missing = append(missing, "totalAmount")
	}
	if job.Date == nil {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return domain.ConfirmJobResponse{}, domain.NewValidationError(missing...)
	}

	transactionID, err := s.repo.ConfirmAndLink(ctx, job.ID, job.UserID)
	if err == nil {
		return domain.ConfirmJobResponse{TransactionID: transactionID.String()}, nil
	}
	if !errors.Is(err, ErrClaimLost) {
		return domain.ConfirmJobResponse{}, err
	}

	// Lost the race: if the winner finished, its transaction id is the
	// correct answer for this caller too.
	fresh, ferr := s.fetch(ctx, id, userID)
	if ferr != nil {
		return domain.ConfirmJobResponse{}, ferr
	}
	if fresh.TransactionID != nil {
		return domain.ConfirmJobResponse{TransactionID: fresh.TransactionID.String()}, nil
	}
	if fresh.Status == entities.JobStatusConfirmed {
		return domain.ConfirmJobResponse{}, domain.ErrConfirmConflict
	}
	return domain.ConfirmJobResponse{}, domain.ErrInvalidJobStatus
}

func (s *receiptJobService) RetryJob(ctx context.Context, id, userID string) error {
	job, err := s.fetch(ctx, id, userID)
	if err != nil {
		return err
	}
	if job.Status != entities.JobStatusFailed {
		return domain.ErrInvalidJobStatus
	}
	return s.repo.ResetForRetry(ctx, job.ID)
}

func (s *receiptJobService) DiscardJob(ctx context.Context, id, userID string) error {
	job, err := s.fetch(ctx, id, userID)
	if err != nil {
		return err
	}
	if job.Status == entities.JobStatusConfirmed {
		return domain.ErrInvalidJobStatus
	}
	return s.repo.Discard(ctx, job.ID)
}

func (s *receiptJobService) fetch(ctx context.Context, id, userID string) (*entities.ReceiptJob, error) {
	jobUUID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrJobNotFound
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}
	job, err := s.repo.GetForUser(ctx, jobUUID, userUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func strValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func floatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func dateValue(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02")
}

func boolValue(v *bool) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%t", *v)
}

func mimeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func toJobResponse(job *entities.ReceiptJob) domain.ReceiptJobResponse {
	resp := domain.ReceiptJobResponse{
		ID:                   job.ID.String(),
		Status:               string(job.Status),
		OriginalName:         job.OriginalName,
		MimeType:             job.MimeType,
		FileSize:             job.FileSize,
		Merchant:             job.Merchant,
		Date:                 job.Date,
		TotalAmount:          job.TotalAmount,
		TaxAmount:            job.TaxAmount,
		Currency:             job.Currency,
		Category:             job.Category,
		CategoryCode:         job.CategoryCode,
		IsDeductible:         job.IsDeductible,
		ExtractionConfidence: job.ExtractionConfidence,
		Attempts:             job.Attempts,
		MaxAttempts:          job.MaxAttempts,
		LastError:            job.LastError,
		CreatedAt:            job.CreatedAt,
		UpdatedAt:            job.UpdatedAt,
	}
	if job.TransactionID != nil {
		id := job.TransactionID.String()
		resp.TransactionID = &id
	}
	if len(job.Items) > 0 {
		var items []domain.ReceiptItem
		if err := json.Unmarshal(job.Items, &items); err == nil {
			resp.Items = items
		}
	}
	return resp
}
