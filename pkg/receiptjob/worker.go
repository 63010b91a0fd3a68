package receiptjob

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mattleonard16/taxhelper-sub000/domain"
	"github.com/mattleonard16/taxhelper-sub000/entities"
	"github.com/mattleonard16/taxhelper-sub000/pkg/extraction"
)

// Worker drains queued jobs through the extraction adapter. Jobs are
// processed strictly sequentially within one invocation to bound load on
// the extraction service; concurrent worker instances are safe because
// every claim is a conditional update.
type Worker struct {
	repo      Repository
	store     FileStore
	extractor extraction.Extractor
	cfg       Config
}

func NewWorker(repo Repository, store FileStore, extractor extraction.Extractor, cfg Config) *Worker {
	return &Worker{
		repo:      repo,
		store:     store,
		extractor: extractor,
		cfg:       cfg.withDefaults(),
	}
}

// ProcessBatch recovers stale jobs, then drains up to limit queued jobs.
// One bad job never aborts the batch; each job reports its own outcome.
func (w *Worker) ProcessBatch(ctx context.Context, limit int) (domain.ProcessJobsResponse, error) {
	if limit < 1 || limit > 50 {
		limit = w.cfg.DefaultBatchSize
	}

	resp := domain.ProcessJobsResponse{Results: []domain.JobProcessResult{}}

	now := time.Now()
	requeued, failed, err := w.repo.RequeueStaleProcessing(ctx, now.Add(-w.cfg.StaleProcessingWindow))
	if err != nil {
		return resp, err
	}
	if requeued > 0 || failed > 0 {
		log.Printf("stale processing sweep: %d requeued, %d failed", requeued, failed)
	}
	resp.Requeued = int(requeued)

	if healed, err := w.repo.ResetStaleConfirmed(ctx, now.Add(-w.cfg.StaleConfirmedWindow)); err != nil {
		return resp, err
	} else if healed > 0 {
		log.Printf("stale confirmed sweep: %d jobs reset to review", healed)
	}

	jobs, err := w.repo.FetchQueued(ctx, limit)
	if err != nil {
		return resp, err
	}

	for _, job := range jobs {
		result := w.ProcessOne(ctx, job)
		resp.Processed++
		if result.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
		resp.Results = append(resp.Results, result)
	}
	return resp, nil
}

// ProcessOne claims and runs a single job. A lost claim is reported as a
// skip, not a failure.
func (w *Worker) ProcessOne(ctx context.Context, job *entities.ReceiptJob) domain.JobProcessResult {
	claimed, err := w.repo.ClaimProcessing(ctx, job.ID)
	if err != nil {
		return domain.JobProcessResult{JobID: job.ID.String(), Status: string(job.Status), Error: err.Error()}
	}
	if !claimed {
		return domain.JobProcessResult{
			JobID:  job.ID.String(),
			Status: string(job.Status),
			Error:  "job already claimed by another worker",
		}
	}
	job.Attempts++

	data, err := w.store.GetFile(ctx, job.StoragePath)
	if err != nil {
		return w.fail(ctx, job, fmt.Errorf("fetch stored file: %w", err))
	}
	if data == nil && (job.OCRText == nil || *job.OCRText == "") {
		return w.fail(ctx, job, fmt.Errorf("%w: stored file missing and no OCR text", extraction.ErrParsing))
	}

	in := extraction.Input{
		Image:    data,
		MimeType: job.MimeType,
	}
	if job.OCRText != nil {
		in.OCRText = *job.OCRText
		in.OCRConfidence = job.OCRConfidence
	}

	result, err := w.extractor.Extract(ctx, in)
	if err != nil {
		return w.fail(ctx, job, err)
	}

	w.applyExtraction(job, result)
	if err := w.repo.SaveExtraction(ctx, job); err != nil {
		return domain.JobProcessResult{JobID: job.ID.String(), Status: string(job.Status), Error: err.Error()}
	}

	return domain.JobProcessResult{JobID: job.ID.String(), Status: string(job.Status), Success: true}
}

// fail classifies the error and either requeues the job or marks it FAILED.
// Non-retryable failures (budget, parsing) always fail immediately.
func (w *Worker) fail(ctx context.Context, job *entities.ReceiptJob, cause error) domain.JobProcessResult {
	message := extraction.FormatJobError(cause)
	log.Printf("receipt job %s extraction failed: %s", job.ID, message)

	if extraction.Retryable(cause) && job.Attempts < job.MaxAttempts {
		if err := w.repo.Requeue(ctx, job.ID, message); err != nil {
			return domain.JobProcessResult{JobID: job.ID.String(), Status: string(job.Status), Error: err.Error()}
		}
		return domain.JobProcessResult{
			JobID:  job.ID.String(),
			Status: string(entities.JobStatusQueued),
			Error:  message,
		}
	}

	if err := w.repo.MarkFailed(ctx, job.ID, message); err != nil {
		return domain.JobProcessResult{JobID: job.ID.String(), Status: string(job.Status), Error: err.Error()}
	}
	return domain.JobProcessResult{
		JobID:  job.ID.String(),
		Status: string(entities.JobStatusFailed),
		Error:  message,
	}
}

func (w *Worker) applyExtraction(job *entities.ReceiptJob, result extraction.Result) {
	now := time.Now()
	if result.Merchant != "" {
		job.Merchant = &result.Merchant
	}
	job.Date = result.Date
	job.TotalAmount = result.Total
	job.TaxAmount = result.Tax
	if result.Currency != "" {
		currency := result.Currency
		job.Currency = &currency
	}
	if result.Category != "" {
		category := result.Category
		job.Category = &category
	}
	if result.CategoryCode != "" {
		code := result.CategoryCode
		job.CategoryCode = &code
	}
	job.IsDeductible = result.IsDeductible
	if len(result.Items) > 0 {
		if encoded, err := json.Marshal(result.Items); err == nil {
			job.Items = encoded
		}
	}
	confidence := result.Confidence
	job.ExtractionConfidence = &confidence
	job.Status = DetermineStatusFromConfidence(&confidence, w.cfg.ConfidenceThreshold)
	job.ProcessedAt = &now
	job.LastError = nil
}

// Run ticks ProcessBatch until the context ends; used by the standalone
// worker binary.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if resp, err := w.ProcessBatch(ctx, w.cfg.DefaultBatchSize); err != nil {
				log.Printf("worker batch error: %v", err)
			} else if resp.Processed > 0 {
				log.Printf("worker batch: %d processed, %d succeeded, %d failed",
					resp.Processed, resp.Succeeded, resp.Failed)
			}
		}
	}
}
