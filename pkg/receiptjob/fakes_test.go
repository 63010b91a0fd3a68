package receiptjob

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattleonard16/taxhelper-sub000/entities"
	"github.com/mattleonard16/taxhelper-sub000/pkg/extraction"
)

// fakeRepo is a mutex-guarded in-memory Repository. Conditional updates
// mirror the SQL semantics: zero matched rows, not errors.
type fakeRepo struct {
	mu          sync.Mutex
	jobs        map[uuid.UUID]*entities.ReceiptJob
	corrections map[uuid.UUID][]*entities.FieldCorrection
	txns        map[uuid.UUID]*entities.Transaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		jobs:        map[uuid.UUID]*entities.ReceiptJob{},
		corrections: map[uuid.UUID][]*entities.FieldCorrection{},
		txns:        map[uuid.UUID]*entities.Transaction{},
	}
}

func copyJob(job *entities.ReceiptJob) *entities.ReceiptJob {
	c := *job
	return &c
}

func (r *fakeRepo) Create(_ context.Context, job *entities.ReceiptJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.jobs[job.ID] = copyJob(job)
	return nil
}

func (r *fakeRepo) GetForUser(_ context.Context, id, userID uuid.UUID) (*entities.ReceiptJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.UserID != userID || job.DiscardedAt != nil {
		return nil, gorm.ErrRecordNotFound
	}
	return copyJob(job), nil
}

func (r *fakeRepo) List(_ context.Context, userID uuid.UUID, status string, before *time.Time, limit int) ([]*entities.ReceiptJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.ReceiptJob
	for _, job := range r.jobs {
		if job.UserID != userID || job.DiscardedAt != nil {
			continue
		}
		if status != "" && status != "all" && string(job.Status) != status {
			continue
		}
		if before != nil && !job.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, copyJob(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) FetchQueued(_ context.Context, limit int) ([]*entities.ReceiptJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.ReceiptJob
	for _, job := range r.jobs {
		if job.Status != entities.JobStatusQueued || job.DiscardedAt != nil || job.Attempts >= job.MaxAttempts {
			continue
		}
		out = append(out, copyJob(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) ClaimProcessing(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != entities.JobStatusQueued || job.DiscardedAt != nil {
		return false, nil
	}
	now := time.Now()
	job.Status = entities.JobStatusProcessing
	job.Attempts++
	job.ProcessingStartedAt = &now
	job.UpdatedAt = now
	return true, nil
}

func (r *fakeRepo) SaveExtraction(_ context.Context, job *entities.ReceiptJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok || stored.Status != entities.JobStatusProcessing || stored.DiscardedAt != nil {
		return nil
	}
	stored.Status = job.Status
	stored.Merchant = job.Merchant
	stored.Date = job.Date
	stored.TotalAmount = job.TotalAmount
	stored.TaxAmount = job.TaxAmount
	stored.Items = job.Items
	stored.Currency = job.Currency
	stored.Category = job.Category
	stored.CategoryCode = job.CategoryCode
	stored.IsDeductible = job.IsDeductible
	stored.ExtractionConfidence = job.ExtractionConfidence
	stored.ProcessedAt = job.ProcessedAt
	stored.LastError = nil
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRepo) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = entities.JobStatusFailed
		job.LastError = &errMsg
		job.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeRepo) Requeue(_ context.Context, id uuid.UUID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = entities.JobStatusQueued
		job.LastError = &errMsg
		job.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeRepo) PatchFields(_ context.Context, job *entities.ReceiptJob, corrections []*entities.FieldCorrection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok || stored.DiscardedAt != nil || stored.TransactionID != nil ||
		(stored.Status != entities.JobStatusNeedsReview && stored.Status != entities.JobStatusCompleted) {
		return ErrEditConflict
	}
	stored.Merchant = job.Merchant
	stored.Date = job.Date
	stored.TotalAmount = job.TotalAmount
	stored.TaxAmount = job.TaxAmount
	stored.Category = job.Category
	stored.IsDeductible = job.IsDeductible
	stored.UpdatedAt = time.Now()
	r.corrections[job.ID] = append(r.corrections[job.ID], corrections...)
	return nil
}

func (r *fakeRepo) ListCorrections(_ context.Context, jobID uuid.UUID) ([]*entities.FieldCorrection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entities.FieldCorrection{}, r.corrections[jobID]...), nil
}

func (r *fakeRepo) ConfirmAndLink(_ context.Context, id, userID uuid.UUID) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.UserID != userID || job.DiscardedAt != nil || job.TransactionID != nil ||
		(job.Status != entities.JobStatusNeedsReview && job.Status != entities.JobStatusCompleted) {
		return uuid.Nil, ErrClaimLost
	}
	now := time.Now()
	job.Status = entities.JobStatusConfirmed
	txn := transactionFromJob(job)
	r.txns[txn.ID] = txn
	job.TransactionID = &txn.ID
	job.ProcessedAt = &now
	job.UpdatedAt = now
	return txn.ID, nil
}

func (r *fakeRepo) Discard(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok && job.Status != entities.JobStatusConfirmed {
		now := time.Now()
		job.DiscardedAt = &now
		job.UpdatedAt = now
	}
	return nil
}

func (r *fakeRepo) ResetForRetry(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok && job.Status == entities.JobStatusFailed {
		job.Status = entities.JobStatusQueued
		job.Attempts = 0
		job.LastError = nil
		job.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeRepo) RequeueStaleProcessing(_ context.Context, olderThan time.Time) (requeued, failed int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.Status != entities.JobStatusProcessing || job.ProcessingStartedAt == nil || !job.ProcessingStartedAt.Before(olderThan) {
			continue
		}
		if job.Attempts >= job.MaxAttempts {
			msg := "[TIMEOUT] processing abandoned after stale threshold"
			job.Status = entities.JobStatusFailed
			job.LastError = &msg
			failed++
		} else {
			job.Status = entities.JobStatusQueued
			requeued++
		}
	}
	return requeued, failed, nil
}

func (r *fakeRepo) ResetStaleConfirmed(_ context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var healed int64
	for _, job := range r.jobs {
		if job.Status == entities.JobStatusConfirmed && job.TransactionID == nil && job.UpdatedAt.Before(olderThan) {
			job.Status = entities.JobStatusNeedsReview
			healed++
		}
	}
	return healed, nil
}

func (r *fakeRepo) transactionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txns)
}

func (r *fakeRepo) mustGet(id uuid.UUID) *entities.ReceiptJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyJob(r.jobs[id])
}

// seed installs a job directly, bypassing the upload path.
func (r *fakeRepo) seed(job *entities.ReceiptJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 3
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	r.jobs[job.ID] = copyJob(job)
}

type fakeStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string][]byte{}}
}

func (s *fakeStore) StoreFile(_ context.Context, path string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return nil
}

func (s *fakeStore) GetFile(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[path], nil
}

type fakeExtractor struct {
	fn func(ctx context.Context, in extraction.Input) (extraction.Result, error)
}

func (e *fakeExtractor) Extract(ctx context.Context, in extraction.Input) (extraction.Result, error) {
	return e.fn(ctx, in)
}

func extractorReturning(result extraction.Result, err error) *fakeExtractor {
	return &fakeExtractor{fn: func(context.Context, extraction.Input) (extraction.Result, error) {
		return result, err
	}}
}
