package receiptjob

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattleonard16/taxhelper-sub000/entities"
)

// ErrClaimLost is returned by ConfirmAndLink when the conditional claim
// updated zero rows, meaning a concurrent confirmation won the race.
var ErrClaimLost = errors.New("confirm claim lost to a concurrent confirmation")

// ErrEditConflict is returned by PatchFields when the guarded update
// matched zero rows, meaning the job was confirmed or discarded after
// the caller read it.
var ErrEditConflict = errors.New("edit lost to a concurrent confirmation or discard")

type (
	Repository interface {
		Create(ctx context.Context, job *entities.ReceiptJob) error
		GetForUser(ctx context.Context, id, userID uuid.UUID) (*entities.ReceiptJob, error)
		List(ctx context.Context, userID uuid.UUID, status string, before *time.Time, limit int) ([]*entities.ReceiptJob, error)
		FetchQueued(ctx context.Context, limit int) ([]*entities.ReceiptJob, error)
		ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error)
		SaveExtraction(ctx context.Context, job *entities.ReceiptJob) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		Requeue(ctx context.Context, id uuid.UUID, errMsg string) error
		PatchFields(ctx context.Context, job *entities.ReceiptJob, corrections []*entities.FieldCorrection) error
		ListCorrections(ctx context.Context, jobID uuid.UUID) ([]*entities.FieldCorrection, error)
		ConfirmAndLink(ctx context.Context, id, userID uuid.UUID) (uuid.UUID, error)
		Discard(ctx context.Context, id uuid.UUID) error
		ResetForRetry(ctx context.Context, id uuid.UUID) error
		RequeueStaleProcessing(ctx context.Context, olderThan time.Time) (requeued, failed int64, err error)
		ResetStaleConfirmed(ctx context.Context, olderThan time.Time) (int64, error)
	}

	receiptJobRepository struct {
		db *gorm.DB
	}
)

func NewRepository(db *gorm.DB) Repository {
	return &receiptJobRepository{db: db}
}

func (r *receiptJobRepository) Create(ctx context.Context, job *entities.ReceiptJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *receiptJobRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*entities.ReceiptJob, error) {
	var job entities.ReceiptJob
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND discarded_at IS NULL", id, userID).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *receiptJobRepository) List(ctx context.Context, userID uuid.UUID, status string, before *time.Time, limit int) ([]*entities.ReceiptJob, error) {
	var jobs []*entities.ReceiptJob

	query := r.db.WithContext(ctx).
		Where("user_id = ? AND discarded_at IS NULL", userID)
	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	if err := query.Order("created_at desc").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *receiptJobRepository) FetchQueued(ctx context.Context, limit int) ([]*entities.ReceiptJob, error) {
	var jobs []*entities.ReceiptJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND discarded_at IS NULL AND attempts < max_attempts", entities.JobStatusQueued).
		Order("created_at asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimProcessing is the worker's atomic claim: the WHERE clause only
// matches while the job is still QUEUED, so at most one worker wins.
func (r *receiptJobRepository) ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entities.ReceiptJob{}).
		Where("id = ? AND status = ? AND discarded_at IS NULL", id, entities.JobStatusQueued).
		Updates(map[string]interface{}{
			"status":                entities.JobStatusProcessing,
			"attempts":              gorm.Expr("attempts + 1"),
			"processing_started_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SaveExtraction publishes the worker's result through a guarded column
// update. The WHERE clause only matches while the job is still PROCESSING
// and not discarded, so a discard landing mid-extraction stands.
func (r *receiptJobRepository) SaveExtraction(ctx context.Context, job *entities.ReceiptJob) error {
	return r.db.WithContext(ctx).Model(&entities.ReceiptJob{}).
		Where("id = ? AND status = ? AND discarded_at IS NULL", job.ID, entities.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":                job.Status,
			"merchant":              job.Merchant,
			"date":                  job.Date,
			"total_amount":          job.TotalAmount,
			"tax_amount":            job.TaxAmount,
			"items":                 job.Items,
			"currency":              job.Currency,
			"category":              job.Category,
			"category_code":         job.CategoryCode,
			"is_deductible":         job.IsDeductible,
			"extraction_confidence": job.ExtractionConfidence,
			"processed_at":          job.ProcessedAt,
			"last_error":            nil,
		}).Error
}

func (r *receiptJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.db.WithContext(ctx).Model(&entities.ReceiptJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     entities.JobStatusFailed,
			"last_error": errMsg,
		}).Error
}

func (r *receiptJobRepository) Requeue(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.db.WithContext(ctx).Model(&entities.ReceiptJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     entities.JobStatusQueued,
			"last_error": errMsg,
		}).Error
}

// PatchFields writes the edited fields and their correction audit rows in
// one transaction, so the audit trail can never drift from the data. The
// guard re-checks editability at write time: a confirm or discard landing
// after the caller's read makes the update match zero rows.
func (r *receiptJobRepository) PatchFields(ctx context.Context, job *entities.ReceiptJob, corrections []*entities.FieldCorrection) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.ReceiptJob{}).
			Where("id = ? AND transaction_id IS NULL AND discarded_at IS NULL AND status IN ?",
				job.ID,
				[]entities.JobStatus{entities.JobStatusNeedsReview, entities.JobStatusCompleted}).
			Updates(map[string]interface{}{
				"merchant":      job.Merchant,
				"date":          job.Date,
				"total_amount":  job.TotalAmount,
				"tax_amount":    job.TaxAmount,
				"category":      job.Category,
				"is_deductible": job.IsDeductible,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrEditConflict
		}
		for _, c := range corrections {
			if err := tx.Create(c).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *receiptJobRepository) ListCorrections(ctx context.Context, jobID uuid.UUID) ([]*entities.FieldCorrection, error) {
	var corrections []*entities.FieldCorrection
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at asc").
		Find(&corrections).Error
	if err != nil {
		return nil, err
	}
	return corrections, nil
}

// ConfirmAndLink runs the whole confirmation inside one transaction:
// conditional claim, fresh re-read, transaction creation, link back.
// Returns ErrClaimLost when the claim matched zero rows.
func (r *receiptJobRepository) ConfirmAndLink(ctx context.Context, id, userID uuid.UUID) (uuid.UUID, error) {
	var transactionID uuid.UUID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&entities.ReceiptJob{}).
			Where("id = ? AND user_id = ? AND discarded_at IS NULL AND transaction_id IS NULL AND status IN ?",
				id, userID,
				[]entities.JobStatus{entities.JobStatusNeedsReview, entities.JobStatusCompleted}).
			Update("status", entities.JobStatusConfirmed)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrClaimLost
		}

		// Re-read inside the transaction; the caller's copy may be stale.
		var fresh entities.ReceiptJob
		if err := tx.Where("id = ?", id).First(&fresh).Error; err != nil {
			return err
		}

		txn := transactionFromJob(&fresh)
		if err := tx.Create(txn).Error; err != nil {
			return err
		}

		if err := tx.Model(&entities.ReceiptJob{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"transaction_id": txn.ID,
				"processed_at":   time.Now(),
			}).Error; err != nil {
			return err
		}

		transactionID = txn.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return transactionID, nil
}

func (r *receiptJobRepository) Discard(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entities.ReceiptJob{}).
		Where("id = ? AND status <> ?", id, entities.JobStatusConfirmed).
		Update("discarded_at", time.Now()).Error
}

func (r *receiptJobRepository) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entities.ReceiptJob{}).
		Where("id = ? AND status = ?", id, entities.JobStatusFailed).
		Updates(map[string]interface{}{
			"status":     entities.JobStatusQueued,
			"attempts":   0,
			"last_error": nil,
		}).Error
}

// RequeueStaleProcessing reclaims jobs abandoned by a crashed worker:
// attempts-exhausted jobs fail, the rest go back to the queue.
func (r *receiptJobRepository) RequeueStaleProcessing(ctx context.Context, olderThan time.Time) (requeued, failed int64, err error) {
	fail := r.db.WithContext(ctx).Model(&entities.ReceiptJob{}).
		Where("status = ? AND processing_started_at < ? AND attempts >= max_attempts",
			entities.JobStatusProcessing, olderThan).
		Updates(map[string]interface{}{
			"status":     entities.JobStatusFailed,
			"last_error": "[TIMEOUT] processing abandoned after stale threshold",
		})
	if fail.Error != nil {
		return 0, 0, fail.Error
	}

	requeue := r.db.WithContext(ctx).Model(&entities.ReceiptJob{}).
		Where("status = ? AND processing_started_at < ?", entities.JobStatusProcessing, olderThan).
		Update("status", entities.JobStatusQueued)
	if requeue.Error != nil {
		return 0, fail.RowsAffected, requeue.Error
	}
	return requeue.RowsAffected, fail.RowsAffected, nil
}

// ResetStaleConfirmed heals jobs stuck CONFIRMED without a transaction,
// which can only happen if the confirm transaction lost atomicity.
func (r *receiptJobRepository) ResetStaleConfirmed(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entities.ReceiptJob{}).
		Where("status = ? AND transaction_id IS NULL AND updated_at < ?",
			entities.JobStatusConfirmed, olderThan).
		Update("status", entities.JobStatusNeedsReview)
	return res.RowsAffected, res.Error
}

// transactionFromJob maps confirmed job fields onto the financial record.
// Validation happens before the claim, so the required fields are present.
func transactionFromJob(job *entities.ReceiptJob) *entities.Transaction {
	txn := &entities.Transaction{
		ID:           uuid.New(),
		UserID:       job.UserID,
		ReceiptJobID: &job.ID,
	}
	if job.Merchant != nil {
		txn.Merchant = *job.Merchant
	}
	if job.Date != nil {
		txn.Date = *job.Date
	}
	if job.TotalAmount != nil {
		txn.TotalAmount = *job.TotalAmount
	}
	if job.TaxAmount != nil {
		txn.TaxAmount = *job.TaxAmount
	}
	if job.Category != nil {
		txn.Category = *job.Category
	}
	if job.IsDeductible != nil {
		txn.IsDeductible = *job.IsDeductible
	}
	return txn
}
