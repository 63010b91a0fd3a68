package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattleonard16/taxhelper-sub000/entities"
)

type (
	TransactionRepository interface {
		AddTransaction(ctx context.Context, txn *entities.Transaction) error
		GetTransactionByID(ctx context.Context, id string) (*entities.Transaction, error)
		UpdateTransaction(ctx context.Context, txn *entities.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
		GetTransactions(ctx context.Context, userID string, page, limit int) ([]*entities.Transaction, int64, error)
		ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*entities.Transaction, error)
		LatestUpdatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	}

	transactionRepository struct {
		db *gorm.DB
	}
)

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) AddTransaction(ctx context.Context, txn *entities.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepository) GetTransactionByID(ctx context.Context, id string) (*entities.Transaction, error) {
	var txn entities.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) UpdateTransaction(ctx context.Context, txn *entities.Transaction) error {
	return r.db.WithContext(ctx).Save(txn).Error
}

func (r *transactionRepository) DeleteTransaction(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Transaction{}).Error
}

func (r *transactionRepository) GetTransactions(ctx context.Context, userID string, page, limit int) ([]*entities.Transaction, int64, error) {
	var transactions []*entities.Transaction
	var count int64

	offset := (page - 1) * limit
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if err := query.Model(&entities.Transaction{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Offset(offset).Limit(limit).Order("date desc").Find(&transactions).Error; err != nil {
		return nil, 0, err
	}
	return transactions, count, nil
}

// ListSince feeds the insight generators their transaction window.
func (r *transactionRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*entities.Transaction, error) {
	var transactions []*entities.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ?", userID, since).
		Order("date asc").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// LatestUpdatedAt drives insight cache invalidation: any add, edit or
// delete bumps updated_at past the cached run's generation time.
func (r *transactionRepository) LatestUpdatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var latest *time.Time
	err := r.db.WithContext(ctx).Model(&entities.Transaction{}).
		Where("user_id = ?", userID).
		Select("max(updated_at)").
		Scan(&latest).Error
	if err != nil {
		return nil, err
	}
	return latest, nil
}
