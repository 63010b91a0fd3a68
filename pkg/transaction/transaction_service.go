package transaction

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattleonard16/taxhelper-sub000/domain"
	"github.com/mattleonard16/taxhelper-sub000/entities"
)

type (
	TransactionService interface {
		AddTransaction(ctx context.Context, req domain.AddTransactionRequest, userID string) (domain.TransactionResponse, error)
		UpdateTransaction(ctx context.Context, id string, req domain.UpdateTransactionRequest, userID string) error
		DeleteTransaction(ctx context.Context, id string, userID string) error
		GetTransactions(ctx context.Context, userID string, page, limit int) ([]domain.TransactionResponse, int64, error)
		GetTaxStats(ctx context.Context, userID string) (domain.TaxStatsResponse, error)
	}

	transactionService struct {
		transactionRepository TransactionRepository
	}
)

func NewTransactionService(transactionRepository TransactionRepository) TransactionService {
	return &transactionService{transactionRepository: transactionRepository}
}

func (s *transactionService) AddTransaction(ctx context.Context, req domain.AddTransactionRequest, userID string) (domain.TransactionResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.TransactionResponse{}, domain.ErrParseUUID
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return domain.TransactionResponse{}, domain.ErrInvalidDate
	}
	if !validAmount(req.TotalAmount) || !validAmount(req.TaxAmount) {
		return domain.TransactionResponse{}, domain.ErrInvalidAmount
	}

	txn := &entities.Transaction{
		ID:           uuid.New(),
		UserID:       userUUID,
		Merchant:     req.Merchant,
		Description:  req.Description,
		Date:         date,
		TotalAmount:  req.TotalAmount,
		TaxAmount:    req.TaxAmount,
		Category:     req.Category,
		IsDeductible: req.IsDeductible,
	}
	if err := s.transactionRepository.AddTransaction(ctx, txn); err != nil {
		return domain.TransactionResponse{}, err
	}
	return toTransactionResponse(txn), nil
}

func (s *transactionService) UpdateTransaction(ctx context.Context, id string, req domain.UpdateTransactionRequest, userID string) error {
	txn, err := s.ownedTransaction(ctx, id, userID)
	if err != nil {
		return err
	}

	if req.Merchant != nil {
		txn.Merchant = *req.Merchant
	}
	if req.Description != nil {
		txn.Description = *req.Description
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return domain.ErrInvalidDate
		}
		txn.Date = date
	}
	if req.TotalAmount != nil {
		if !validAmount(*req.TotalAmount) {
			return domain.ErrInvalidAmount
		}
		txn.TotalAmount = *req.TotalAmount
	}
	if req.TaxAmount != nil {
		if !validAmount(*req.TaxAmount) {
			return domain.ErrInvalidAmount
		}
		txn.TaxAmount = *req.TaxAmount
	}
	if req.Category != nil {
		txn.Category = *req.Category
	}
	if req.IsDeductible != nil {
		txn.IsDeductible = *req.IsDeductible
	}

	return s.transactionRepository.UpdateTransaction(ctx, txn)
}

func (s *transactionService) DeleteTransaction(ctx context.Context, id string, userID string) error {
	txn, err := s.ownedTransaction(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.transactionRepository.DeleteTransaction(ctx, txn.ID.String())
}

func (s *transactionService) GetTransactions(ctx context.Context, userID string, page, limit int) ([]domain.TransactionResponse, int64, error) {
	transactions, count, err := s.transactionRepository.GetTransactions(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]domain.TransactionResponse, 0, len(transactions))
	for _, txn := range transactions {
		responses = append(responses, toTransactionResponse(txn))
	}
	return responses, count, nil
}

func (s *transactionService) GetTaxStats(ctx context.Context, userID string) (domain.TaxStatsResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.TaxStatsResponse{}, domain.ErrParseUUID
	}

	transactions, err := s.transactionRepository.ListSince(ctx, userUUID, time.Time{})
	if err != nil {
		return domain.TaxStatsResponse{}, err
	}

	stats := domain.TaxStatsResponse{
		DeductibleByGroup: map[string]float64{},
		TransactionCount:  int64(len(transactions)),
	}
	for _, txn := range transactions {
		stats.TotalSpent += txn.TotalAmount
		stats.TotalTax += txn.TaxAmount
		if txn.IsDeductible {
			stats.DeductibleTotal += txn.TotalAmount
			category := txn.Category
			if category == "" {
				category = "Uncategorized"
			}
			stats.DeductibleByGroup[category] += txn.TotalAmount
		}
	}
	return stats, nil
}

func (s *transactionService) ownedTransaction(ctx context.Context, id, userID string) (*entities.Transaction, error) {
	txn, err := s.transactionRepository.GetTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	if txn.UserID.String() != userID {
		return nil, domain.ErrTransactionNotFound
	}
	return txn, nil
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func toTransactionResponse(txn *entities.Transaction) domain.TransactionResponse {
	resp := domain.TransactionResponse{
		ID:           txn.ID.String(),
		Merchant:     txn.Merchant,
		Description:  txn.Description,
		Date:         txn.Date,
		TotalAmount:  txn.TotalAmount,
		TaxAmount:    txn.TaxAmount,
		Category:     txn.Category,
		IsDeductible: txn.IsDeductible,
		CreatedAt:    txn.CreatedAt,
	}
	if txn.ReceiptJobID != nil {
		id := txn.ReceiptJobID.String()
		resp.ReceiptJobID = &id
	}
	return resp
}
