package insight

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattleonard16/taxhelper-sub000/domain"
	"github.com/mattleonard16/taxhelper-sub000/entities"
	"github.com/mattleonard16/taxhelper-sub000/pkg/transaction"
)

// DigestSender is the mail boundary for the insight digest.
type DigestSender interface {
	SendInsightDigest(to string, insights []domain.InsightResponse) error
}

type (
	InsightService interface {
		GetInsights(ctx context.Context, userID string, rangeDays int, forceRefresh bool, userCtx domain.UserContext) (domain.GetInsightsResponse, error)
		PatchInsight(ctx context.Context, id string, req domain.PatchInsightRequest, userID string) (domain.InsightResponse, error)
		SendDigest(ctx context.Context, userID, email string, rangeDays int) error
	}

	insightService struct {
		insightRepository     InsightRepository
		transactionRepository transaction.TransactionRepository
		mailer                DigestSender
		ttl                   time.Duration
	}
)

func NewInsightService(insightRepository InsightRepository, transactionRepository transaction.TransactionRepository, mailer DigestSender, ttl time.Duration) InsightService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &insightService{
		insightRepository:     insightRepository,
		transactionRepository: transactionRepository,
		mailer:                mailer,
		ttl:                   ttl,
	}
}

func (s *insightService) GetInsights(ctx context.Context, userID string, rangeDays int, forceRefresh bool, userCtx domain.UserContext) (domain.GetInsightsResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.GetInsightsResponse{}, domain.ErrParseUUID
	}
	if rangeDays < 1 || rangeDays > 365 {
		rangeDays = 30
	}

	now := time.Now()
	cached, err := s.insightRepository.GetLatestRun(ctx, userUUID, rangeDays)
	if err != nil {
		return domain.GetInsightsResponse{}, err
	}

	if !forceRefresh && cached != nil {
		latest, err := s.transactionRepository.LatestUpdatedAt(ctx, userUUID)
		if err != nil {
			return domain.GetInsightsResponse{}, err
		}
		if IsFresh(cached.GeneratedAt, latest, now, s.ttl) {
			SortInsights(cached.Insights)
			return toRunResponse(cached, true), nil
		}
	}

	since := now.AddDate(0, 0, -rangeDays)
	transactions, err := s.transactionRepository.ListSince(ctx, userUUID, since)
	if err != nil {
		return domain.GetInsightsResponse{}, err
	}

	candidates := GenerateAll(transactions, userCtx)
	run := &entities.InsightRun{
		ID:          uuid.New(),
		UserID:      userUUID,
		RangeDays:   rangeDays,
		GeneratedAt: now,
	}
	for _, c := range candidates {
		run.Insights = append(run.Insights, candidateToEntity(c, run.ID, userUUID))
	}

	if cached != nil {
		MergeInsightState(cached.Insights, run.Insights)
	}

	if err := s.insightRepository.CreateRun(ctx, run); err != nil {
		return domain.GetInsightsResponse{}, err
	}

	SortInsights(run.Insights)
	return toRunResponse(run, false), nil
}

func (s *insightService) PatchInsight(ctx context.Context, id string, req domain.PatchInsightRequest, userID string) (domain.InsightResponse, error) {
	insightUUID, err := uuid.Parse(id)
	if err != nil {
		return domain.InsightResponse{}, domain.ErrInsightNotFound
	}

	in, err := s.insightRepository.GetInsightByID(ctx, insightUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.InsightResponse{}, domain.ErrInsightNotFound
		}
		return domain.InsightResponse{}, err
	}
	if in.UserID.String() != userID {
		return domain.InsightResponse{}, domain.ErrInsightNotFound
	}

	if req.Pinned != nil {
		in.Pinned = *req.Pinned
	}
	if req.Dismissed != nil {
		in.Dismissed = *req.Dismissed
	}
	if err := s.insightRepository.UpdateInsightState(ctx, in); err != nil {
		return domain.InsightResponse{}, err
	}
	return toInsightResponse(in), nil
}

// SendDigest emails the user's current non-dismissed insights.
func (s *insightService) SendDigest(ctx context.Context, userID, email string, rangeDays int) error {
	resp, err := s.GetInsights(ctx, userID, rangeDays, false, domain.UserContext{})
	if err != nil {
		return err
	}

	visible := make([]domain.InsightResponse, 0, len(resp.Insights))
	for _, in := range resp.Insights {
		if !in.Dismissed {
			visible = append(visible, in)
		}
	}
	return s.mailer.SendInsightDigest(email, visible)
}

func candidateToEntity(c Candidate, runID, userID uuid.UUID) *entities.Insight {
	in := &entities.Insight{
		ID:            uuid.New(),
		RunID:         runID,
		UserID:        userID,
		Type:          c.Type,
		Title:         c.Title,
		Summary:       c.Summary,
		SeverityScore: c.Severity,
	}
	if encoded, err := json.Marshal(c.TransactionIDs); err == nil {
		in.SupportingTransactionIDs = encoded
	}
	if c.Explanation != nil {
		if encoded, err := json.Marshal(c.Explanation); err == nil {
			in.Explanation = encoded
		}
	}
	return in
}

func toRunResponse(run *entities.InsightRun, fromCache bool) domain.GetInsightsResponse {
	resp := domain.GetInsightsResponse{
		RangeDays:   run.RangeDays,
		GeneratedAt: run.GeneratedAt,
		FromCache:   fromCache,
		Insights:    make([]domain.InsightResponse, 0, len(run.Insights)),
	}
	for _, in := range run.Insights {
		resp.Insights = append(resp.Insights, toInsightResponse(in))
	}
	return resp
}

func toInsightResponse(in *entities.Insight) domain.InsightResponse {
	resp := domain.InsightResponse{
		ID:            in.ID.String(),
		Type:          in.Type,
		Title:         in.Title,
		Summary:       in.Summary,
		SeverityScore: in.SeverityScore,
		Dismissed:     in.Dismissed,
		Pinned:        in.Pinned,
	}
	if len(in.SupportingTransactionIDs) > 0 {
		_ = json.Unmarshal(in.SupportingTransactionIDs, &resp.SupportingTransactionIDs)
	}
	if len(in.Explanation) > 0 {
		var explanation domain.InsightExplanation
		if err := json.Unmarshal(in.Explanation, &explanation); err == nil {
			resp.Explanation = &explanation
		}
	}
	return resp
}
