package receiptjob

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mattleonard16/taxhelper-sub000/domain"
	"github.com/mattleonard16/taxhelper-sub000/entities"
	"github.com/mattleonard16/taxhelper-sub000/pkg/extraction"
)

func newTestService(repo *fakeRepo, extractor extraction.Extractor) (Service, *fakeStore) {
	store := newFakeStore()
	if extractor == nil {
		extractor = extractorReturning(extraction.Result{Confidence: 0.9, Merchant: "Starbucks"}, nil)
	}
	worker := NewWorker(repo, store, extractor, Config{})
	return NewService(repo, store, worker, Config{}), store
}

func seedReviewJob(repo *fakeRepo, userID uuid.UUID) *entities.ReceiptJob {
	merchant := "Starbucks"
	total := 12.50
	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	job := &entities.ReceiptJob{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      entities.JobStatusNeedsReview,
		Merchant:    &merchant,
		TotalAmount: &total,
		Date:        &date,
	}
	repo.seed(job)
	return job
}

func makeFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.Close()

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	return form.File["file"][0]
}

func TestUploadReceiptAsync(t *testing.T) {
	repo := newFakeRepo()
	svc, store := newTestService(repo, nil)
	userID := uuid.New()

	req := domain.UploadReceiptRequest{File: makeFileHeader(t, "receipt.jpg", []byte("jpegbytes"))}
	res, err := svc.UploadReceipt(context.Background(), req, userID.String(), true)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Status != string(entities.JobStatusQueued) {
		t.Errorf("status = %s, want QUEUED", res.Status)
	}
	if res.PollURL == "" {
		t.Error("expected a poll URL for async upload")
	}

	job := repo.mustGet(uuid.MustParse(res.JobID))
	if job.Status != entities.JobStatusQueued {
		t.Errorf("persisted status = %s, want QUEUED", job.Status)
	}
	data, _ := store.GetFile(context.Background(), job.StoragePath)
	if !bytes.Equal(data, []byte("jpegbytes")) {
		t.Error("uploaded bytes not stored")
	}
}

func TestUploadReceiptSyncRunsPipeline(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, extractorReturning(extraction.Result{
		Confidence: 0.9,
		Merchant:   "Starbucks",
	}, nil))
	userID := uuid.New()

	req := domain.UploadReceiptRequest{File: makeFileHeader(t, "receipt.jpg", []byte("jpegbytes"))}
	res, err := svc.UploadReceipt(context.Background(), req, userID.String(), false)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Status != string(entities.JobStatusCompleted) {
		t.Errorf("status = %s, want COMPLETED", res.Status)
	}
	if res.Extracted == nil || res.Extracted.Merchant == nil || *res.Extracted.Merchant != "Starbucks" {
		t.Error("sync upload should return the extracted fields")
	}
}

func TestConfirmJobCreatesTransaction(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	userID := uuid.New()
	job := seedReviewJob(repo, userID)

	res, err := svc.ConfirmJob(context.Background(), job.ID.String(), userID.String())
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.TransactionID == "" {
		t.Fatal("expected a transaction id")
	}
	if repo.transactionCount() != 1 {
		t.Errorf("transaction count = %d, want 1", repo.transactionCount())
	}
	stored := repo.mustGet(job.ID)
	if stored.Status != entities.JobStatusConfirmed {
		t.Errorf("job status = %s, want CONFIRMED", stored.Status)
	}
	if stored.TransactionID == nil || stored.TransactionID.String() != res.TransactionID {
		t.Error("job not linked to the created transaction")
	}
}

func TestConfirmJobIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	userID := uuid.New()
	job := seedReviewJob(repo, userID)

	first, err := svc.ConfirmJob(context.Background(), job.ID.String(), userID.String())
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, err := svc.ConfirmJob(context.Background(), job.ID.String(), userID.String())
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if first.TransactionID != second.TransactionID {
		t.Errorf("repeat confirm returned %s, want %s", second.TransactionID, first.TransactionID)
	}
	if repo.transactionCount() != 1 {
		t.Errorf("transaction count = %d, want 1", repo.transactionCount())
	}
}

func TestConfirmJobConcurrent(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	userID := uuid.New()
	job := seedReviewJob(repo, userID)

	const callers = 16
	results := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.ConfirmJob(context.Background(), job.ID.String(), userID.String())
			results[i] = res.TransactionID
			errs[i] = err
		}(i)
	}
	wg.Wait()

	if repo.transactionCount() != 1 {
		t.Fatalf("transaction count = %d, want exactly 1", repo.transactionCount())
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d: unexpected error %v", i, errs[i])
			continue
		}
		if results[i] != results[0] {
			t.Errorf("caller %d got transaction %s, want %s", i, results[i], results[0])
		}
	}
}

func TestConfirmJobMissingFields(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	userID := uuid.New()
	job := &entities.ReceiptJob{ID: uuid.New(), UserID: userID, Status: entities.JobStatusNeedsReview}
	repo.seed(job)

	_, err := svc.ConfirmJob(context.Background(), job.ID.String(), userID.String())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err is not a ValidationError: %v", err)
	}
	want := []string{"merchant", "totalAmount", "date"}
	if len(verr.Fields) != len(want) {
		t.Fatalf("fields = %v, want %v", verr.Fields, want)
	}
	for i, f := range want {
		if verr.Fields[i] != f {
			t.Errorf("fields[%d] = %s, want %s", i, verr.Fields[i], f)
		}
	}
}

func TestConfirmJobInvalidStatus(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	userID := uuid.New()

	for _, status := range []entities.JobStatus{
		entities.JobStatusQueued,
		entities.JobStatusProcessing,
		entities.JobStatusFailed,
	} {
		merchant := "Target"
		total := 40.0
		date := time.Now()
		job := &entities.ReceiptJob{
			ID: uuid.New(), UserID: userID, Status: status,
			Merchant: &merchant, TotalAmount: &total, Date: &date,
		}
		repo.seed(job)

		_, err := svc.ConfirmJob(context.Background(), job.ID.String(), userID.String())
		if !errors.Is(err, domain.ErrInvalidJobStatus) {
			t.Errorf("confirm from %s: err = %v, want ErrInvalidJobStatus", status, err)
		}
	}
}

func TestPatchJobStatusMatrix(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	userID := uuid.New()
	merchant := "Costco"

	cases := []struct {
		status  entities.JobStatus
		allowed bool
	}{
		{entities.JobStatusQueued, false},
		{entities.JobStatusProcessing, false},
		{entities.JobStatusNeedsReview, true},
		{entities.JobStatusCompleted, true},
		{entities.JobStatusConfirmed, false},
		{entities.JobStatusFailed, false},
	}
	for _, tc := range cases {
		job := &entities.ReceiptJob{ID: uuid.New(), UserID: userID, Status: tc.status}
		repo.seed(job)

		_, err := svc.PatchJob(context.Background(), job.ID.String(), domain.PatchJobRequest{Merchant: &merchant}, userID.String())
		if tc.allowed && err != nil {
			t.Errorf("patch in %s: unexpected error %v", tc.status, err)
		}
		if !tc.allowed && !errors.Is(err, domain.ErrInvalidJobStatus) {
			t.Errorf("patch in %s: err = %v, want ErrInvalidJobStatus", tc.status, err)
		}
	}
}

func TestPatchJobRecordsCorrections(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	userID := uuid.New()
	job := seedReviewJob(repo, userID)

	newMerchant := "Whole Foods"
	newTotal := 20.0
	sameDate := job.Date.Format("2006-01-02")
	_, err := svc.PatchJob(context.Background(), job.ID.String(), domain.PatchJobRequest{
		Merchant:    &newMerchant,
		TotalAmount: &newTotal,
		Date:        &sameDate,
	}, userID.String())
	if err != nil {
		t.Fatalf("patch: %v", err)
	}

	corrections, _ := repo.ListCorrections(context.Background(), job.ID)
	if len(corrections) != 2 {
		t.Fatalf("corrections = %d, want 2 (unchanged date must not be recorded)", len(corrections))
	}
	if corrections[0].FieldName != "merchant" || corrections[0].OriginalValue != "Starbucks" || corrections[0].CorrectedValue != "Whole Foods" {
		t.Errorf("unexpected merchant correction: %+v", corrections[0])
	}
	if corrections[1].FieldName != "totalAmount" || corrections[1].OriginalValue != "12.50" || corrections[1].CorrectedValue != "20.00" {
		t.Errorf("unexpected amount correction: %+v", corrections[1])
	}
}

func TestPatchJobValidation(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	userID := uuid.New()
	job := seedReviewJob(repo, userID)

	negative := -5.0
	badDate := "not-a-date"
	_, err := svc.PatchJob(context.Background(), job.ID.String(), domain.PatchJobRequest{
		TotalAmount: &negative,
		Date:        &badDate,
	}, userID.String())

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(verr.Fields) != 2 || verr.Fields[0] != "totalAmount" || verr.Fields[1] != "date" {
		t.Errorf("fields = %v, want [totalAmount date]", verr.Fields)
	}
}

// confirmAfterRead confirms the job right after the service reads it, so
// the patch write that follows must find it already confirmed.
type confirmAfterRead struct {
	*fakeRepo
	once sync.Once
}

func (r *confirmAfterRead) GetForUser(ctx context.Context, id, userID uuid.UUID) (*entities.ReceiptJob, error) {
	job, err := r.fakeRepo.GetForUser(ctx, id, userID)
	if err == nil {
		r.once.Do(func() { _, _ = r.fakeRepo.ConfirmAndLink(ctx, id, userID) })
	}
	return job, err
}

func TestPatchJobLosesRaceToConfirm(t *testing.T) {
	base := newFakeRepo()
	userID := uuid.New()
	job := seedReviewJob(base, userID)

	repo := &confirmAfterRead{fakeRepo: base}
	store := newFakeStore()
	worker := NewWorker(repo, store, extractorReturning(extraction.Result{Confidence: 0.9}, nil), Config{})
	svc := NewService(repo, store, worker, Config{})

	newMerchant := "Whole Foods"
	_, err := svc.PatchJob(context.Background(), job.ID.String(), domain.PatchJobRequest{Merchant: &newMerchant}, userID.String())
	if !errors.Is(err, domain.ErrInvalidJobStatus) {
		t.Fatalf("err = %v, want ErrInvalidJobStatus", err)
	}

	stored := base.mustGet(job.ID)
	if stored.Status != entities.JobStatusConfirmed {
		t.Errorf("status = %s, want CONFIRMED to survive the patch", stored.Status)
	}
	if stored.TransactionID == nil {
		t.Error("confirmed job must keep its transaction link")
	}
	if stored.Merchant == nil || *stored.Merchant != "Starbucks" {
		t.Error("rejected patch must not change the merchant")
	}
	if base.transactionCount() != 1 {
		t.Errorf("transaction count = %d, want 1", base.transactionCount())
	}
	if corrections, _ := base.ListCorrections(context.Background(), job.ID); len(corrections) != 0 {
		t.Errorf("corrections = %d, want none for a rejected patch", len(corrections))
	}
}

func TestDiscardJob(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	userID := uuid.New()

	job := seedReviewJob(repo, userID)
	if err := svc.DiscardJob(context.Background(), job.ID.String(), userID.String()); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, _, err := svc.GetJobByID(context.Background(), job.ID.String(), userID.String()); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("discarded job should be invisible, got err = %v", err)
	}

	confirmed := seedReviewJob(repo, userID)
	if _, err := svc.ConfirmJob(context.Background(), confirmed.ID.String(), userID.String()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := svc.DiscardJob(context.Background(), confirmed.ID.String(), userID.String()); !errors.Is(err, domain.ErrInvalidJobStatus) {
		t.Errorf("discard of CONFIRMED: err = %v, want ErrInvalidJobStatus", err)
	}
}

func TestRetryJobOnlyFromFailed(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	userID := uuid.New()

	msg := "[RATE_LIMITED] extraction rate limited"
	failed := &entities.ReceiptJob{
		ID: uuid.New(), UserID: userID, Status: entities.JobStatusFailed,
		Attempts: 3, LastError: &msg,
	}
	repo.seed(failed)

	if err := svc.RetryJob(context.Background(), failed.ID.String(), userID.String()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	stored := repo.mustGet(failed.ID)
	if stored.Status != entities.JobStatusQueued || stored.Attempts != 0 || stored.LastError != nil {
		t.Errorf("retry did not reset the job: %+v", stored)
	}

	review := seedReviewJob(repo, userID)
	if err := svc.RetryJob(context.Background(), review.ID.String(), userID.String()); !errors.Is(err, domain.ErrInvalidJobStatus) {
		t.Errorf("retry from NEEDS_REVIEW: err = %v, want ErrInvalidJobStatus", err)
	}
}

func TestGetJobsRejectsBadCursor(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)

	_, _, err := svc.GetJobs(context.Background(), uuid.New().String(), "", "yesterday", 20)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestGetJobsOtherUserInvisible(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, nil)
	owner := uuid.New()
	intruder := uuid.New()
	job := seedReviewJob(repo, owner)

	if _, _, err := svc.GetJobByID(context.Background(), job.ID.String(), intruder.String()); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("cross-user read: err = %v, want ErrJobNotFound", err)
	}
}
