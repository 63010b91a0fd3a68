package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mattleonard16/taxhelper-sub000/domain"
	"github.com/mattleonard16/taxhelper-sub000/internal/api/presenters"
	"github.com/mattleonard16/taxhelper-sub000/pkg/receiptjob"
)

type (
	ReceiptJobHandler interface {
		UploadReceipt(c *fiber.Ctx) error
		GetJobs(c *fiber.Ctx) error
		GetJobDetails(c *fiber.Ctx) error
		PatchJob(c *fiber.Ctx) error
		ConfirmJob(c *fiber.Ctx) error
		RetryJob(c *fiber.Ctx) error
		DiscardJob(c *fiber.Ctx) error
		ProcessJobs(c *fiber.Ctx) error
	}

	receiptJobHandler struct {
		receiptJobService receiptjob.Service
		worker            *receiptjob.Worker
		validator         *validator.Validate
	}
)

func NewReceiptJobHandler(receiptJobService receiptjob.Service, worker *receiptjob.Worker, validator *validator.Validate) ReceiptJobHandler {
	return &receiptJobHandler{
		receiptJobService: receiptJobService,
		worker:            worker,
		validator:         validator,
	}
}

func (h *receiptJobHandler) UploadReceipt(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.UploadReceiptRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	req.File = file

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUploadReceipt, err)
	}

	async := c.Query("async") == "1"
	res, err := h.receiptJobService.UploadReceipt(c.Context(), *req, userID, async)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedUploadReceipt, err)
	}

	if async {
		return presenters.SuccessResponse(c, res, fiber.StatusAccepted, domain.MessageSuccessQueueReceipt)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUploadReceipt)
}

func (h *receiptJobHandler) GetJobs(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	status := c.Query("status")
	cursor := c.Query("cursor")

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	jobs, next, err := h.receiptJobService.GetJobs(c.Context(), userID, status, cursor, limit)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedGetJobs, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"jobs":        jobs,
		"next_cursor": next,
	}, fiber.StatusOK, domain.MessageSuccessGetJobs)
}

func (h *receiptJobHandler) GetJobDetails(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")

	job, corrections, err := h.receiptJobService.GetJobByID(c.Context(), jobID, userID)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedGetJobs, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"job":         job,
		"corrections": corrections,
	}, fiber.StatusOK, domain.MessageSuccessGetJob)
}

func (h *receiptJobHandler) PatchJob(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")
	req := new(domain.PatchJobRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedPatchJob, err)
	}

	job, err := h.receiptJobService.PatchJob(c.Context(), jobID, *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedPatchJob, err)
	}

	return presenters.SuccessResponse(c, job, fiber.StatusOK, domain.MessageSuccessPatchJob)
}

func (h *receiptJobHandler) ConfirmJob(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")

	res, err := h.receiptJobService.ConfirmJob(c.Context(), jobID, userID)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedConfirmJob, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessConfirmJob)
}

func (h *receiptJobHandler) RetryJob(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")

	if err := h.receiptJobService.RetryJob(c.Context(), jobID, userID); err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedRetryJob, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessRetryJob)
}

func (h *receiptJobHandler) DiscardJob(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")

	if err := h.receiptJobService.DiscardJob(c.Context(), jobID, userID); err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedDiscardJob, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessDiscardJob)
}

// ProcessJobs triggers one worker batch. Per-job outcomes go in the body;
// the endpoint itself only fails on infrastructure errors.
func (h *receiptJobHandler) ProcessJobs(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil {
		limit = 10
	}

	res, err := h.worker.ProcessBatch(c.Context(), limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedProcessJobs, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessProcessJobs)
}
