package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mattleonard16/taxhelper-sub000/domain"
	"github.com/mattleonard16/taxhelper-sub000/internal/api/presenters"
	"github.com/mattleonard16/taxhelper-sub000/pkg/insight"
	"github.com/mattleonard16/taxhelper-sub000/pkg/jwt"
)

type (
	InsightHandler interface {
		GetInsights(c *fiber.Ctx) error
		PatchInsight(c *fiber.Ctx) error
		SendDigest(c *fiber.Ctx) error
	}

	insightHandler struct {
		insightService insight.InsightService
		jwtService     jwt.JWTService
		validator      *validator.Validate
	}
)

func NewInsightHandler(insightService insight.InsightService, jwtService jwt.JWTService, validator *validator.Validate) InsightHandler {
	return &insightHandler{
		insightService: insightService,
		jwtService:     jwtService,
		validator:      validator,
	}
}

func (h *insightHandler) GetInsights(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	rangeDays, err := strconv.Atoi(c.Query("range", "30"))
	if err != nil {
		rangeDays = 30
	}
	refresh := c.Query("refresh") == "1"

	userCtx := domain.UserContext{
		IsFreelancer: c.Query("freelancer") == "1",
	}
	if rate, err := strconv.ParseFloat(c.Query("tax_rate"), 64); err == nil {
		userCtx.EstimatedTaxRate = rate
	}

	res, err := h.insightService.GetInsights(c.Context(), userID, rangeDays, refresh, userCtx)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedGetInsights, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetInsights)
}

func (h *insightHandler) PatchInsight(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	insightID := c.Params("id")
	req := new(domain.PatchInsightRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedPatchInsight, err)
	}

	res, err := h.insightService.PatchInsight(c.Context(), insightID, *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedPatchInsight, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessPatchInsight)
}

func (h *insightHandler) SendDigest(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	token := c.Locals("token").(string)

	email, err := h.jwtService.GetEmailByToken(token)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, err)
	}

	rangeDays, err := strconv.Atoi(c.Query("range", "30"))
	if err != nil {
		rangeDays = 30
	}

	if err := h.insightService.SendDigest(c.Context(), userID, email, rangeDays); err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedInsightDigest, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessInsightDigest)
}
