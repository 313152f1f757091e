package handler

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"cgt-timeline-backend/internal/cch"
	"cgt-timeline-backend/internal/verification"
)

// CCHHandler proxies CCH AnswerConnect verification requests.
type CCHHandler struct {
	client *cch.Client
}

// NewCCHHandler creates a CCHHandler.
func NewCCHHandler(client *cch.Client) *CCHHandler {
	return &CCHHandler{client: client}
}

// VerifyRequest CCH verification request. The caller may supply the
// calculated answer directly or attach the raw analysis response to have it
// extracted server-side.
type VerifyRequest struct {
	OurAnswer        string          `json:"our_answer,omitempty"`
	Scenario         string          `json:"scenario"`
	Timeline         []string        `json:"timeline,omitempty"`
	AnalysisResponse json.RawMessage `json:"analysis_response,omitempty"`
}

// VerifyAndCompare sends the scenario and our answer to CCH and returns the
// comparison.
func (h *CCHHandler) VerifyAndCompare(c *fiber.Ctx) error {
	if !h.client.Configured() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "CCH verification is not configured",
		})
	}

	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	ourAnswer := req.OurAnswer
	if ourAnswer == "" && len(req.AnalysisResponse) > 0 {
		resp, err := verification.Normalize(req.AnalysisResponse)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid analysis response",
			})
		}
		ourAnswer = cch.ExtractOurAnswer(resp)
	}

	result, err := h.client.VerifyAndCompare(c.Context(), cch.VerifyRequest{
		OurAnswer: ourAnswer,
		Scenario:  req.Scenario,
		Timeline:  req.Timeline,
	})
	if err != nil {
		if errors.Is(err, cch.ErrNoScenario) || errors.Is(err, cch.ErrNoAnswer) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("❌ [CCH] Verification failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "CCH verification service unavailable",
		})
	}

	return c.JSON(result)
}

// Health checks CCH service reachability.
func (h *CCHHandler) Health(c *fiber.Ctx) error {
	if !h.client.Configured() {
		return c.JSON(fiber.Map{"status": "not_configured"})
	}
	if err := h.client.Health(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}
