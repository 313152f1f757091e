package handler

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"cgt-timeline-backend/internal/analysis"
	"cgt-timeline-backend/internal/model"
	"cgt-timeline-backend/internal/verification"
)

// AnalysisHandler proxies timelines to the external CGT model API and records
// each run as a report.
type AnalysisHandler struct {
	client *analysis.Client
	db     *gorm.DB
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(client *analysis.Client, db *gorm.DB) *AnalysisHandler {
	return &AnalysisHandler{client: client, db: db}
}

// CalculateRequest timeline analysis request
type CalculateRequest struct {
	analysis.Request
	ShareID string `json:"shareId,omitempty"`
}

// clarificationData verification-failed payload returned to the client
type clarificationData struct {
	Status                 string                        `json:"status"`
	ClarificationQuestions []verification.Question       `json:"clarification_questions"`
	Verification           clarificationVerification     `json:"verification"`
	Summary                clarificationSummary          `json:"summary"`
	Analysis               string                        `json:"analysis,omitempty"`
	Properties             []verification.PropertyResult `json:"properties,omitempty"`
}

type clarificationVerification struct {
	ClarificationQuestions []verification.Question `json:"clarification_questions"`
}

type clarificationSummary struct {
	TotalProperties       int  `json:"total_properties"`
	PropertiesPassed      int  `json:"properties_passed"`
	PropertiesFailed      int  `json:"properties_failed"`
	RequiresClarification bool `json:"requires_clarification"`
}

// Calculate runs the analysis. Responses that still need user clarification
// are rewrapped into a stable verification_failed envelope regardless of
// which shape the model API used.
func (h *AnalysisHandler) Calculate(c *fiber.Ctx) error {
	var req CalculateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if len(req.Properties) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "at least one property is required",
		})
	}

	result, err := h.client.Calculate(c.Context(), req.Request)
	if err != nil {
		log.Printf("❌ [Analysis] Calculation failed: %v", err)
		h.saveReport(req, nil, model.ReportStatusFailed, reportSource(c))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "analysis service unavailable",
		})
	}

	resp := result.Response
	if resp.Error != "" {
		h.saveReport(req, result, model.ReportStatusFailed, reportSource(c))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": resp.Error,
		})
	}

	h.saveReport(req, result, model.ReportStatusAnalyzed, reportSource(c))

	if resp.NeedsClarification() {
		questions := verification.TransformQuestions(resp.RawQuestions())
		if len(questions) > 0 {
			log.Printf("⚠️ [Analysis] Verification failed, %d clarification question(s)", len(questions))
			return c.JSON(fiber.Map{
				"success": true,
				"demo":    result.Demo,
				"data":    buildClarificationData(resp, questions),
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"demo":    result.Demo,
		"data":    json.RawMessage(resp.Raw),
	})
}

func buildClarificationData(resp *verification.Response, questions []verification.Question) clarificationData {
	summary := clarificationSummary{RequiresClarification: true}
	if resp.Summary != nil {
		summary.TotalProperties = resp.Summary.TotalProperties
		summary.PropertiesPassed = resp.Summary.PropertiesPassed
		summary.PropertiesFailed = resp.Summary.PropertiesFailed
	} else {
		summary.TotalProperties = len(resp.Properties)
		for _, p := range resp.Properties {
			if p.Failed() {
				summary.PropertiesFailed++
			} else {
				summary.PropertiesPassed++
			}
		}
	}

	return clarificationData{
		Status:                 verification.StatusVerificationFailed,
		ClarificationQuestions: questions,
		Verification:           clarificationVerification{ClarificationQuestions: questions},
		Summary:                summary,
		Analysis:               resp.Analysis,
		Properties:             resp.Properties,
	}
}

// saveReport records the run without blocking the response.
func (h *AnalysisHandler) saveReport(req CalculateRequest, result *analysis.Result, status, source string) {
	if h.db == nil {
		return
	}

	timelineData, err := json.Marshal(req.Request)
	if err != nil {
		log.Printf("⚠️ [Report] Failed to marshal timeline data: %v", err)
		return
	}

	report := model.Report{
		ID:           uuid.NewString(),
		Status:       status,
		Source:       source,
		ShareID:      req.ShareID,
		TimelineData: string(timelineData),
	}

	if result != nil {
		report.LLMProvider = h.client.Provider()
		report.AnalysisResponse = string(result.Raw)
		now := time.Now()
		report.AnalyzedAt = &now

		resp := result.Response
		report.VerificationPrompt = resp.VerificationPrompt
		if gain, err := resp.TotalNetCapitalGain.Float64(); err == nil && resp.TotalNetCapitalGain != "" {
			report.NetCapitalGain = &gain
		}
	}

	go func() {
		if err := h.db.Create(&report).Error; err != nil {
			log.Printf("⚠️ [Report] Failed to save report %s: %v", report.ID, err)
			return
		}
		log.Printf("📥 [Report] Saved report %s (status=%s, source=%s)", report.ID, status, source)
	}()
}

// reportSource reads the x-report-source header, defaulting to app.
func reportSource(c *fiber.Ctx) string {
	switch c.Get("x-report-source") {
	case model.ReportSourceAdmin:
		return model.ReportSourceAdmin
	case model.ReportSourceAPI:
		return model.ReportSourceAPI
	default:
		return model.ReportSourceApp
	}
}
