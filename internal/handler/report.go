package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"cgt-timeline-backend/internal/model"
)

// ReportHandler adviser-facing report review handler
type ReportHandler struct {
	db *gorm.DB
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(db *gorm.DB) *ReportHandler {
	return &ReportHandler{db: db}
}

// List returns reports, newest first, with optional status and source
// filters.
func (h *ReportHandler) List(c *fiber.Ctx) error {
	query := h.db.Model(&model.Report{}).Order("created_at DESC")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if source := c.Query("source"); source != "" {
		query = query.Where("source = ?", source)
	}
	if review := c.Query("review_status"); review != "" {
		query = query.Where("review_status = ?", review)
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to count reports",
		})
	}

	var reports []model.Report
	if err := query.Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch reports",
		})
	}

	return c.JSON(fiber.Map{
		"reports": reports,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get returns one report.
func (h *ReportHandler) Get(c *fiber.Ctx) error {
	var report model.Report
	if err := h.db.First(&report, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "report not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch report",
		})
	}
	return c.JSON(report)
}

// ReviewRequest adviser review update
type ReviewRequest struct {
	ReviewStatus string `json:"review_status"`
	ReviewNotes  string `json:"review_notes"`
}

// Review records the adviser's verdict on a report.
func (h *ReportHandler) Review(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	switch req.ReviewStatus {
	case model.ReviewStatusApproved, model.ReviewStatusRejected, model.ReviewStatusUnreviewed:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid review_status",
		})
	}

	var report model.Report
	if err := h.db.First(&report, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "report not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch report",
		})
	}

	report.ReviewStatus = req.ReviewStatus
	report.ReviewNotes = req.ReviewNotes
	if email, ok := c.Locals("email").(string); ok {
		report.VerifiedBy = email
	}
	now := time.Now()
	report.VerifiedAt = &now

	if err := h.db.Save(&report).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update report",
		})
	}
	return c.JSON(report)
}

// Delete removes a report.
func (h *ReportHandler) Delete(c *fiber.Ctx) error {
	result := h.db.Delete(&model.Report{}, "id = ?", c.Params("id"))
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete report",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "report not found",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
