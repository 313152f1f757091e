package handler

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"cgt-timeline-backend/internal/cache"
	"cgt-timeline-backend/internal/config"
	"cgt-timeline-backend/internal/timeline"
)

// TimelineHandler shareable timeline snapshot handler
type TimelineHandler struct {
	redis    *cache.RedisClient
	shareTTL time.Duration
	cfg      config.ServerConfig
}

// NewTimelineHandler creates a TimelineHandler.
func NewTimelineHandler(redis *cache.RedisClient, shareTTL time.Duration, cfg config.ServerConfig) *TimelineHandler {
	return &TimelineHandler{redis: redis, shareTTL: shareTTL, cfg: cfg}
}

// ShareResponse response to a save or update
type ShareResponse struct {
	ShareID  string `json:"shareId"`
	ShareURL string `json:"shareUrl"`
}

// Save stores a snapshot under a fresh share id.
func (h *TimelineHandler) Save(c *fiber.Ctx) error {
	var snapshot timeline.Snapshot
	if err := c.BodyParser(&snapshot); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid timeline payload",
		})
	}

	if err := snapshot.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if snapshot.Version == 0 {
		snapshot.Version = timeline.SnapshotVersion
	}
	now := time.Now()
	snapshot.CreatedAt = now
	snapshot.UpdatedAt = now

	shareID, err := h.redis.SaveTimeline(c.Context(), &snapshot, h.shareTTL)
	if err != nil {
		log.Printf("❌ [Timeline] Save failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save timeline",
		})
	}

	log.Printf("✅ [Timeline] Saved share %s (%d properties, %d events)",
		shareID, len(snapshot.Properties), len(snapshot.Events))

	return c.Status(fiber.StatusCreated).JSON(ShareResponse{
		ShareID:  shareID,
		ShareURL: h.shareURL(shareID),
	})
}

// Get loads a shared snapshot.
func (h *TimelineHandler) Get(c *fiber.Ctx) error {
	shareID := c.Params("shareId")
	if shareID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "shareId is required",
		})
	}

	snapshot, err := h.redis.GetTimeline(c.Context(), shareID)
	if err != nil {
		if errors.Is(err, cache.ErrShareNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "shared timeline not found or expired",
			})
		}
		log.Printf("❌ [Timeline] Load failed for %s: %v", shareID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load timeline",
		})
	}

	return c.JSON(snapshot)
}

// Update overwrites an existing shared snapshot, refreshing its TTL.
func (h *TimelineHandler) Update(c *fiber.Ctx) error {
	shareID := c.Params("shareId")
	if shareID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "shareId is required",
		})
	}

	var snapshot timeline.Snapshot
	if err := c.BodyParser(&snapshot); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid timeline payload",
		})
	}

	if err := snapshot.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if snapshot.Version == 0 {
		snapshot.Version = timeline.SnapshotVersion
	}
	snapshot.UpdatedAt = time.Now()

	if err := h.redis.UpdateTimeline(c.Context(), shareID, &snapshot, h.shareTTL); err != nil {
		if errors.Is(err, cache.ErrShareNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "shared timeline not found or expired",
			})
		}
		log.Printf("❌ [Timeline] Update failed for %s: %v", shareID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update timeline",
		})
	}

	return c.JSON(ShareResponse{
		ShareID:  shareID,
		ShareURL: h.shareURL(shareID),
	})
}

// Delete removes a shared snapshot.
func (h *TimelineHandler) Delete(c *fiber.Ctx) error {
	shareID := c.Params("shareId")
	if shareID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "shareId is required",
		})
	}

	if err := h.redis.DeleteTimeline(c.Context(), shareID); err != nil {
		log.Printf("❌ [Timeline] Delete failed for %s: %v", shareID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete timeline",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *TimelineHandler) shareURL(shareID string) string {
	return fmt.Sprintf("%s/shared/%s", h.cfg.PublicURL, shareID)
}
