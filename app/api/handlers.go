package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lysyi3m/veni-vici/app/database"
	"github.com/lysyi3m/veni-vici/app/discover"
	"github.com/lysyi3m/veni-vici/app/tasks"
)

const notFoundHint = "No artwork passed the current bans. Try removing some bans and discover again."

func NewHandler(sessions database.SessionRepository, discoverer DiscovererInterface,
	pages tasks.PageCounter, scheduler tasks.TaskSchedulerInterface,
	presets discover.BanList, seenLimit, maxTries int) *Handler {
	return &Handler{
		sessions:   sessions,
		discoverer: discoverer,
		pages:      pages,
		scheduler:  scheduler,
		presets:    presets,
		seenLimit:  seenLimit,
		maxTries:   maxTries,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if pages, ok := h.pages.CachedPages(); ok {
		health["catalog_pages"] = pages
	} else {
		health["catalog_pages"] = nil
	}

	if count, err := h.sessions.SessionCount(); err == nil {
		health["sessions"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	bans := discover.BanList{}
	if !req.SkipPresets {
		bans = append(bans, h.presets...)
	}
	for _, ban := range req.Bans {
		if err := validateBan(ban); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		bans, _ = bans.Add(ban)
	}

	id := uuid.NewString()
	if err := h.sessions.CreateSession(id, bans); err != nil {
		slog.Error("Database error", "operation", "create_session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Session created", "session", id, "bans", len(bans))

	c.JSON(http.StatusCreated, sessionResponse{
		ID:   id,
		Bans: bans,
		Seen: []int64{},
	})
}

func (h *Handler) GetSession(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		ID:        session.ID,
		Bans:      session.Bans,
		Seen:      session.SeenIDs,
		CreatedAt: session.CreatedAt.In(time.Local).Format(time.RFC3339),
		UpdatedAt: session.UpdatedAt.In(time.Local).Format(time.RFC3339),
	})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id := c.Param("id")

	deleted, err := h.sessions.DeleteSession(id)
	if err != nil {
		slog.Error("Database error", "operation", "delete_session", "session", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Discover(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	item, err := h.discoverer.GetRandomArtworkAvoiding(c.Request.Context(), session.Bans, session.SeenIDs, h.maxTries)
	if err != nil {
		h.writeDiscoverError(c, session.ID, err)
		return
	}

	if item.ID != nil {
		err := h.sessions.UpdateSeen(session.ID, func(current []int64) []int64 {
			seen := discover.NewSeenBuffer(h.seenLimit, current...)
			seen.Push(*item.ID)
			return seen.IDs()
		})
		if err != nil {
			// The item is still valid; it may just come back sooner.
			slog.Warn("Failed to record seen item", "session", session.ID, "id", *item.ID, "error", err)
		}
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) writeDiscoverError(c *gin.Context, sessionID string, err error) {
	var configErr *discover.ConfigError
	var transportErr *discover.TransportError
	var notFoundErr *discover.NotFoundError

	switch {
	case errors.As(err, &configErr):
		slog.Error("Discovery unavailable", "session", sessionID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog is not configured"})

	case errors.As(err, &transportErr):
		slog.Error("Catalog request failed", "session", sessionID, "attempt", transportErr.Attempt, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Catalog request failed", "details": err.Error()})

	case errors.As(err, &notFoundErr):
		slog.Info("No artwork found", "session", sessionID, "attempts", notFoundErr.Attempts, "empty_pages", notFoundErr.EmptyPages)
		rejections := make(map[string]int, len(notFoundErr.Rejections))
		for reason, n := range notFoundErr.Rejections {
			rejections[string(reason)] = n
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error":       notFoundHint,
			"attempts":    notFoundErr.Attempts,
			"empty_pages": notFoundErr.EmptyPages,
			"rejections":  rejections,
		})

	default:
		if c.Request.Context().Err() != nil {
			slog.Debug("Discovery cancelled by client", "session", sessionID)
			c.Status(http.StatusRequestTimeout)
			return
		}
		slog.Error("Discovery failed", "session", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Discovery failed"})
	}
}

func (h *Handler) AddBan(c *gin.Context) {
	var ban discover.BanEntry
	if err := c.ShouldBindJSON(&ban); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := validateBan(ban); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bans, added, ok := h.updateBans(c, func(current []discover.BanEntry) ([]discover.BanEntry, bool) {
		return discover.BanList(current).Add(ban)
	})
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"added": added,
		"bans":  bans,
	})
}

// RemoveBans removes the ban named by the field and value query parameters,
// or every ban when both are omitted.
func (h *Handler) RemoveBans(c *gin.Context) {
	field := c.Query("field")
	value := c.Query("value")

	if field == "" && value == "" {
		removed := 0
		_, _, ok := h.updateBans(c, func(current []discover.BanEntry) ([]discover.BanEntry, bool) {
			removed = len(current)
			return nil, removed > 0
		})
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed, "bans": []discover.BanEntry{}})
		return
	}

	ban := discover.BanEntry{Field: discover.BanField(field), Value: value}
	if err := validateBan(ban); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bans, removed, ok := h.updateBans(c, func(current []discover.BanEntry) ([]discover.BanEntry, bool) {
		return discover.BanList(current).Remove(ban)
	})
	if !ok {
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ban not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": 1, "bans": bans})
}

func (h *Handler) ClearSeen(c *gin.Context) {
	id := c.Param("id")

	err := h.sessions.ReplaceSeen(id, nil)
	if errors.Is(err, database.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "clear_seen", "session", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) RefreshCatalog(c *gin.Context) {
	task := tasks.NewRefreshPageCountTask(h.pages)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing refresh task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) loadSession(c *gin.Context) (*database.Session, bool) {
	id := c.Param("id")

	session, err := h.sessions.GetSession(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_session", "session", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return session, true
}

func (h *Handler) updateBans(c *gin.Context, fn func([]discover.BanEntry) ([]discover.BanEntry, bool)) ([]discover.BanEntry, bool, bool) {
	id := c.Param("id")

	bans, changed, err := h.sessions.UpdateBans(id, fn)
	if errors.Is(err, database.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false, false
	}
	if err != nil {
		slog.Error("Database error", "operation", "update_bans", "session", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false, false
	}
	if bans == nil {
		bans = []discover.BanEntry{}
	}
	return bans, changed, true
}

var (
	errInvalidBanField = errors.New("ban field must be one of artist, culture, dated")
	errEmptyBanValue   = errors.New("ban value must not be empty")
)

func validateBan(ban discover.BanEntry) error {
	if !ban.Field.Valid() {
		return errInvalidBanField
	}
	if strings.TrimSpace(ban.Value) == "" {
		return errEmptyBanValue
	}
	return nil
}
