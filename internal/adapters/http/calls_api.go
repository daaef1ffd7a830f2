package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/domain"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// handleCallHistory pages through the caller's finished calls, most
// recently ended first.
func (a *API) handleCallHistory(c *gin.Context) {
	userID := domain.UserID(c.GetString("user_id"))

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	calls, total, err := a.Calls.ListEndedCalls(c.Request.Context(), userID, page, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("user", string(userID)).Msg("list call history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get call history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"calls": calls,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}
