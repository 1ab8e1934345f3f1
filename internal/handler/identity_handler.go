package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/service"
	"github.com/vhvplatform/go-outreach-service/internal/shared/errors"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
)

// IdentityHandler handles HTTP requests for sending identities
type IdentityHandler struct {
	identities service.IdentityStore
	tracker    *service.HealthTracker
	balancer   *service.LoadBalancer
	log        *logger.Logger
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(identities service.IdentityStore, tracker *service.HealthTracker, balancer *service.LoadBalancer, log *logger.Logger) *IdentityHandler {
	return &IdentityHandler{
		identities: identities,
		tracker:    tracker,
		balancer:   balancer,
		log:        log,
	}
}

// identityView joins an identity with its computed usage stats
type identityView struct {
	Identity *domain.SendingIdentity `json:"identity"`
	Stats    *domain.UsageStats      `json:"stats"`
}

// List returns an account's identities with live health and usage stats
func (h *IdentityHandler) List(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("account_id is required", nil))
		return
	}

	identities, err := h.identities.FindByAccount(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to list identities", "error", err, "account_id", accountID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to list identities", err))
		return
	}

	views := make([]identityView, 0, len(identities))
	for _, identity := range identities {
		stats, err := h.tracker.ComputeUsage(c.Request.Context(), identity)
		if err != nil {
			h.log.Error("Failed to compute usage", "error", err, "identity_id", identity.ID.Hex())
			c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to compute usage", err))
			return
		}
		views = append(views, identityView{Identity: identity, Stats: stats})
	}

	c.JSON(http.StatusOK, gin.H{
		"identities": views,
		"count":      len(views),
	})
}

// Resume reactivates a paused identity and clears its error streak
func (h *IdentityHandler) Resume(c *gin.Context) {
	identityID := c.Param("id")

	if err := h.balancer.Resume(c.Request.Context(), identityID); err != nil {
		h.log.Error("Failed to resume identity", "error", err, "identity_id", identityID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to resume identity", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Identity resumed",
	})
}
