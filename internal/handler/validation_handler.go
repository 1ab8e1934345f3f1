package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/shared/errors"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
	"github.com/vhvplatform/go-outreach-service/internal/slots"
)

// ValidationHandler answers configuration validation queries for campaign
// setup forms. It is pure computation, safe to call on every keystroke.
type ValidationHandler struct {
	log *logger.Logger
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(log *logger.Logger) *ValidationHandler {
	return &ValidationHandler{log: log}
}

// Validate checks a scheduling configuration and reports structured errors
// plus the number of slots it admits
func (h *ValidationHandler) Validate(c *gin.Context) {
	var req domain.ValidateConfigRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	now := time.Now()
	items := slots.Validate(req.Config, req.Requested, now)
	available, err := slots.AvailableSlotCount(req.Config, now)
	if err != nil {
		// Timezone failures already surface as a validation item
		available = 0
	}

	c.JSON(http.StatusOK, domain.ValidateConfigResponse{
		Valid:     len(items) == 0,
		Errors:    items,
		Available: available,
	})
}

// Presets returns the selectable scheduling presets with their settings
func (h *ValidationHandler) Presets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"presets": []gin.H{
			{"name": domain.PresetBusinessHours, "config": domain.PresetConfig(domain.PresetBusinessHours)},
			{"name": domain.PresetAfternoon, "config": domain.PresetConfig(domain.PresetAfternoon)},
		},
	})
}
