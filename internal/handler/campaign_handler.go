package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/service"
	"github.com/vhvplatform/go-outreach-service/internal/shared/errors"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
)

// CampaignHandler handles HTTP requests for campaigns
type CampaignHandler struct {
	scheduler *service.SchedulerService
	workItems service.WorkItemStore
	log       *logger.Logger
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(scheduler *service.SchedulerService, workItems service.WorkItemStore, log *logger.Logger) *CampaignHandler {
	return &CampaignHandler{
		scheduler: scheduler,
		workItems: workItems,
		log:       log,
	}
}

// Create handles campaign creation requests
func (h *CampaignHandler) Create(c *gin.Context) {
	var req domain.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	campaign, err := h.scheduler.CreateCampaign(c.Request.Context(), &req)
	if err != nil {
		if cfgErr, ok := err.(*errors.ConfigurationError); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Error(), "fields": cfgErr.Fields})
			return
		}
		h.log.Error("Failed to create campaign", "error", err, "account_id", req.AccountID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to create campaign", err))
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// Run triggers a scheduling pass for a campaign
func (h *CampaignHandler) Run(c *gin.Context) {
	campaignID := c.Param("id")

	summary, err := h.scheduler.RunCampaign(c.Request.Context(), campaignID)
	if err != nil {
		h.respondRunError(c, campaignID, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Pause halts a campaign and voids its pending work items
func (h *CampaignHandler) Pause(c *gin.Context) {
	campaignID := c.Param("id")

	cancelled, err := h.scheduler.PauseCampaign(c.Request.Context(), campaignID)
	if err != nil {
		h.log.Error("Failed to pause campaign", "error", err, "campaign_id", campaignID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to pause campaign", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Campaign paused",
		"cancelled": cancelled,
	})
}

// Resume reactivates a paused campaign
func (h *CampaignHandler) Resume(c *gin.Context) {
	campaignID := c.Param("id")

	if err := h.scheduler.ResumeCampaign(c.Request.Context(), campaignID); err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == "VALIDATION_ERROR" {
			c.JSON(http.StatusConflict, appErr)
			return
		}
		h.log.Error("Failed to resume campaign", "error", err, "campaign_id", campaignID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to resume campaign", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Campaign resumed",
	})
}

// Delete soft-deletes a campaign
func (h *CampaignHandler) Delete(c *gin.Context) {
	campaignID := c.Param("id")

	if err := h.scheduler.DeleteCampaign(c.Request.Context(), campaignID); err != nil {
		h.log.Error("Failed to delete campaign", "error", err, "campaign_id", campaignID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to delete campaign", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Campaign deleted",
	})
}

// ListItems returns a campaign's work items, optionally filtered by status
func (h *CampaignHandler) ListItems(c *gin.Context) {
	campaignID := c.Param("id")
	status := domain.WorkItemStatus(c.Query("status"))

	items, err := h.workItems.ListByCampaign(c.Request.Context(), campaignID, status)
	if err != nil {
		h.log.Error("Failed to list work items", "error", err, "campaign_id", campaignID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to list work items", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *CampaignHandler) respondRunError(c *gin.Context, campaignID string, err error) {
	switch e := err.(type) {
	case *errors.NoAvailableIdentityError:
		c.JSON(http.StatusConflict, gin.H{"error": e.Error()})
	case *errors.InsufficientSlotsError:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": e.Error()})
	case *errors.AppError:
		if e.Code == "VALIDATION_ERROR" {
			c.JSON(http.StatusConflict, e)
			return
		}
		h.log.Error("Failed to run campaign", "error", err, "campaign_id", campaignID)
		c.JSON(http.StatusInternalServerError, e)
	default:
		h.log.Error("Failed to run campaign", "error", err, "campaign_id", campaignID)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to run campaign", err))
	}
}
