package domain

// ValidateConfigRequest asks the validation surface to check a scheduling
// configuration. Safe to call repeatedly for live form feedback.
type ValidateConfigRequest struct {
	AccountID string           `json:"account_id" binding:"required"`
	Config    SchedulingConfig `json:"config" binding:"required"`
	Requested int              `json:"requested"` // prospect count, 0 to skip capacity check
}

// ValidateConfigResponse reports validation outcome for campaign setup forms
type ValidateConfigResponse struct {
	Valid     bool             `json:"valid"`
	Errors    []ValidationItem `json:"errors,omitempty"`
	Available int              `json:"available_slots"`
}

// ValidationItem is a single structured validation failure
type ValidationItem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RunCampaignRequest triggers a scheduling run for a campaign
type RunCampaignRequest struct {
	AccountID string `json:"account_id" binding:"required"`
}

// CreateCampaignRequest creates a campaign with its selected identity pool
type CreateCampaignRequest struct {
	AccountID   string            `json:"account_id" binding:"required"`
	Name        string            `json:"name" binding:"required"`
	IdentityIDs []string          `json:"identity_ids" binding:"required,min=1"`
	Prospects   []Prospect        `json:"prospects,omitempty"`
	Config      *SchedulingConfig `json:"config,omitempty"`
}
