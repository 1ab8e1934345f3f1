package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/metrics"
	"github.com/vhvplatform/go-outreach-service/internal/queue"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
)

const (
	// SendExchange is the exchange outbound send commands are published to
	SendExchange = "outreach.send"
	// SendRoutingKey routes send commands to the send worker queue
	SendRoutingKey = "send.email"
)

// Publisher publishes a message body to an exchange
type Publisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// SendCommand is the message handed to the send workers for one work item
type SendCommand struct {
	WorkItemID    string          `json:"work_item_id"`
	CampaignID    string          `json:"campaign_id"`
	IdentityID    string          `json:"identity_id"`
	ProspectEmail string          `json:"prospect_email"`
	Prospect      domain.Prospect `json:"prospect"`
	ScheduledAt   time.Time       `json:"scheduled_at"`
	AttemptCount  int             `json:"attempt_count"`
}

// Dispatcher moves due work items from storage onto the send exchange. Items
// are claimed with a conditional status flip, so concurrent dispatchers never
// publish the same item twice.
type Dispatcher struct {
	workItems  WorkItemStore
	publisher  Publisher
	log        *logger.Logger
	pending    *queue.DispatchQueue
	batchLimit int
	maxRetries int
	now        func() time.Time
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(workItems WorkItemStore, publisher Publisher, log *logger.Logger, batchLimit, maxRetries int) *Dispatcher {
	if batchLimit <= 0 {
		batchLimit = 100
	}
	return &Dispatcher{
		workItems:  workItems,
		publisher:  publisher,
		log:        log,
		pending:    queue.NewDispatchQueue(),
		batchLimit: batchLimit,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// DispatchDue claims due pending work items and publishes a send command for
// each. A publish failure marks the item failed so the retry path re-pends
// it; it never stalls the rest of the batch. Returns the number published.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	now := d.now()
	claimed, err := d.workItems.ClaimDue(ctx, now, d.batchLimit)
	if err != nil {
		return 0, err
	}
	for _, item := range claimed {
		d.pending.Push(item)
	}
	metrics.DispatchQueueSize.Set(float64(d.pending.Len()))

	published := 0
	for {
		item := d.pending.PopDue(now)
		if item == nil {
			break
		}
		if err := d.publish(item); err != nil {
			d.log.Error("Publish failed for work item", "work_item_id", item.ID.Hex(), "error", err)
			if markErr := d.workItems.MarkFailed(ctx, item.ID.Hex(), err.Error(), d.maxRetries); markErr != nil {
				d.log.Error("Could not mark work item failed", "work_item_id", item.ID.Hex(), "error", markErr)
			}
			continue
		}
		published++
	}
	metrics.DispatchQueueSize.Set(float64(d.pending.Len()))
	return published, nil
}

func (d *Dispatcher) publish(item *domain.ScheduledWorkItem) error {
	cmd := SendCommand{
		WorkItemID:    item.ID.Hex(),
		CampaignID:    item.CampaignID,
		IdentityID:    item.IdentityID,
		ProspectEmail: item.ProspectEmail,
		Prospect:      item.Prospect,
		ScheduledAt:   item.ScheduledAt,
		AttemptCount:  item.AttemptCount,
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return d.publisher.Publish(SendExchange, SendRoutingKey, body)
}
