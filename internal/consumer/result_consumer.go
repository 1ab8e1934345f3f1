package consumer

import (
	"context"
	"encoding/json"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/service"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
	"github.com/vhvplatform/go-outreach-service/internal/shared/rabbitmq"
)

const (
	resultExchange   = "outreach.results"
	resultQueue      = "outreach_result_queue"
	resultRoutingKey = "result.*"
	consumerTag      = "outreach-result-consumer"
)

// ResultConsumer consumes send results from RabbitMQ and feeds them back
// into work item state and identity health
type ResultConsumer struct {
	client     *rabbitmq.RabbitMQClient
	invites    service.InviteStore
	workItems  service.WorkItemStore
	balancer   *service.LoadBalancer
	log        *logger.Logger
	maxRetries int
}

// NewResultConsumer creates a new result consumer
func NewResultConsumer(client *rabbitmq.RabbitMQClient, invites service.InviteStore, workItems service.WorkItemStore, balancer *service.LoadBalancer, log *logger.Logger, maxRetries int) *ResultConsumer {
	return &ResultConsumer{
		client:     client,
		invites:    invites,
		workItems:  workItems,
		balancer:   balancer,
		log:        log,
		maxRetries: maxRetries,
	}
}

// Start starts consuming send results from RabbitMQ
func (c *ResultConsumer) Start() error {
	c.log.Info("Starting result consumer", "queue", resultQueue)

	if err := c.client.DeclareExchange(resultExchange, "topic"); err != nil {
		c.log.Error("Failed to declare exchange", "error", err)
		return err
	}
	if err := c.client.DeclareQueue(resultQueue); err != nil {
		c.log.Error("Failed to declare queue", "error", err)
		return err
	}
	if err := c.client.BindQueue(resultQueue, resultRoutingKey, resultExchange); err != nil {
		c.log.Error("Failed to bind queue", "error", err)
		return err
	}

	messages, err := c.client.Consume(resultQueue, consumerTag)
	if err != nil {
		c.log.Error("Failed to start consuming", "error", err)
		return err
	}

	for msg := range messages {
		var result domain.SendResult
		if err := json.Unmarshal(msg.Body, &result); err != nil {
			c.log.Error("Failed to unmarshal send result", "error", err)
			msg.Nack(false, false) // Don't requeue invalid messages
			continue
		}

		ctx := context.Background()
		if err := c.processResult(ctx, &result); err != nil {
			c.log.Error("Failed to process send result", "error", err, "work_item_id", result.WorkItemID)
			msg.Nack(false, true) // Requeue for retry
			continue
		}

		msg.Ack(false)
		c.log.Info("Send result processed", "work_item_id", result.WorkItemID, "success", result.Success)
	}

	return nil
}

// processResult persists the invite outcome, settles the work item and
// updates the identity's health counters
func (c *ResultConsumer) processResult(ctx context.Context, result *domain.SendResult) error {
	invite := &domain.InviteRecord{
		IdentityID:    result.IdentityID,
		CampaignID:    result.CampaignID,
		ProspectEmail: result.ProspectEmail,
		Success:       result.Success,
		Error:         result.Error,
		SentAt:        result.SentAt,
	}
	if err := c.invites.Create(ctx, invite); err != nil {
		return err
	}

	if result.Success {
		if err := c.workItems.MarkCompleted(ctx, result.WorkItemID); err != nil {
			return err
		}
	} else {
		if err := c.workItems.MarkFailed(ctx, result.WorkItemID, result.Error, c.maxRetries); err != nil {
			return err
		}
	}

	return c.balancer.RecordUsage(ctx, result.IdentityID, result.Success)
}
