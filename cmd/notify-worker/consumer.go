package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aforsev/storefront-backend/internal/whatsapp"
	"github.com/aforsev/storefront-backend/pkg/db/models"
	"github.com/aforsev/storefront-backend/pkg/enums"
	pkgerrors "github.com/aforsev/storefront-backend/pkg/errors"
	"github.com/aforsev/storefront-backend/pkg/logger"
	"github.com/aforsev/storefront-backend/pkg/outbox"
)

const (
	dedupKeyFormat = "aforsev:notify:event:%s"
	dedupTTL       = 24 * time.Hour
)

type notificationSender interface {
	Status() whatsapp.StatusDTO
	SendOrderConfirmation(ctx context.Context, orderID uuid.UUID, phone string) (*whatsapp.SendResult, error)
	SendWelcome(ctx context.Context, userID uuid.UUID, phone string) (*whatsapp.SendResult, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type dedupStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// ConsumerParams bundle the notification consumer dependencies.
type ConsumerParams struct {
	Logger       *logger.Logger
	Subscription *gcppubsub.Subscriber
	Users        userLookup
	Sender       notificationSender
	Dedup        dedupStore
}

// Consumer turns domain events from the notification subscription into
// WhatsApp messages. Pub/Sub delivers at least once, so every event is
// deduplicated in Redis before a message goes out.
type Consumer struct {
	logg         *logger.Logger
	subscription *gcppubsub.Subscriber
	users        userLookup
	sender       notificationSender
	dedup        dedupStore
}

// NewConsumer builds the notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("whatsapp service required")
	}
	if params.Dedup == nil {
		return nil, fmt.Errorf("dedup store required")
	}
	return &Consumer{
		logg:         params.Logger,
		subscription: params.Subscription,
		users:        params.Users,
		sender:       params.Sender,
		dedup:        params.Dedup,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		result := c.process(ctx, msg.Attributes, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

type orderEventPayload struct {
	OrderID uuid.UUID `json:"orderId"`
	UserID  uuid.UUID `json:"userId"`
}

type userEventPayload struct {
	UserID uuid.UUID `json:"userId"`
}

func (c *Consumer) process(ctx context.Context, attributes map[string]string, data []byte) processResult {
	eventType := attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_type": eventType,
	})

	switch enums.OutboxEventType(eventType) {
	case enums.EventOrderCreated, enums.EventOrderConfirmed, enums.EventUserRegistered:
	default:
		c.logg.Info(logCtx, "skipping event without notification")
		return processResult{ack: true}
	}

	if !c.sender.Status().Configured {
		c.logg.Warn(logCtx, "whatsapp integration not configured, dropping event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if envelope.EventID == "" {
		c.logg.Warn(logCtx, "envelope missing event id")
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	dedupKey := fmt.Sprintf(dedupKeyFormat, envelope.EventID)
	fresh, err := c.dedup.SetNX(ctx, dedupKey, time.Now().UTC().Format(time.RFC3339), dedupTTL)
	if err != nil {
		c.logg.Error(logCtx, "dedup check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, enums.OutboxEventType(eventType), envelope.Data, logCtx); err != nil {
		if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
			c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "dropping undeliverable event")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.dedup.Del(ctx, dedupKey)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderCreated, enums.EventOrderConfirmed:
		var payload orderEventPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse order payload")
		}
		phone, err := c.phoneFor(ctx, payload.UserID)
		if err != nil {
			return err
		}
		if phone == "" {
			c.logg.Info(logCtx, "user has no phone on file")
			return nil
		}
		_, err = c.sender.SendOrderConfirmation(ctx, payload.OrderID, phone)
		return err

	case enums.EventUserRegistered:
		var payload userEventPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse user payload")
		}
		phone, err := c.phoneFor(ctx, payload.UserID)
		if err != nil {
			return err
		}
		if phone == "" {
			c.logg.Info(logCtx, "user has no phone on file")
			return nil
		}
		_, err = c.sender.SendWelcome(ctx, payload.UserID, phone)
		return err
	}
	return nil
}

func (c *Consumer) phoneFor(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil || user.Phone == nil {
		return "", nil
	}
	return *user.Phone, nil
}
