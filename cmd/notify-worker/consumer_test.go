package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aforsev/storefront-backend/internal/whatsapp"
	"github.com/aforsev/storefront-backend/pkg/db/models"
	"github.com/aforsev/storefront-backend/pkg/enums"
	"github.com/aforsev/storefront-backend/pkg/logger"
	"github.com/aforsev/storefront-backend/pkg/outbox"
)

type fakeSender struct {
	configured    bool
	orderIDs      []uuid.UUID
	welcomeIDs    []uuid.UUID
	phones        []string
	sendErr       error
	welcomeCalled int
}

func (f *fakeSender) Status() whatsapp.StatusDTO {
	return whatsapp.StatusDTO{Configured: f.configured}
}

func (f *fakeSender) SendOrderConfirmation(ctx context.Context, orderID uuid.UUID, phone string) (*whatsapp.SendResult, error) {
	f.orderIDs = append(f.orderIDs, orderID)
	f.phones = append(f.phones, phone)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &whatsapp.SendResult{}, nil
}

func (f *fakeSender) SendWelcome(ctx context.Context, userID uuid.UUID, phone string) (*whatsapp.SendResult, error) {
	f.welcomeCalled++
	f.welcomeIDs = append(f.welcomeIDs, userID)
	f.phones = append(f.phones, phone)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &whatsapp.SendResult{}, nil
}

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type fakeDedup struct {
	seen    map[string]bool
	setErr  error
	deleted []string
}

func (f *fakeDedup) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeDedup) Del(ctx context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	for _, key := range keys {
		delete(f.seen, key)
	}
	return nil
}

func newTestConsumer(t *testing.T, sender *fakeSender, users *fakeUsers, dedup *fakeDedup) *Consumer {
	t.Helper()
	return &Consumer{
		logg:   logger.New(logger.Options{ServiceName: "notify-worker-test", Output: io.Discard}),
		users:  users,
		sender: sender,
		dedup:  dedup,
	}
}

func envelopeBytes(t *testing.T, data map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       payload,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func userWithPhone(phone string) *models.User {
	return &models.User{ID: uuid.New(), Phone: &phone}
}

func TestConsumerSendsOrderConfirmation(t *testing.T) {
	user := userWithPhone("+5215512345678")
	orderID := uuid.New()
	sender := &fakeSender{configured: true}
	consumer := newTestConsumer(t, sender, &fakeUsers{users: map[uuid.UUID]*models.User{user.ID: user}}, &fakeDedup{})

	result := consumer.process(context.Background(),
		map[string]string{"event_type": string(enums.EventOrderCreated)},
		envelopeBytes(t, map[string]any{"orderId": orderID.String(), "userId": user.ID.String()}),
	)
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(sender.orderIDs) != 1 || sender.orderIDs[0] != orderID {
		t.Fatalf("order confirmation not sent for %s", orderID)
	}
	if sender.phones[0] != "+5215512345678" {
		t.Fatalf("unexpected phone %q", sender.phones[0])
	}
}

func TestConsumerSendsWelcomeOnRegistration(t *testing.T) {
	user := userWithPhone("+5215599999999")
	sender := &fakeSender{configured: true}
	consumer := newTestConsumer(t, sender, &fakeUsers{users: map[uuid.UUID]*models.User{user.ID: user}}, &fakeDedup{})

	result := consumer.process(context.Background(),
		map[string]string{"event_type": string(enums.EventUserRegistered)},
		envelopeBytes(t, map[string]any{"userId": user.ID.String()}),
	)
	if !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if sender.welcomeCalled != 1 {
		t.Fatalf("welcome message not sent")
	}
}

func TestConsumerSkipsUnrelatedEvents(t *testing.T) {
	sender := &fakeSender{configured: true}
	consumer := newTestConsumer(t, sender, &fakeUsers{}, &fakeDedup{})

	result := consumer.process(context.Background(),
		map[string]string{"event_type": string(enums.EventCartShared)},
		[]byte(`{}`),
	)
	if !result.ack {
		t.Fatalf("expected ack for unrelated event")
	}
	if len(sender.orderIDs) != 0 || sender.welcomeCalled != 0 {
		t.Fatalf("unexpected send for unrelated event")
	}
}

func TestConsumerDeduplicatesRedelivery(t *testing.T) {
	user := userWithPhone("+5215512345678")
	sender := &fakeSender{configured: true}
	dedup := &fakeDedup{}
	consumer := newTestConsumer(t, sender, &fakeUsers{users: map[uuid.UUID]*models.User{user.ID: user}}, dedup)

	data := envelopeBytes(t, map[string]any{"orderId": uuid.NewString(), "userId": user.ID.String()})
	attrs := map[string]string{"event_type": string(enums.EventOrderConfirmed)}

	first := consumer.process(context.Background(), attrs, data)
	second := consumer.process(context.Background(), attrs, data)
	if !first.ack || !second.ack {
		t.Fatalf("expected both deliveries acked")
	}
	if len(sender.orderIDs) != 1 {
		t.Fatalf("redelivery sent a duplicate message: %d sends", len(sender.orderIDs))
	}
}

func TestConsumerNacksOnTransientSendFailure(t *testing.T) {
	user := userWithPhone("+5215512345678")
	sender := &fakeSender{configured: true, sendErr: errors.New("graph api timeout")}
	dedup := &fakeDedup{}
	consumer := newTestConsumer(t, sender, &fakeUsers{users: map[uuid.UUID]*models.User{user.ID: user}}, dedup)

	result := consumer.process(context.Background(),
		map[string]string{"event_type": string(enums.EventOrderCreated)},
		envelopeBytes(t, map[string]any{"orderId": uuid.NewString(), "userId": user.ID.String()}),
	)
	if !result.nack {
		t.Fatalf("expected nack on send failure, got %+v", result)
	}
	if len(dedup.deleted) != 1 {
		t.Fatalf("dedup key not released for retry")
	}
}

func TestConsumerAcksWhenUserHasNoPhone(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	sender := &fakeSender{configured: true}
	consumer := newTestConsumer(t, sender, &fakeUsers{users: map[uuid.UUID]*models.User{user.ID: user}}, &fakeDedup{})

	result := consumer.process(context.Background(),
		map[string]string{"event_type": string(enums.EventOrderCreated)},
		envelopeBytes(t, map[string]any{"orderId": uuid.NewString(), "userId": user.ID.String()}),
	)
	if !result.ack {
		t.Fatalf("expected ack when phone missing")
	}
	if len(sender.orderIDs) != 0 {
		t.Fatalf("message sent despite missing phone")
	}
}

func TestConsumerDropsEventsWhenUnconfigured(t *testing.T) {
	sender := &fakeSender{configured: false}
	consumer := newTestConsumer(t, sender, &fakeUsers{}, &fakeDedup{})

	result := consumer.process(context.Background(),
		map[string]string{"event_type": string(enums.EventOrderCreated)},
		[]byte(`{}`),
	)
	if !result.ack {
		t.Fatalf("expected ack when integration disabled")
	}
}

func TestConsumerAcksMissingUserAsUndeliverable(t *testing.T) {
	sender := &fakeSender{configured: true}
	consumer := newTestConsumer(t, sender, &fakeUsers{}, &fakeDedup{})

	result := consumer.process(context.Background(),
		map[string]string{"event_type": string(enums.EventUserRegistered)},
		envelopeBytes(t, map[string]any{"userId": uuid.NewString()}),
	)
	if !result.ack || result.nack {
		t.Fatalf("expected undeliverable event dropped, got %+v", result)
	}
	if sender.welcomeCalled != 0 {
		t.Fatalf("welcome sent for missing user")
	}
}
