package whatsapp

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aforsev/storefront-backend/internal/cart"
	product "github.com/aforsev/storefront-backend/internal/products"
	"github.com/aforsev/storefront-backend/pkg/config"
	"github.com/aforsev/storefront-backend/pkg/db/models"
	"github.com/aforsev/storefront-backend/pkg/enums"
	pkgerrors "github.com/aforsev/storefront-backend/pkg/errors"
	"github.com/aforsev/storefront-backend/pkg/logger"
)

type sentMessage struct {
	to   string
	body string
}

type stubSender struct {
	sent []sentMessage
	err  error
}

func (s *stubSender) SendText(ctx context.Context, to, body string) (*SendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, sentMessage{to: to, body: body})
	return &SendResult{MessageID: "wamid.stub"}, nil
}

type stubCartReader struct {
	cart *cart.CartDTO
	err  error
}

func (s *stubCartReader) GetCart(ctx context.Context, owner cart.Identity) (*cart.CartDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cart, nil
}

type stubProductReader struct {
	product *product.ProductDTO
	err     error
}

func (s *stubProductReader) GetProduct(ctx context.Context, id uuid.UUID) (*product.ProductDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

type stubOrderReader struct {
	order *models.Order
}

func (s *stubOrderReader) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

type stubUserReader struct {
	user *models.User
}

func (s *stubUserReader) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

type whatsappTestEnv struct {
	svc      Service
	sender   *stubSender
	carts    *stubCartReader
	products *stubProductReader
	orders   *stubOrderReader
	users    *stubUserReader
}

func newWhatsAppTestEnv(t *testing.T, configured bool) *whatsappTestEnv {
	t.Helper()

	env := &whatsappTestEnv{
		sender:   &stubSender{},
		carts:    &stubCartReader{},
		products: &stubProductReader{},
		orders:   &stubOrderReader{},
		users:    &stubUserReader{},
	}

	params := ServiceParams{
		Carts:    env.carts,
		Products: env.products,
		Orders:   env.orders,
		Users:    env.users,
		Logger:   logger.New(logger.Options{ServiceName: "whatsapp-test", Level: zerolog.ErrorLevel}),
	}
	if configured {
		params.Config = config.WhatsAppConfig{
			AccessToken:       "token",
			PhoneNumberID:     "555000",
			VerifyToken:       "verify-123",
			BusinessAccountID: "biz",
			APIVersion:        "v19.0",
		}
		params.Sender = env.sender
	}

	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	env.svc = svc
	return env
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	domainErr := pkgerrors.As(err)
	if domainErr == nil {
		t.Fatalf("expected domain error, got %v", err)
	}
	if domainErr.Code() != code {
		t.Fatalf("expected code %s, got %s", code, domainErr.Code())
	}
}

func TestServiceStatus(t *testing.T) {
	env := newWhatsAppTestEnv(t, true)
	status := env.svc.Status()
	if !status.Configured || status.PhoneNumberID != "555000" {
		t.Errorf("unexpected status %+v", status)
	}

	disabled := newWhatsAppTestEnv(t, false)
	status = disabled.svc.Status()
	if status.Configured || status.PhoneNumberID != "" {
		t.Errorf("expected disabled status, got %+v", status)
	}
}

func TestServiceVerifyWebhook(t *testing.T) {
	env := newWhatsAppTestEnv(t, true)

	challenge, err := env.svc.VerifyWebhook("subscribe", "verify-123", "challenge-42")
	if err != nil {
		t.Fatalf("VerifyWebhook: %v", err)
	}
	if challenge != "challenge-42" {
		t.Errorf("expected echoed challenge, got %q", challenge)
	}

	_, err = env.svc.VerifyWebhook("subscribe", "wrong-token", "challenge-42")
	expectCode(t, err, pkgerrors.CodeForbidden)

	_, err = env.svc.VerifyWebhook("unsubscribe", "verify-123", "challenge-42")
	expectCode(t, err, pkgerrors.CodeForbidden)

	disabled := newWhatsAppTestEnv(t, false)
	_, err = disabled.svc.VerifyWebhook("subscribe", "verify-123", "challenge-42")
	expectCode(t, err, pkgerrors.CodeDependency)
}

func TestServiceProcessWebhookReplies(t *testing.T) {
	env := newWhatsAppTestEnv(t, true)
	ctx := context.Background()

	payload := WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []WebhookEntry{{
			ID: "entry-1",
			Changes: []WebhookChange{{
				Field: "messages",
				Value: WebhookValue{Messages: []InboundMessage{
					{From: "15550001111", ID: "m1", Type: "text", Text: &InboundText{Body: "hi"}},
					{From: "15550002222", ID: "m2", Type: "interactive", Interactive: &InboundInteractive{
						Type:        "button_reply",
						ButtonReply: &InboundButtonReply{ID: "browse_products", Title: "Browse"},
					}},
					{From: "15550003333", ID: "m3", Type: "image"},
				}},
			}},
		}},
	}

	if err := env.svc.ProcessWebhook(ctx, payload); err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}

	if len(env.sender.sent) != 3 {
		t.Fatalf("expected 3 replies, got %d", len(env.sender.sent))
	}
	if env.sender.sent[0].to != "15550001111" || !strings.Contains(env.sender.sent[0].body, "Thank you for your message") {
		t.Errorf("unexpected text reply %+v", env.sender.sent[0])
	}
	if !strings.Contains(env.sender.sent[1].body, "browse our products") {
		t.Errorf("unexpected button reply %+v", env.sender.sent[1])
	}
	if !strings.Contains(env.sender.sent[2].body, "image") {
		t.Errorf("unexpected media reply %+v", env.sender.sent[2])
	}
}

func TestServiceProcessWebhookDisabledIsNoOp(t *testing.T) {
	env := newWhatsAppTestEnv(t, false)

	err := env.svc.ProcessWebhook(context.Background(), WebhookPayload{
		Entry: []WebhookEntry{{Changes: []WebhookChange{{
			Value: WebhookValue{Messages: []InboundMessage{{From: "1555", Type: "text", Text: &InboundText{Body: "hi"}}}},
		}}}},
	})
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if len(env.sender.sent) != 0 {
		t.Errorf("expected no replies, got %d", len(env.sender.sent))
	}
}

func TestServiceShareCart(t *testing.T) {
	env := newWhatsAppTestEnv(t, true)
	ctx := context.Background()

	env.carts.cart = &cart.CartDTO{
		ID: uuid.New(),
		Items: []cart.CartItemDTO{
			{Name: "Coffee", PriceAtTime: decimal.RequireFromString("10.00"), Quantity: 2},
			{Name: "Tea", PriceAtTime: decimal.RequireFromString("4.50"), Quantity: 1},
		},
		TotalPrice: decimal.RequireFromString("24.50"),
	}

	result, err := env.svc.ShareCart(ctx, cart.GuestIdentity("sess-1"), "15551234567", "")
	if err != nil {
		t.Fatalf("ShareCart: %v", err)
	}
	if result.MessageID != "wamid.stub" {
		t.Errorf("unexpected result %+v", result)
	}

	body := env.sender.sent[0].body
	if !strings.Contains(body, "1. Coffee - $10.00 x 2") || !strings.Contains(body, "Total: $24.50") {
		t.Errorf("unexpected share body:\n%s", body)
	}

	// A custom message replaces the template.
	_, err = env.svc.ShareCart(ctx, cart.GuestIdentity("sess-1"), "15551234567", "custom note")
	if err != nil {
		t.Fatalf("ShareCart custom: %v", err)
	}
	if env.sender.sent[1].body != "custom note" {
		t.Errorf("expected custom body, got %q", env.sender.sent[1].body)
	}
}

func TestServiceShareCartEmpty(t *testing.T) {
	env := newWhatsAppTestEnv(t, true)
	env.carts.cart = &cart.CartDTO{ID: uuid.New(), TotalPrice: decimal.Zero}

	_, err := env.svc.ShareCart(context.Background(), cart.GuestIdentity("sess-1"), "15551234567", "")
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceShareProduct(t *testing.T) {
	env := newWhatsAppTestEnv(t, true)
	description := "bright and fruity"
	env.products.product = &product.ProductDTO{
		ID:          uuid.New(),
		Name:        "Morning Roast",
		Price:       decimal.RequireFromString("14.50"),
		Description: &description,
	}

	_, err := env.svc.ShareProduct(context.Background(), env.products.product.ID, "15551234567", "")
	if err != nil {
		t.Fatalf("ShareProduct: %v", err)
	}
	body := env.sender.sent[0].body
	if !strings.Contains(body, "Morning Roast") || !strings.Contains(body, "$14.50") || !strings.Contains(body, "bright and fruity") {
		t.Errorf("unexpected inquiry body:\n%s", body)
	}
}

func TestServiceSendOrderConfirmation(t *testing.T) {
	env := newWhatsAppTestEnv(t, true)
	orderID := uuid.New()
	env.orders.order = &models.Order{
		ID:     orderID,
		Status: enums.OrderStatusConfirmed,
		Total:  decimal.RequireFromString("29.00"),
	}

	_, err := env.svc.SendOrderConfirmation(context.Background(), orderID, "15551234567")
	if err != nil {
		t.Fatalf("SendOrderConfirmation: %v", err)
	}
	body := env.sender.sent[0].body
	if !strings.Contains(body, orderID.String()) || !strings.Contains(body, "$29.00") || !strings.Contains(body, "confirmed") {
		t.Errorf("unexpected confirmation body:\n%s", body)
	}

	_, err = env.svc.SendOrderConfirmation(context.Background(), uuid.New(), "15551234567")
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceSendWelcome(t *testing.T) {
	env := newWhatsAppTestEnv(t, true)
	userID := uuid.New()
	env.users.user = &models.User{ID: userID, Name: "Dana"}

	_, err := env.svc.SendWelcome(context.Background(), userID, "15551234567")
	if err != nil {
		t.Fatalf("SendWelcome: %v", err)
	}
	if !strings.Contains(env.sender.sent[0].body, "Welcome to AFORSEV, Dana!") {
		t.Errorf("unexpected welcome body:\n%s", env.sender.sent[0].body)
	}

	_, err = env.svc.SendWelcome(context.Background(), uuid.New(), "15551234567")
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceOperationsRequireConfiguration(t *testing.T) {
	env := newWhatsAppTestEnv(t, false)
	ctx := context.Background()

	_, err := env.svc.ShareCart(ctx, cart.GuestIdentity("sess-1"), "1555", "")
	expectCode(t, err, pkgerrors.CodeDependency)

	_, err = env.svc.ShareProduct(ctx, uuid.New(), "1555", "")
	expectCode(t, err, pkgerrors.CodeDependency)

	_, err = env.svc.SendTest(ctx, "1555", "")
	expectCode(t, err, pkgerrors.CodeDependency)
}
