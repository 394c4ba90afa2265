package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aforsev/storefront-backend/internal/cart"
	product "github.com/aforsev/storefront-backend/internal/products"
	"github.com/aforsev/storefront-backend/pkg/config"
	"github.com/aforsev/storefront-backend/pkg/db/models"
	"github.com/aforsev/storefront-backend/pkg/enums"
	pkgerrors "github.com/aforsev/storefront-backend/pkg/errors"
	"github.com/aforsev/storefront-backend/pkg/logger"
	"github.com/aforsev/storefront-backend/pkg/outbox"
)

type messageSender interface {
	SendText(ctx context.Context, to, body string) (*SendResult, error)
}

type cartReader interface {
	GetCart(ctx context.Context, owner cart.Identity) (*cart.CartDTO, error)
}

type productReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*product.ProductDTO, error)
}

type orderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StatusDTO reports whether the messaging integration is live.
type StatusDTO struct {
	Configured    bool   `json:"configured"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
	APIVersion    string `json:"api_version,omitempty"`
}

// Service exposes the WhatsApp messaging surface: webhook verification,
// inbound dispatch, and outbound share/notification messages.
type Service interface {
	Status() StatusDTO
	VerifyWebhook(mode, token, challenge string) (string, error)
	ProcessWebhook(ctx context.Context, payload WebhookPayload) error
	ShareCart(ctx context.Context, owner cart.Identity, phone, customMessage string) (*SendResult, error)
	ShareProduct(ctx context.Context, productID uuid.UUID, phone, customMessage string) (*SendResult, error)
	SendOrderConfirmation(ctx context.Context, orderID uuid.UUID, phone string) (*SendResult, error)
	SendWelcome(ctx context.Context, userID uuid.UUID, phone string) (*SendResult, error)
	SendTest(ctx context.Context, phone, message string) (*SendResult, error)
}

// ServiceParams bundles the service dependencies. Sender may be nil when
// the Graph credentials are absent; every operation then fails cleanly.
type ServiceParams struct {
	Config   config.WhatsAppConfig
	Sender   messageSender
	Carts    cartReader
	Products productReader
	Orders   orderReader
	Users    userReader
	Tx       txRunner
	Outbox   outboxEmitter
	Logger   *logger.Logger
}

type service struct {
	cfg      config.WhatsAppConfig
	sender   messageSender
	carts    cartReader
	products productReader
	orders   orderReader
	users    userReader
	tx       txRunner
	outbox   outboxEmitter
	logg     *logger.Logger
}

// NewService constructs the WhatsApp service.
func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cfg:      params.Config,
		sender:   params.Sender,
		carts:    params.Carts,
		products: params.Products,
		orders:   params.Orders,
		users:    params.Users,
		tx:       params.Tx,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

func (s *service) configured() bool {
	return s.sender != nil && s.cfg.Configured()
}

func (s *service) Status() StatusDTO {
	status := StatusDTO{Configured: s.configured()}
	if status.Configured {
		status.PhoneNumberID = s.cfg.PhoneNumberID
		status.APIVersion = s.cfg.APIVersion
	}
	return status
}

// VerifyWebhook answers Meta's subscription handshake. The challenge is
// echoed back only for a matching verify token.
func (s *service) VerifyWebhook(mode, token, challenge string) (string, error) {
	if !s.configured() {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "whatsapp integration not configured")
	}
	if mode != "subscribe" || token != s.cfg.VerifyToken {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "invalid verification token")
	}
	return challenge, nil
}

// ProcessWebhook dispatches every inbound message. Reply failures are
// logged and skipped so one bad message never fails the delivery; Meta
// retries the whole batch otherwise.
func (s *service) ProcessWebhook(ctx context.Context, payload WebhookPayload) error {
	if !s.configured() {
		s.logg.Warn(ctx, "whatsapp webhook received while integration disabled")
		return nil
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, message := range change.Value.Messages {
				s.handleInbound(ctx, message)
			}
		}
	}
	return nil
}

func (s *service) handleInbound(ctx context.Context, message InboundMessage) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"from":         message.From,
		"message_id":   message.ID,
		"message_kind": message.kind(),
	})

	var reply string
	switch message.kind() {
	case "text":
		s.logg.Info(logCtx, "inbound text message")
		reply = "Thank you for your message! We'll get back to you shortly.\n\n" +
			"You can also:\n" +
			"- Type \"cart\" to share your cart\n" +
			"- Type \"products\" to browse our catalog\n" +
			"- Type \"help\" for assistance"
	case "interactive":
		s.logg.Info(logCtx, "inbound interactive message")
		reply = s.interactiveReply(message.Interactive)
	case "media":
		s.logg.Info(logCtx, "inbound media message")
		reply = fmt.Sprintf("Thanks for sharing the %s! Our team will review it and get back to you if needed.", message.Type)
	default:
		s.logg.Info(logCtx, "inbound message type unhandled")
		return
	}

	if _, err := s.sender.SendText(ctx, message.From, reply); err != nil {
		s.logg.Error(logCtx, "send webhook reply", err)
	}
}

func (s *service) interactiveReply(interactive *InboundInteractive) string {
	if interactive == nil || interactive.Type != "button_reply" || interactive.ButtonReply == nil {
		return "How can I help you with this?"
	}
	switch interactive.ButtonReply.ID {
	case "browse_products":
		return "Great! You can browse our products at https://aforsev.com/products"
	case "contact_support":
		return "Our support team will contact you shortly. For urgent matters, call +1234567890"
	case "order_status":
		return "Please share your order number or email to check your order status."
	default:
		return fmt.Sprintf("You selected: %s. How can I help you with this?", interactive.ButtonReply.Title)
	}
}

// ShareCart sends the owner's cart to the given phone number and records a
// cart-shared event for the notification log.
func (s *service) ShareCart(ctx context.Context, owner cart.Identity, phone, customMessage string) (*SendResult, error) {
	if !s.configured() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "whatsapp integration not configured")
	}

	record, err := s.carts.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	message := strings.TrimSpace(customMessage)
	if message == "" {
		lines := make([]CartShareLine, 0, len(record.Items))
		for _, item := range record.Items {
			lines = append(lines, CartShareLine{
				Name:     item.Name,
				Price:    item.PriceAtTime,
				Quantity: item.Quantity,
			})
		}
		message = CartShareMessage(lines, record.TotalPrice)
	}

	result, err := s.sender.SendText(ctx, phone, message)
	if err != nil {
		return nil, err
	}

	s.recordCartShared(ctx, record.ID, owner)
	return result, nil
}

// recordCartShared appends a cart_shared event to the outbox log. Sharing
// already happened, so a logging failure is not surfaced to the caller.
func (s *service) recordCartShared(ctx context.Context, cartID uuid.UUID, owner cart.Identity) {
	if s.tx == nil || s.outbox == nil {
		return
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		event := outbox.DomainEvent{
			EventType:     enums.EventCartShared,
			AggregateType: enums.AggregateCart,
			AggregateID:   cartID,
			Data: map[string]any{
				"cartId": cartID.String(),
			},
			Version: 1,
		}
		if owner.IsUser() {
			event.Actor = &outbox.ActorRef{UserID: *owner.UserID, Role: enums.UserRoleUser.String()}
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		s.logg.Error(ctx, "record cart shared event", err)
	}
}

// ShareProduct sends a product inquiry to the given phone number.
func (s *service) ShareProduct(ctx context.Context, productID uuid.UUID, phone, customMessage string) (*SendResult, error) {
	if !s.configured() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "whatsapp integration not configured")
	}

	item, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	message := strings.TrimSpace(customMessage)
	if message == "" {
		message = ProductInquiryMessage(item.Name, item.Price, item.Description)
	}
	return s.sender.SendText(ctx, phone, message)
}

// SendOrderConfirmation notifies a customer that their order was confirmed.
func (s *service) SendOrderConfirmation(ctx context.Context, orderID uuid.UUID, phone string) (*SendResult, error) {
	if !s.configured() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "whatsapp integration not configured")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	message := OrderConfirmationMessage(order.ID.String(), order.Total, order.Status.String())
	return s.sender.SendText(ctx, phone, message)
}

// SendWelcome greets a newly registered customer.
func (s *service) SendWelcome(ctx context.Context, userID uuid.UUID, phone string) (*SendResult, error) {
	if !s.configured() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "whatsapp integration not configured")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	return s.sender.SendText(ctx, phone, WelcomeMessage(user.Name))
}

// SendTest delivers an arbitrary message; admin-only diagnostics.
func (s *service) SendTest(ctx context.Context, phone, message string) (*SendResult, error) {
	if !s.configured() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "whatsapp integration not configured")
	}
	if strings.TrimSpace(message) == "" {
		message = "AFORSEV WhatsApp integration test message."
	}
	return s.sender.SendText(ctx, phone, message)
}
