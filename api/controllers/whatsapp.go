package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aforsev/storefront-backend/api/responses"
	"github.com/aforsev/storefront-backend/api/validators"
	"github.com/aforsev/storefront-backend/internal/whatsapp"
	pkgerrors "github.com/aforsev/storefront-backend/pkg/errors"
	"github.com/aforsev/storefront-backend/pkg/logger"
)

type shareCartRequest struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message,omitempty"`
}

type shareProductRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Phone     string `json:"phone" validate:"required"`
	Message   string `json:"message,omitempty"`
}

type whatsappTestRequest struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message,omitempty"`
}

// WhatsAppStatus reports whether the Graph integration is configured.
func WhatsAppStatus(svc whatsapp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "whatsapp service unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.Status())
	}
}

// WhatsAppVerifyWebhook answers Meta's subscription handshake. The challenge
// is echoed back as plain text, not wrapped in the JSON envelope.
func WhatsAppVerifyWebhook(svc whatsapp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "whatsapp service unavailable"))
			return
		}

		query := r.URL.Query()
		challenge, err := svc.VerifyWebhook(
			query.Get("hub.mode"),
			query.Get("hub.verify_token"),
			query.Get("hub.challenge"),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
	}
}

// WhatsAppWebhook receives inbound messages. Meta retries non-200 responses,
// so processing failures are logged and acknowledged anyway.
func WhatsAppWebhook(svc whatsapp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "whatsapp service unavailable"))
			return
		}

		var payload whatsapp.WebhookPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ProcessWebhook(r.Context(), payload); err != nil && logg != nil {
			logg.Error(r.Context(), "process whatsapp webhook", err)
		}

		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

// WhatsAppShareCart sends the caller's cart to a phone number.
func WhatsAppShareCart(svc whatsapp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "whatsapp service unavailable"))
			return
		}

		owner, err := resolveCartIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body shareCartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ShareCart(r.Context(), owner, strings.TrimSpace(body.Phone), body.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// WhatsAppShareProduct sends a product inquiry to a phone number.
func WhatsAppShareProduct(svc whatsapp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "whatsapp service unavailable"))
			return
		}

		var body shareProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(strings.TrimSpace(body.ProductID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		result, err := svc.ShareProduct(r.Context(), productID, strings.TrimSpace(body.Phone), body.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// WhatsAppTest lets an admin send a test message to verify the credentials.
func WhatsAppTest(svc whatsapp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "whatsapp service unavailable"))
			return
		}

		var body whatsappTestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SendTest(r.Context(), strings.TrimSpace(body.Phone), body.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
