package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aforsev/storefront-backend/pkg/db/models"
)

// CartItemDTO is one cart line enriched with catalog state. LineTotal uses
// the snapshotted price; PriceChanged flags drift against the live price.
type CartItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Name         string          `json:"name"`
	ImageURL     *string         `json:"image_url,omitempty"`
	Quantity     int             `json:"quantity"`
	PriceAtTime  decimal.Decimal `json:"price_at_time"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
	PriceChanged bool            `json:"price_changed"`
	Unavailable  bool            `json:"unavailable"`
}

// CartDTO is the cart as returned to clients. TotalPrice and TotalItems are
// recomputed from the lines on every read, never stored.
type CartDTO struct {
	ID         uuid.UUID       `json:"id"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	SessionID  *string         `json:"session_id,omitempty"`
	Items      []CartItemDTO   `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalItems int             `json:"total_items"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toDTO(cart *models.Cart) *CartDTO {
	if cart == nil {
		return nil
	}

	dto := &CartDTO{
		ID:         cart.ID,
		UserID:     cart.UserID,
		SessionID:  cart.SessionID,
		Items:      make([]CartItemDTO, 0, len(cart.Items)),
		TotalPrice: decimal.Zero,
		UpdatedAt:  cart.UpdatedAt,
	}

	for _, item := range cart.Items {
		line := CartItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			PriceAtTime: item.PriceAtTime,
			LineTotal:   item.PriceAtTime.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.ImageURL = item.Product.ImageURL
			line.CurrentPrice = item.Product.Price
			line.PriceChanged = !item.Product.Price.Equal(item.PriceAtTime)
			line.Unavailable = !item.Product.IsActive
		}
		dto.Items = append(dto.Items, line)
		dto.TotalPrice = dto.TotalPrice.Add(line.LineTotal)
		dto.TotalItems += item.Quantity
	}

	return dto
}
