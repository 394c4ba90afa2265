package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/aforsev/storefront-backend/pkg/db"
	"github.com/aforsev/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aforsev/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// AddItemInput captures an add-to-cart request.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// Service exposes the cart operations used by controllers and checkout.
type Service interface {
	GetCart(ctx context.Context, owner Identity) (*CartDTO, error)
	AddItem(ctx context.Context, owner Identity, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, owner Identity, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, owner Identity, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, owner Identity) (*CartDTO, error)
	Merge(ctx context.Context, userID uuid.UUID, sessionID string) (*CartDTO, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

// GetCart returns the owner's cart, creating an empty one on first touch.
// Totals are recomputed from the lines on every call.
func (s *service) GetCart(ctx context.Context, owner Identity) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIdentity, "cart owner is required")
	}
	cart, err := s.repo.FindOrCreateByOwner(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return toDTO(cart), nil
}

// AddItem adds a product to the cart, snapshotting the current unit price on
// the first add. Re-adding the same product increments the existing line with
// a single UPDATE so concurrent adds both land. Stock is checked against the
// requested quantity only; the authoritative reservation happens at checkout.
func (s *service) AddItem(ctx context.Context, owner Identity, input AddItemInput) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIdentity, "cart owner is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.products.GetActiveProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found or unavailable")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := txRepo.FindOrCreateByOwner(ctx, owner)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		if input.Quantity > product.Stock {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{"available": product.Stock})
		}

		existing := 0
		if item, err := txRepo.FindItem(ctx, cart.ID, product.ID); err == nil {
			existing = item.Quantity
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		if existing > 0 {
			affected, err := txRepo.IncrementItemQuantity(ctx, cart.ID, product.ID, input.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment cart item")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeCartItemNotFound, "cart item not found")
			}
		} else {
			item := &models.CartItem{
				CartID:      cart.ID,
				ProductID:   product.ID,
				Quantity:    input.Quantity,
				PriceAtTime: product.Price,
			}
			if err := txRepo.InsertItem(ctx, item); err != nil {
				// A concurrent add for the same product won the insert;
				// fold this request into the existing line instead.
				if dbpkg.IsUniqueViolation(err, "uniq_cart_items_cart_product") {
					if _, incErr := txRepo.IncrementItemQuantity(ctx, cart.ID, product.ID, input.Quantity); incErr != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, incErr, "increment cart item")
					}
				} else {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
				}
			}
		}

		return txRepo.Touch(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, owner)
}

// UpdateItem overwrites a line's quantity. A line that belongs to another
// owner's cart is rejected as unauthorized, not hidden as missing; the
// snapshot price never changes here.
func (s *service) UpdateItem(ctx context.Context, owner Identity, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIdentity, "cart owner is required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, cart, err := s.ownedItem(ctx, txRepo, owner, itemID)
		if err != nil {
			return err
		}

		product, err := s.products.GetActiveProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found or unavailable")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if quantity > product.Stock {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{"available": product.Stock})
		}

		if err := txRepo.SetItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return txRepo.Touch(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, owner)
}

// RemoveItem deletes one line from the owner's cart. Lines held by another
// owner's cart are rejected as unauthorized.
func (s *service) RemoveItem(ctx context.Context, owner Identity, itemID uuid.UUID) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIdentity, "cart owner is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, cart, err := s.ownedItem(ctx, txRepo, owner, itemID)
		if err != nil {
			return err
		}

		affected, err := txRepo.DeleteItem(ctx, cart.ID, item.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeCartItemNotFound, "cart item not found")
		}
		return txRepo.Touch(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, owner)
}

// Clear empties the owner's cart. Clearing an already-empty cart succeeds.
func (s *service) Clear(ctx context.Context, owner Identity) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIdentity, "cart owner is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := txRepo.FindByOwner(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if err := txRepo.DeleteItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return txRepo.Touch(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, owner)
}

// Merge folds the guest session's cart into the user's cart in one
// transaction. Shared products sum their quantities and keep the user
// cart's price snapshot; the guest cart is deleted afterwards. An absent
// or empty guest cart leaves both carts untouched.
func (s *service) Merge(ctx context.Context, userID uuid.UUID, sessionID string) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIdentity, "user is required")
	}
	owner := UserIdentity(userID)
	guest := GuestIdentity(sessionID)
	if !guest.Valid() {
		return s.GetCart(ctx, owner)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		guestCart, err := txRepo.FindByOwner(ctx, guest)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}
		if len(guestCart.Items) == 0 {
			return nil
		}

		userCart, err := txRepo.FindOrCreateByOwner(ctx, owner)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user cart")
		}

		for _, item := range guestCart.Items {
			affected, err := txRepo.IncrementItemQuantity(ctx, userCart.ID, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item")
			}
			if affected == 0 {
				moved := &models.CartItem{
					CartID:      userCart.ID,
					ProductID:   item.ProductID,
					Quantity:    item.Quantity,
					PriceAtTime: item.PriceAtTime,
				}
				if err := txRepo.InsertItem(ctx, moved); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move cart item")
				}
			}
		}

		if err := txRepo.DeleteCart(ctx, guestCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop guest cart")
		}
		return txRepo.Touch(ctx, userCart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, owner)
}

// ownedItem resolves a cart line and proves the caller owns it. An unknown
// item id maps to CodeCartItemNotFound; an existing line held by a different
// cart maps to CodeUnauthorized so one owner can never probe or mutate
// another's lines.
func (s *service) ownedItem(ctx context.Context, repo CartRepository, owner Identity, itemID uuid.UUID) (*models.CartItem, *models.Cart, error) {
	item, err := repo.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeCartItemNotFound, "cart item not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	cart, err := repo.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart item belongs to another cart")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if item.CartID != cart.ID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart item belongs to another cart")
	}
	return item, cart, nil
}
