package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/aforsev/storefront-backend/pkg/db"
	"github.com/aforsev/storefront-backend/pkg/db/models"
)

// Repository persists carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to the supplied transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	return &Repository{db: tx}
}

func (r *Repository) ownerScope(q *gorm.DB, owner Identity) *gorm.DB {
	if owner.IsUser() {
		return q.Where("user_id = ?", *owner.UserID)
	}
	return q.Where("session_id = ?", owner.SessionID)
}

// FindByOwner loads the owner's cart with its lines and their products,
// oldest line first. Returns gorm.ErrRecordNotFound when no cart exists.
func (r *Repository) FindByOwner(ctx context.Context, owner Identity) (*models.Cart, error) {
	var cart models.Cart
	q := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC")
		}).
		Preload("Items.Product")
	if err := r.ownerScope(q, owner).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindOrCreateByOwner returns the owner's cart, creating an empty one when
// missing. A concurrent create losing the partial-unique race falls back to
// the winner's row.
func (r *Repository) FindOrCreateByOwner(ctx context.Context, owner Identity) (*models.Cart, error) {
	cart, err := r.FindByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	fresh := models.Cart{ID: uuid.New()}
	if owner.IsUser() {
		fresh.UserID = owner.UserID
	} else {
		sessionID := owner.SessionID
		fresh.SessionID = &sessionID
	}
	if err := r.db.WithContext(ctx).Create(&fresh).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return r.FindByOwner(ctx, owner)
		}
		return nil, err
	}
	fresh.Items = []models.CartItem{}
	return &fresh, nil
}

// FindItem loads a single cart line by cart and product.
func (r *Repository) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemByID loads a cart line by its id regardless of which cart holds
// it; the service layer decides whether the caller may touch it.
func (r *Repository) FindItemByID(ctx context.Context, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// InsertItem creates a new cart line with its price snapshot.
func (r *Repository) InsertItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// IncrementItemQuantity bumps an existing line in a single UPDATE so
// concurrent adds never lose increments. Returns the number of rows hit.
func (r *Repository) IncrementItemQuantity(ctx context.Context, cartID, productID uuid.UUID, delta int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

// SetItemQuantity overwrites a line's quantity.
func (r *Repository) SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now(),
		}).Error
}

// DeleteItem removes one line from the cart and reports whether it existed.
func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// DeleteItems empties the cart.
func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

// DeleteCart removes the cart row; lines cascade.
func (r *Repository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	if err := r.DeleteItems(ctx, cartID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", cartID).
		Delete(&models.Cart{}).Error
}

// Touch refreshes the cart's updated_at so guest retention tracks activity.
func (r *Repository) Touch(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", time.Now()).Error
}

// DeleteStaleGuestCarts drops guest carts idle since before the cutoff and
// returns how many carts were removed.
func (r *Repository) DeleteStaleGuestCarts(ctx context.Context, cutoff time.Time) (int64, error) {
	q := r.db.WithContext(ctx)

	var ids []uuid.UUID
	err := q.Model(&models.Cart{}).
		Where("session_id IS NOT NULL AND updated_at < ?", cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := q.Where("cart_id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
		return 0, err
	}
	res := q.Where("id IN ?", ids).Delete(&models.Cart{})
	return res.RowsAffected, res.Error
}
