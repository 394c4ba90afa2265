package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/aforsev/storefront-backend/pkg/logger"
)

const defaultGuestCartTTL = 30 * 24 * time.Hour

// GuestCartCleanupJobParams configure the stale guest cart sweeper.
type GuestCartCleanupJobParams struct {
	Logger     *logger.Logger
	Repository guestCartCleanupRepo
	TTL        time.Duration
}

type guestCartCleanupRepo interface {
	DeleteStaleGuestCarts(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewGuestCartCleanupJob builds the job that removes guest carts idle past
// their retention window. User carts are never touched.
func NewGuestCartCleanupJob(params GuestCartCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultGuestCartTTL
	}
	return &guestCartCleanupJob{
		logg: params.Logger,
		repo: params.Repository,
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

type guestCartCleanupJob struct {
	logg *logger.Logger
	repo guestCartCleanupRepo
	ttl  time.Duration
	now  func() time.Time
}

func (j *guestCartCleanupJob) Name() string { return "guest-cart-cleanup" }

func (j *guestCartCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	deleted, err := j.repo.DeleteStaleGuestCarts(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("guest cart cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"ttl_hours":     j.ttl.Hours(),
		"carts_deleted": deleted,
	})
	j.logg.Info(logCtx, "guest cart cleanup complete")
	return nil
}
