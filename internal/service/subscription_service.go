package service

import (
	"context"
	"errors"
	"math"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/logger"
	"credit_engine/internal/store"
)

// SubscriptionService tracks Pro subscription state for pricing and promos.
type SubscriptionService struct {
	store store.Store
	audit *AuditService
	retry RetryPolicy
	now   func() time.Time
}

// IsActive reports whether the user currently has Pro benefits.
func (s *SubscriptionService) IsActive(ctx context.Context, userID int64) (bool, error) {
	return s.isActive(ctx, s.store, userID)
}

func (s *SubscriptionService) isActive(ctx context.Context, r store.Reader, userID int64) (bool, error) {
	sub, err := r.GetCurrentSubscription(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.UsableAt(s.now()), nil
}

// Status returns the user's Pro state and the subscription backing it.
func (s *SubscriptionService) Status(ctx context.Context, userID int64) (*domain.SubscriptionStatusView, error) {
	sub, err := s.store.GetLatestSubscription(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.SubscriptionStatusView{}, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	view := &domain.SubscriptionStatusView{Subscription: sub}
	if sub.UsableAt(now) {
		view.IsPro = true
		view.DaysRemaining = int(math.Ceil(sub.EndDate.Sub(now).Hours() / 24))
	}
	return view, nil
}

// Cancel marks the current subscription canceled. It stays usable until its
// end date.
func (s *SubscriptionService) Cancel(ctx context.Context, userID int64) (*domain.Subscription, error) {
	var out *domain.Subscription
	err := s.retry.do(ctx, "subscription_cancel", func() error {
		return s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			sub, err := tx.LockCurrentSubscription(ctx, userID)
			if err != nil {
				return err
			}
			if sub.Status != domain.SubscriptionActive {
				return domain.ErrNotFound
			}
			sub.Status = domain.SubscriptionCanceled
			if err := tx.UpdateSubscription(ctx, sub); err != nil {
				return err
			}
			out = sub
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, userID, domain.AuditActionSubscriptionCancel, domain.AuditCategorySubscription, map[string]interface{}{
		"subscription_id": out.ID,
		"end_date":        out.EndDate,
	})
	return out, nil
}

// ExpireSubscriptions flips every active or canceled subscription whose end
// date has passed to expired and returns how many rows changed.
func (s *SubscriptionService) ExpireSubscriptions(ctx context.Context) (int64, error) {
	var n int64
	err := s.retry.do(ctx, "expire_subscriptions", func() error {
		var err error
		n, err = s.store.ExpireSubscriptions(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}

	if n > 0 {
		subscriptionsExpired.Add(float64(n))
		logger.Info("subscriptions expired", "count", n)
	}
	return n, nil
}

// Activate starts or replaces the user's paid subscription, valid until endDate.
func (s *SubscriptionService) Activate(ctx context.Context, userID int64, planID string, endDate time.Time) (*domain.Subscription, error) {
	if planID == "" || !endDate.After(s.now()) {
		return nil, domain.ErrInvalidAmount
	}

	var out *domain.Subscription
	err := s.retry.do(ctx, "subscription_activate", func() error {
		return s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			now := s.now()
			sub, err := tx.LockCurrentSubscription(ctx, userID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				sub = &domain.Subscription{
					UserID:    userID,
					PlanID:    planID,
					Status:    domain.SubscriptionActive,
					StartDate: now,
					EndDate:   endDate,
				}
				if err := tx.CreateSubscription(ctx, sub); err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				sub.PlanID = planID
				sub.Status = domain.SubscriptionActive
				sub.EndDate = endDate
				sub.IsTrial = false
				if err := tx.UpdateSubscription(ctx, sub); err != nil {
					return err
				}
			}
			out = sub
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, userID, domain.AuditActionSubscriptionActive, domain.AuditCategorySubscription, map[string]interface{}{
		"subscription_id": out.ID,
		"plan_id":         planID,
		"end_date":        endDate,
	})
	return out, nil
}

// grantOrExtendTrial runs inside the caller's transaction. A usable
// subscription is extended by days; otherwise any stale current row is
// expired and a new trial starts now.
func (s *SubscriptionService) grantOrExtendTrial(ctx context.Context, tx store.Tx, userID int64, days int64) (*domain.Subscription, error) {
	if days <= 0 || days > domain.MaxTrialDays {
		return nil, domain.ErrInvalidAmount
	}
	now := s.now()

	sub, err := tx.LockCurrentSubscription(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if sub != nil {
		if sub.UsableAt(now) {
			sub.EndDate = sub.EndDate.AddDate(0, 0, int(days))
			if err := tx.UpdateSubscription(ctx, sub); err != nil {
				return nil, err
			}
			return sub, nil
		}
		sub.Status = domain.SubscriptionExpired
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return nil, err
		}
	}

	trial := &domain.Subscription{
		UserID:    userID,
		PlanID:    domain.TrialPlanID,
		Status:    domain.SubscriptionActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, int(days)),
		IsTrial:   true,
	}
	if err := tx.CreateSubscription(ctx, trial); err != nil {
		return nil, err
	}
	return trial, nil
}
