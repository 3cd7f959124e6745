package service

import (
	"context"
	"errors"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"
)

// PricingService is the single place that decides what a tool costs.
type PricingService struct {
	store store.Store
	subs  *SubscriptionService
	now   func() time.Time
}

// Quote prices one invocation of toolID for the user. It never writes.
func (s *PricingService) Quote(ctx context.Context, userID int64, toolID, experienceLevel string) (*domain.Quote, error) {
	return s.quote(ctx, s.store, userID, toolID, experienceLevel)
}

// quote reads through r so the charge path can price inside its transaction.
func (s *PricingService) quote(ctx context.Context, r store.Reader, userID int64, toolID, experienceLevel string) (*domain.Quote, error) {
	level, err := domain.ParseExperienceLevel(experienceLevel)
	if err != nil {
		return nil, err
	}

	rule, err := r.GetToolRule(ctx, toolID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrToolNotFound
	}
	if err != nil {
		return nil, err
	}
	if !rule.IsActive {
		return nil, domain.ErrToolNotFound
	}

	isPro, err := s.subs.isActive(ctx, r, userID)
	if err != nil {
		return nil, err
	}
	if rule.IsProOnly && !isPro {
		return nil, domain.ErrProRequired
	}

	q := &domain.Quote{
		ToolID:         rule.ToolID,
		IsPlanningTool: rule.IsPlanningTool,
		ReversalPolicy: rule.ReversalPolicy,
	}

	if !rule.IsPlanningTool {
		q.CostInCredits = rule.BaseCostInCredits
		q.AccessType = domain.AccessStandard
		return q, nil
	}

	freeCost, freeAccess := freeTierPrice(rule, level)
	if !isPro {
		q.CostInCredits = freeCost
		q.AccessType = freeAccess
		return q, nil
	}

	now := s.now()
	used, err := r.GetMonthlyUsage(ctx, userID, rule.ToolID, domain.UsagePeriod(now))
	if err != nil {
		return nil, err
	}

	q.ComparableFreeCost = &freeCost
	if used < rule.PlanningMonthlyLimit {
		q.CostInCredits = 0
		q.AccessType = domain.AccessProIncluded
		q.UsageInfo = &domain.UsageInfo{
			Used:      used,
			Remaining: rule.PlanningMonthlyLimit - used,
			Limit:     rule.PlanningMonthlyLimit,
			ResetDate: domain.PeriodResetDate(now),
		}
		return q, nil
	}

	q.CostInCredits = rule.PlanningProOverflowCost
	q.AccessType = domain.AccessProOverflow
	q.UsageInfo = &domain.UsageInfo{
		Used:      used,
		Remaining: 0,
		Limit:     rule.PlanningMonthlyLimit,
		ResetDate: domain.PeriodResetDate(now),
	}
	return q, nil
}

// freeTierPrice is what a non-Pro user pays for a planning tool.
func freeTierPrice(rule *domain.ToolCostRule, level domain.ExperienceLevel) (int64, domain.AccessType) {
	if level == domain.ExperienceFull {
		return rule.PlanningFullExperienceCost, domain.AccessFreeFull
	}
	return rule.BaseCostInCredits, domain.AccessFreeExperimental
}
