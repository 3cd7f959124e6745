package service

import (
	"context"
	"errors"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"
)

// PromoService redeems and issues promotional codes.
type PromoService struct {
	store  store.Store
	wallet *WalletService
	subs   *SubscriptionService
	audit  *AuditService
	retry  RetryPolicy
	now    func() time.Time
}

// Redeem applies code for the user. The redemption row, the used count and
// the code's effect commit together or not at all.
func (s *PromoService) Redeem(ctx context.Context, userID int64, code string) (*domain.RedemptionResult, error) {
	code = domain.NormalizePromoCode(code)
	if code == "" {
		promoRedemptions.WithLabelValues("", domain.KindInvalidCode).Inc()
		return nil, domain.ErrInvalidCode
	}

	var (
		res     *domain.RedemptionResult
		expired bool
	)
	err := s.retry.do(ctx, "promo_redeem", func() error {
		expired = false
		return s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			p, err := tx.LockPromoCode(ctx, code)
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidCode
			}
			if err != nil {
				return err
			}

			switch p.Status {
			case domain.PromoDisabled:
				return domain.ErrInvalidCode
			case domain.PromoExpired:
				return domain.ErrCodeExpired
			}
			if p.ExpiredAt(s.now()) {
				// The status flip commits; the caller still sees CodeExpired.
				p.Status = domain.PromoExpired
				expired = true
				return tx.UpdatePromoCode(ctx, p)
			}
			if p.Exhausted() {
				return domain.ErrCodeExhausted
			}

			redeemed, err := tx.HasRedemption(ctx, userID, p.ID)
			if err != nil {
				return err
			}
			if redeemed {
				return domain.ErrAlreadyRedeemed
			}

			r := &domain.RedemptionResult{Code: p.Code, Type: p.Type, Value: p.Value}
			switch p.Type {
			case domain.PromoBonusCredits:
				m, err := s.wallet.creditTx(ctx, tx, userID, p.Value, domain.CreditBonus, domain.Meta{
					Description: "promo code " + p.Code,
					Source:      domain.SourcePromoCode,
					Metadata:    map[string]interface{}{"promo_code": p.Code, "promo_code_id": p.ID},
				})
				if err != nil {
					return err
				}
				r.CreditsAdded = p.Value
				r.LedgerEntryID = m.EntryID()
				r.Balance = &m.Balance
			case domain.PromoProTrial:
				sub, err := s.subs.grantOrExtendTrial(ctx, tx, userID, p.Value)
				if err != nil {
					return err
				}
				r.Subscription = sub
			default:
				return domain.ErrNotImplemented
			}

			if err := tx.CreateRedemption(ctx, &domain.PromoRedemption{UserID: userID, PromoCodeID: p.ID}); err != nil {
				return err
			}
			p.UsedCount++
			if err := tx.UpdatePromoCode(ctx, p); err != nil {
				return err
			}

			res = r
			return nil
		})
	})
	if err == nil && expired {
		err = domain.ErrCodeExpired
	}
	if err != nil {
		promoRedemptions.WithLabelValues("", domain.KindOf(err)).Inc()
		return nil, err
	}

	promoRedemptions.WithLabelValues(string(res.Type), "ok").Inc()
	if res.Balance != nil {
		s.wallet.notify(userID, &MutationResult{Balance: *res.Balance})
	}
	s.audit.LogRedemption(ctx, userID, res)
	return res, nil
}

// CreatePromoCode adds a new code. Codes are stored upper-case.
func (s *PromoService) CreatePromoCode(ctx context.Context, p *domain.PromoCode, adminID int64) error {
	p.Code = domain.NormalizePromoCode(p.Code)
	if p.Code == "" {
		return domain.ErrInvalidCode
	}
	if p.Value <= 0 || p.MaxUses < 0 {
		return domain.ErrInvalidAmount
	}
	switch p.Type {
	case domain.PromoBonusCredits, domain.PromoDiscount, domain.PromoReferral:
	case domain.PromoProTrial:
		if p.Value > domain.MaxTrialDays {
			return domain.ErrInvalidAmount
		}
	default:
		return domain.ErrInvalidCode
	}
	p.Status = domain.PromoActive
	p.UsedCount = 0

	if err := s.store.CreatePromoCode(ctx, p); err != nil {
		return err
	}

	s.audit.LogAdminAction(ctx, adminID, domain.AuditActionPromoCreate, 0, map[string]interface{}{
		"code":     p.Code,
		"type":     string(p.Type),
		"value":    p.Value,
		"max_uses": p.MaxUses,
	})
	return nil
}
