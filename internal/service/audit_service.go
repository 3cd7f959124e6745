package service

import (
	"context"

	"credit_engine/internal/domain"
	"credit_engine/internal/logger"
	"credit_engine/internal/store"
)

// AuditService writes the operator-facing audit trail. Writes are best
// effort and happen after the ledger mutation committed.
type AuditService struct {
	store store.Store
}

// NewAuditService creates a new audit service
func NewAuditService(st store.Store) *AuditService {
	return &AuditService{store: st}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	log := &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.store.CreateAuditLog(context.WithoutCancel(ctx), log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogAdminAction logs an admin action
func (s *AuditService) LogAdminAction(ctx context.Context, adminID int64, action string, targetUserID int64, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["admin_id"] = adminID
	details["target_user_id"] = targetUserID

	s.Log(ctx, targetUserID, action, domain.AuditCategoryAdmin, details)
}

// LogAdminAdjust logs a manual balance adjustment
func (s *AuditService) LogAdminAdjust(ctx context.Context, adminID, userID, amount int64, creditType domain.CreditType, reason string) {
	s.LogAdminAction(ctx, adminID, domain.AuditActionAdminAdjust, userID, map[string]interface{}{
		"amount":      amount,
		"credit_type": string(creditType),
		"reason":      reason,
	})
}

// LogRedemption logs a successful promo redemption
func (s *AuditService) LogRedemption(ctx context.Context, userID int64, r *domain.RedemptionResult) {
	details := map[string]interface{}{
		"code":  r.Code,
		"type":  string(r.Type),
		"value": r.Value,
	}
	if r.LedgerEntryID != 0 {
		details["ledger_entry_id"] = r.LedgerEntryID
	}
	if r.Subscription != nil {
		details["subscription_id"] = r.Subscription.ID
		details["end_date"] = r.Subscription.EndDate
	}

	s.Log(ctx, userID, domain.AuditActionPromoRedeem, domain.AuditCategoryPromo, details)
}

// GetUserAuditLogs returns audit logs for a user
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListAuditLogs(ctx, userID, limit)
}
