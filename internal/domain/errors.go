package domain

import "errors"

var (
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrToolNotFound           = errors.New("tool not found")
	ErrProRequired            = errors.New("pro subscription required")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidCode            = errors.New("invalid promo code")
	ErrCodeExpired            = errors.New("promo code expired")
	ErrCodeExhausted          = errors.New("promo code exhausted")
	ErrAlreadyRedeemed        = errors.New("promo code already redeemed")
	ErrNotImplemented         = errors.New("not implemented")
	ErrStorageConflict        = errors.New("storage conflict")
	ErrNotFound               = errors.New("not found")
	ErrAlreadyReversed        = errors.New("ledger entry already reversed")
	ErrNotReversible          = errors.New("ledger entry cannot be reversed")
	ErrInvalidExperienceLevel = errors.New("invalid experience level")
	ErrInvalidCreditType      = errors.New("invalid credit type")
	ErrAlreadyExists          = errors.New("already exists")
	ErrInvalidSource          = errors.New("invalid ledger source")
	ErrInvalidFilter          = errors.New("invalid history filter")
)

// Error kinds reported to callers.
const (
	KindInsufficientBalance    = "insufficient_balance"
	KindToolNotFound           = "tool_not_found"
	KindProRequired            = "pro_required"
	KindInvalidAmount          = "invalid_amount"
	KindInvalidCode            = "invalid_code"
	KindCodeExpired            = "code_expired"
	KindCodeExhausted          = "code_exhausted"
	KindAlreadyRedeemed        = "already_redeemed"
	KindNotImplemented         = "not_implemented"
	KindStorageConflict        = "storage_conflict"
	KindNotFound               = "not_found"
	KindAlreadyReversed        = "already_reversed"
	KindNotReversible          = "not_reversible"
	KindInvalidExperienceLevel = "invalid_experience_level"
	KindInvalidCreditType      = "invalid_credit_type"
	KindAlreadyExists          = "already_exists"
	KindInvalidSource          = "invalid_source"
	KindInvalidFilter          = "invalid_filter"
	KindInternal               = "internal_error"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInsufficientBalance, KindInsufficientBalance},
	{ErrToolNotFound, KindToolNotFound},
	{ErrProRequired, KindProRequired},
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrInvalidCode, KindInvalidCode},
	{ErrCodeExpired, KindCodeExpired},
	{ErrCodeExhausted, KindCodeExhausted},
	{ErrAlreadyRedeemed, KindAlreadyRedeemed},
	{ErrNotImplemented, KindNotImplemented},
	{ErrStorageConflict, KindStorageConflict},
	{ErrNotFound, KindNotFound},
	{ErrAlreadyReversed, KindAlreadyReversed},
	{ErrNotReversible, KindNotReversible},
	{ErrInvalidExperienceLevel, KindInvalidExperienceLevel},
	{ErrInvalidCreditType, KindInvalidCreditType},
	{ErrAlreadyExists, KindAlreadyExists},
	{ErrInvalidSource, KindInvalidSource},
	{ErrInvalidFilter, KindInvalidFilter},
}

// KindOf returns the stable error kind for err, or KindInternal.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
