package economy

import "errors"

var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientCoupons = errors.New("insufficient coupons")
	ErrUnknownUpgrade      = errors.New("unknown upgrade")
	ErrMaxLevel            = errors.New("upgrade at max level")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrUnknownPack         = errors.New("unknown pack")
	ErrUnknownCountry      = errors.New("unknown country")
	ErrRegionLocked        = errors.New("region locked")
	ErrAlreadyOwned        = errors.New("already owned")
	ErrNotOwned            = errors.New("not owned")
	ErrUnknownItem         = errors.New("unknown item")
	ErrAchievementLocked   = errors.New("achievement not reached")
	ErrAlreadyClaimed      = errors.New("achievement already claimed")
	ErrTitleLocked         = errors.New("title not unlocked")
)
