package errors

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")

	ErrPlayerNotFound       = errors.New("player not found")
	ErrPlayerBanned         = errors.New("player banned")
	ErrDuplicateName        = errors.New("display name already taken")
	ErrInvalidProfile       = errors.New("invalid profile payload")
	ErrInvalidPlayerStatus  = errors.New("invalid player status")
	ErrInvalidLinkCode = errors.New("invalid link code")
	ErrLinkCodeExpired = errors.New("link code expired")

	ErrAdminNotFound        = errors.New("admin not found")
	ErrAdminDisabled        = errors.New("admin disabled")
	ErrInvalidAdminPassword = errors.New("invalid admin credentials")

	ErrRoundValidation = errors.New("round validation failed")
	ErrRoundNotFound   = errors.New("round not found")

	ErrInvalidWalletPayload = errors.New("invalid wallet payload")
	ErrInsufficientCoins    = errors.New("insufficient coins")

	ErrBadgeNotFound     = errors.New("badge not found")
	ErrBadgeAlreadyOwned = errors.New("badge already owned")
)
