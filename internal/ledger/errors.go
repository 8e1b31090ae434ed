package ledger

import "github.com/pkg/errors"

// The closed error set of the engine. Everything here is an expected business
// outcome surfaced to the caller as a message, never a crash. The interpolated
// strategy additionally has an open-ended failure mode under adversarial
// input; those failures surface through ErrStoreUnavailable with the cause
// attached.
var (
	ErrItemNotFound       = errors.New("item not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInsufficientFunds  = errors.New("not enough silkcoins")
	ErrInvalidImageType   = errors.New("images only")
	ErrInvalidInput       = errors.New("invalid input")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
