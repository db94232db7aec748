package status

import "errors"

var (
	ErrNotAuthenticated = errors.New("session: not authenticated")
	ErrForbidden        = errors.New("ticket: not owned by current user")
	ErrValidation       = errors.New("ticket: invalid input")
	ErrInvalidState     = errors.New("ticket: operation not allowed in current status")
	ErrNotFound         = errors.New("store: record not found")
	ErrRemote           = errors.New("store: backend call failed")
)

// KindOf maps an error chain to the stable kind string exposed to
// presentation surfaces. Exact wording shown to users is a translation
// concern, so only the kind is guaranteed.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "remote_error"
	}
}
