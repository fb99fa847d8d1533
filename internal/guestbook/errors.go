package guestbook

import "errors"

// Store errors. Backends translate their native codes into these so callers can
// show a specific hint instead of a raw code.
var (
	ErrAccessDenied    = errors.New("access denied by store rules")
	ErrUnavailable     = errors.New("store unavailable")
	ErrIndexBuilding   = errors.New("supporting index not ready")
	ErrInvalidArgument = errors.New("store rejected the data")
	ErrNotFound        = errors.New("entry not found")
	ErrAlreadyApproved = errors.New("entry already approved")
	ErrInappropriate   = errors.New("inappropriate content")
	ErrEmptySelection  = errors.New("no entries selected")
)

// Hint returns the human-readable message shown for an error.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrInappropriate):
		return "Your message contains inappropriate content."
	case errors.Is(err, ErrAccessDenied):
		return "Access denied. Check the guestbook access rules configuration."
	case errors.Is(err, ErrIndexBuilding):
		return "The guestbook index is still building. Try again in a few minutes."
	case errors.Is(err, ErrUnavailable):
		return "The guestbook database is unavailable. Try again later."
	case errors.Is(err, ErrInvalidArgument):
		return "The data was rejected. Check your input."
	case errors.Is(err, ErrNotFound):
		return "Entry not found."
	case errors.Is(err, ErrAlreadyApproved):
		return "Entry is already approved."
	case errors.Is(err, ErrEmptySelection):
		return "Select at least one entry."
	default:
		return "Something went wrong. Please try again."
	}
}

// Code is the short machine code used in live listing error messages.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrIndexBuilding):
		return "index_building"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}
