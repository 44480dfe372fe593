// Package common provides page plumbing shared by the UI features:
// navigation, toasts, flashes and browser sessions.
package common

import "github.com/spcai/labcms/internal/ui/components"

// SessionName is the cookie session used for flashes and browser state.
const SessionName = "labcms"

const (
	flashKey     = "toasts"
	sessionIDKey = "sid"
)

// UnexpectedMessage is the toast shown for errors that are not reported by
// the platform.
const UnexpectedMessage = "An unexpected error occurred. Please try again."

// Success builds a success toast.
func Success(msg string) components.Toast {
	return components.Toast{Kind: components.ToastSuccess, Message: msg}
}

// Failure builds an error toast for err.
func Failure(err error) components.Toast {
	return components.Toast{Kind: components.ToastError, Message: ErrorMessage(err)}
}
