package cli

import (
	"errors"
	"strings"

	"nudge/internal/app"
	"nudge/internal/apperr"
)

// describe turns an error into the line shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, app.ErrNoNotifier):
		return err.Error()
	case apperr.IsConflict(err):
		return "Item is not waiting for text: " + apperr.Message(err)
	case apperr.IsNotFound(err):
		return "Item not found."
	case apperr.IsNetwork(err):
		return "Network error: " + apperr.Message(err)
	case apperr.IsValidation(err):
		msg := err.Error()
		if i := strings.Index(msg, apperr.ErrValidation.Error()+": "); i >= 0 {
			return msg[i+len(apperr.ErrValidation.Error())+2:]
		}
		return msg
	case apperr.StatusCode(err) != 0:
		return apperr.Message(err)
	default:
		return err.Error()
	}
}
