package client

import (
	"errors"
	"strings"

	"github.com/goliatone/go-farmform/pkg/i18n"
)

// Notice keys used by UserMessage.
const (
	MsgAuthMissing   = "notices.auth.missing"
	MsgSubmitQueued  = "notices.submit.queued"
	MsgSubmitFailure = "notices.submit.failure"
)

// UserMessage turns a client error into a localized message for a modal.
// Backend messages are shown as sent; anything else gets a generic text.
func UserMessage(loc *i18n.Localizer, err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return loc.T(MsgAuthMissing)
	case errors.Is(err, ErrQueued):
		return loc.T(MsgSubmitQueued)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status < 500 {
		if len(apiErr.Form) > 0 {
			return strings.Join(apiErr.Form, " ")
		}
		if apiErr.Message != "" && len(apiErr.Fields) == 0 {
			return apiErr.Message
		}
	}
	return loc.T(MsgSubmitFailure)
}
