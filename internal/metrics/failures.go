package metrics

import (
	"errors"

	"mpdviz/internal/dash"
	"mpdviz/internal/models"
	"mpdviz/internal/render"
)

// ErrorLabel names the class of err for the kind label.
func ErrorLabel(err error) string {
	switch {
	case models.KindOf(err) != 0:
		return models.KindOf(err).String()
	case errors.Is(err, render.ErrTooLong):
		return "too_long"
	case errors.Is(err, dash.ErrDecode):
		return "parse"
	}
	return "other"
}

// CountFailure records a manifest that could not be processed.
func (m *Metrics) CountFailure(err error) {
	if errors.Is(err, render.ErrTooLong) {
		m.IncRendersRejected()
	}
	m.IncManifestErrors(ErrorLabel(err))
}
