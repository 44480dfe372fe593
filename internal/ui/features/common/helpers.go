package common

import (
	"context"
	"errors"

	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/ui/components"
	"github.com/starfederation/datastar-go/datastar"
)

// ErrorMessage converts err to the message shown to the user. Errors
// returned by the stores carry their own message; a cancelled or timed out
// request has nothing useful to say.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return UnexpectedMessage
	}
	return err.Error()
}

// Nav builds the navigation bar with the link at current marked active.
func Nav(registry *entity.Registry, current string) []components.NavItem {
	items := []components.NavItem{{Href: "/", Label: "Overview", Active: current == "/"}}
	if registry != nil {
		for _, s := range registry.Services() {
			d := s.Descriptor()
			href := "/" + d.Table
			items = append(items, components.NavItem{Href: href, Label: d.Title, Active: current == href})
		}
	}
	items = append(items, components.NavItem{Href: "/files", Label: "Files", Active: current == "/files"})
	return items
}

// SendToast appends a toast to #toasts.
func SendToast(sse *datastar.ServerSentEventGenerator, t components.Toast) error {
	return sse.PatchElementTempl(components.ToastItem(t),
		datastar.WithSelector("#toasts"),
		datastar.WithMode(datastar.ElementPatchModeAppend),
	)
}
