package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/text"

	"stockdesk/internal/console"
)

// Terminal shows session notifications on a terminal. It implements both
// console.Notifier and console.Navigator: navigating to the login route
// prints how to log in again, since a CLI has no screens to switch.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer

	// LoginHint is printed when the session layer navigates to the login
	// route.
	LoginHint string
	// Quiet suppresses informational notifications. Errors are always shown.
	Quiet bool
}

// NewTerminal returns a Terminal writing to out, usually stderr.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out:       out,
		LoginHint: "Run 'stockdesk auth login' to sign in again.",
	}
}

// Notify prints one notification.
func (t *Terminal) Notify(n console.Notification) {
	if t.Quiet && n.Severity == console.SeverityInfo {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	title := n.Title
	switch n.Severity {
	case console.SeverityError:
		title = text.FgRed.Sprint("✗ " + title)
	case console.SeverityWarning:
		title = text.FgYellow.Sprint("⚠ " + title)
	default:
		title = text.FgGreen.Sprint("✓ " + title)
	}

	if n.Description == "" {
		fmt.Fprintln(t.out, title)
		return
	}
	fmt.Fprintf(t.out, "%s: %s\n", title, n.Description)
}

// Navigate prints the login hint for the login route and ignores others.
func (t *Terminal) Navigate(route string) {
	if route != console.LoginRoute || t.LoginHint == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, text.FgHiBlue.Sprint(t.LoginHint))
}
