package console

// Severity grades a user notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// LoginRoute is where a forced logout navigates to.
const LoginRoute = "/login"

// Notification is a fire-and-forget message for the user.
type Notification struct {
	Title       string
	Description string
	Severity    Severity
}

// Notifier displays notifications. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// Navigator moves the user to a route.
type Navigator interface {
	Navigate(route string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

// Navigate calls f(route).
func (f NavigatorFunc) Navigate(route string) { f(route) }

type discard struct{}

func (discard) Notify(Notification) {}
func (discard) Navigate(string)     {}
