package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"stockdesk/internal/gateway"
	"stockdesk/internal/resources"
	"stockdesk/internal/session"
	"stockdesk/pkg/logging"
)

// Default endpoint paths.
const (
	DefaultLoginPath    = "/api/auth/login/"
	DefaultRegisterPath = "/api/auth/register/"
	DefaultMePath       = "/api/auth/me/"
)

// Endpoints are the session-related API paths.
type Endpoints struct {
	Login    string
	Register string
	Me       string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.Login == "" {
		e.Login = DefaultLoginPath
	}
	if e.Register == "" {
		e.Register = DefaultRegisterPath
	}
	if e.Me == "" {
		e.Me = DefaultMePath
	}
	return e
}

// Options configures a Session.
type Options struct {
	Endpoints Endpoints
	Notifier  Notifier
	Navigator Navigator
}

// Credentials are what the user types to log in.
type Credentials struct {
	Identifier string
	Secret     string
}

// Registration is a new account request.
type Registration struct {
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    *resources.User `json:"user"`
}

// Session is the application-facing session layer: login, logout,
// registration and the cached identity, on top of the gateway client.
type Session struct {
	client    *gateway.Client
	lifecycle *session.Lifecycle
	endpoints Endpoints
	notifier  Notifier
	navigator Navigator

	unsubscribe session.Unsubscribe
}

// New creates a session layer. It subscribes a handler that turns every
// forced teardown into one notification and one navigation to LoginRoute.
func New(client *gateway.Client, opts Options) *Session {
	s := &Session{
		client:    client,
		lifecycle: client.Lifecycle(),
		endpoints: opts.Endpoints.withDefaults(),
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
	}
	if s.notifier == nil {
		s.notifier = discard{}
	}
	if s.navigator == nil {
		s.navigator = discard{}
	}
	s.unsubscribe = s.lifecycle.Subscribe(s.handleEnded)
	return s
}

// Close detaches the forced-logout handler.
func (s *Session) Close() {
	s.unsubscribe()
}

// Client returns the authenticated gateway client for resource collaborators.
func (s *Session) Client() *gateway.Client {
	return s.client
}

// Status reports whether a complete session is stored.
func (s *Session) Status() session.State {
	return s.lifecycle.Store().State()
}

// CurrentIdentity returns the cached identity, or nil.
func (s *Session) CurrentIdentity() *session.Identity {
	return s.lifecycle.Store().Identity()
}

// ReplaceIdentity swaps the cached identity wholesale.
func (s *Session) ReplaceIdentity(identity *session.Identity) error {
	return s.lifecycle.Store().ReplaceIdentity(identity)
}

// OnSessionEnded subscribes to session teardowns.
func (s *Session) OnSessionEnded(handler session.Handler) session.Unsubscribe {
	return s.lifecycle.Subscribe(handler)
}

// Login exchanges credentials for a session. On failure the user is notified
// and false is returned along with the classified error.
func (s *Session) Login(ctx context.Context, creds Credentials) (bool, error) {
	resp, err := s.client.Issue(ctx, &gateway.Request{
		Method:    http.MethodPost,
		Path:      s.endpoints.Login,
		Body:      loginRequest{Username: creds.Identifier, Password: creds.Secret},
		Anonymous: true,
	})
	if err != nil {
		s.notifyFailure("Login failed", err)
		return false, err
	}

	var payload loginResponse
	if err := resp.Decode(&payload); err != nil {
		s.notifyFailure("Login failed", err)
		return false, err
	}

	pair := session.CredentialPair{AccessToken: payload.Access, RefreshToken: payload.Refresh}
	if !pair.IsComplete() {
		err := fmt.Errorf("login response is missing credentials")
		s.notifyFailure("Login failed", err)
		return false, err
	}

	user := payload.User
	if user == nil {
		// Some deployments return only the credentials.
		user, err = s.fetchProfile(ctx, pair.AccessToken)
		if err != nil {
			s.notifyFailure("Login failed", err)
			return false, err
		}
	}

	identity := identityFromUser(*user)
	if err := s.lifecycle.Store().Save(pair, identity); err != nil {
		s.notifyFailure("Login failed", err)
		return false, err
	}

	logging.Info("Console", "Logged in as %s", identity.DisplayName)
	return true, nil
}

// Logout ends the session. A second call is a no-op.
func (s *Session) Logout() error {
	ended, err := s.lifecycle.End(session.EndReasonLogout)
	if ended {
		logging.Info("Console", "Logged out")
	}
	return err
}

// Register creates an account. Field-level failures come back as
// *gateway.ValidationRejected so a form can map them onto fields.
func (s *Session) Register(ctx context.Context, reg Registration) (bool, error) {
	_, err := s.client.Issue(ctx, &gateway.Request{
		Method:    http.MethodPost,
		Path:      s.endpoints.Register,
		Body:      reg,
		Anonymous: true,
	})
	if err != nil {
		s.notifyFailure("Registration error", err)
		return false, err
	}

	s.notifier.Notify(Notification{
		Title:       "Registration complete",
		Description: fmt.Sprintf("Account %s created. You can now log in.", reg.Username),
		Severity:    SeverityInfo,
	})
	return true, nil
}

// RefreshProfile re-fetches the profile and replaces the cached identity.
// A transient failure clears the identity but keeps the credentials.
func (s *Session) RefreshProfile(ctx context.Context) error {
	resp, err := s.client.Get(ctx, s.endpoints.Me, nil)
	if err != nil {
		if errors.Is(err, &gateway.TimeoutFailure{}) || errors.Is(err, &gateway.NetworkFailure{}) {
			if clearErr := s.ReplaceIdentity(nil); clearErr != nil {
				logging.Warn("Console", "Failed to clear cached identity: %v", clearErr)
			}
		}
		return err
	}

	var user resources.User
	if err := resp.Decode(&user); err != nil {
		return err
	}
	identity := identityFromUser(user)
	return s.ReplaceIdentity(&identity)
}

// fetchProfile reads the profile with an explicit credential, before the
// session is stored.
func (s *Session) fetchProfile(ctx context.Context, accessToken string) (*resources.User, error) {
	resp, err := s.client.Issue(ctx, &gateway.Request{
		Method:    http.MethodGet,
		Path:      s.endpoints.Me,
		Header:    http.Header{"Authorization": {"Bearer " + accessToken}},
		Anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	var user resources.User
	if err := resp.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) handleEnded(event session.EndedEvent) {
	if !event.Reason.Forced() {
		return
	}
	s.notifier.Notify(Notification{
		Title:       endedTitle(event.Reason),
		Description: endedDescription(event.Reason),
		Severity:    SeverityError,
	})
	s.navigator.Navigate(LoginRoute)
}

func endedTitle(reason session.EndReason) string {
	if reason == session.EndReasonExternal {
		return "Logged out"
	}
	return "Session expired"
}

func endedDescription(reason session.EndReason) string {
	switch reason {
	case session.EndReasonRefreshUnavailable:
		return "Your saved session is incomplete. Please log in again."
	case session.EndReasonExternal:
		return "You were logged out from another window."
	default:
		return "Your session has expired. Please log in again."
	}
}

func (s *Session) notifyFailure(title string, err error) {
	s.notifier.Notify(Notification{
		Title:       title,
		Description: describeError(err),
		Severity:    SeverityError,
	})
}

// describeError turns a gateway error into one line for the user.
func describeError(err error) string {
	var validation *gateway.ValidationRejected
	if errors.As(err, &validation) {
		names := make([]string, 0, len(validation.Fields))
		for name := range validation.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		var parts []string
		for _, name := range names {
			parts = append(parts, validation.Fields[name]...)
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}

	var rejected *gateway.RemoteRejected
	if errors.As(err, &rejected) {
		if rejected.Message != "" {
			return rejected.Message
		}
		if rejected.StatusCode == http.StatusUnauthorized {
			return "Invalid credentials."
		}
		return fmt.Sprintf("The server rejected the request (%d).", rejected.StatusCode)
	}

	return err.Error()
}

func identityFromUser(u resources.User) session.Identity {
	return session.Identity{
		ID:          u.ID.String(),
		DisplayName: u.DisplayName(),
		Email:       u.Email,
		Role:        u.Role,
		CompanyID:   u.CompanyID.String(),
		CompanyName: u.CompanyName,
	}
}
