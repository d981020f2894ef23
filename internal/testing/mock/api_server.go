package mock

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Endpoint paths served by APIServer.
const (
	LoginPath    = "/api/auth/login/"
	RefreshPath  = "/api/auth/refresh/"
	RegisterPath = "/api/auth/register/"
	MePath       = "/api/auth/me/"
)

// APIServerConfig configures the mock stock API.
type APIServerConfig struct {
	// AccessTokenLifetime is how long access tokens remain valid.
	AccessTokenLifetime time.Duration

	// RefreshTokenLifetime is how long refresh tokens remain valid.
	RefreshTokenLifetime time.Duration

	// PageSize is the default page size of paginated collections.
	PageSize int

	// BareCollections are served as plain JSON arrays instead of envelopes.
	BareCollections []string

	// SimulateErrors can be set to simulate various error conditions
	SimulateErrors *APIErrorSimulation

	// Clock is the clock used to issue and validate tokens (defaults to RealClock)
	Clock Clock

	// Debug enables debug logging
	Debug bool
}

// APIErrorSimulation allows simulating error conditions.
type APIErrorSimulation struct {
	// RefreshStatus makes the refresh endpoint answer with this status.
	RefreshStatus int

	// RefreshDelay adds latency to every refresh exchange.
	RefreshDelay time.Duration

	// ResponseDelay adds latency to every resource request.
	ResponseDelay time.Duration
}

// APIServer is a mock of the stock management API: JWT login and refresh,
// registration, profile, and CRUD collections.
type APIServer struct {
	config     APIServerConfig
	httpServer *http.Server
	listener   net.Listener
	port       int
	running    bool
	signingKey []byte
	clock      Clock

	mu            sync.RWMutex
	users         map[string]*apiUser
	refreshTokens map[string]refreshEntry
	collections   map[string]*collection
	generation    int64

	loginCalls    atomic.Int32
	refreshCalls  atomic.Int32
	resourceCalls atomic.Int32
}

type apiUser struct {
	passwordHash []byte
	record       map[string]any
}

type refreshEntry struct {
	username  string
	expiresAt time.Time
}

type collection struct {
	nextID  int
	records []map[string]any
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Access  string         `json:"access"`
	Refresh string         `json:"refresh"`
	User    map[string]any `json:"user"`
}

// NewAPIServer creates a new mock API server.
func NewAPIServer(config APIServerConfig) *APIServer {
	if config.AccessTokenLifetime == 0 {
		config.AccessTokenLifetime = 5 * time.Minute
	}
	if config.RefreshTokenLifetime == 0 {
		config.RefreshTokenLifetime = 24 * time.Hour
	}
	if config.PageSize == 0 {
		config.PageSize = 20
	}

	clock := config.Clock
	if clock == nil {
		clock = RealClock{}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("failed to generate signing key: %v", err))
	}

	return &APIServer{
		config:        config,
		signingKey:    key,
		clock:         clock,
		users:         make(map[string]*apiUser),
		refreshTokens: make(map[string]refreshEntry),
		collections:   make(map[string]*collection),
	}
}

// Start starts the server on a random local port.
func (s *APIServer) Start(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.port, nil
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	s.httpServer = &http.Server{
		Handler:  s.Handler(),
		ErrorLog: log.New(io.Discard, "", 0),
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			if s.config.Debug {
				fmt.Fprintf(os.Stderr, "Mock API server error: %v\n", err)
			}
		}
	}()

	s.running = true
	if s.config.Debug {
		fmt.Fprintf(os.Stderr, "Mock API server started on port %d\n", s.port)
	}
	return s.port, nil
}

// Stop shuts the server down.
func (s *APIServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.running = false
	return err
}

// BaseURL returns the server root URL.
func (s *APIServer) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("http://127.0.0.1:%d", s.port)
}

// Handler returns the server's routes, for use with httptest.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(LoginPath, s.handleLogin)
	mux.HandleFunc(RefreshPath, s.handleRefresh)
	mux.HandleFunc(RegisterPath, s.handleRegister)
	mux.HandleFunc(MePath, s.authenticated(s.handleMe))
	mux.HandleFunc("/api/", s.authenticated(s.handleCollection))
	return mux
}

// AddUser registers an account. Extra fields are merged into the user record.
func (s *APIServer) AddUser(username, password string, fields map[string]any) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := map[string]any{"id": len(s.users) + 1, "username": username, "is_active": true}
	for k, v := range fields {
		record[k] = v
	}
	s.users[username] = &apiUser{passwordHash: hash, record: record}
	return nil
}

// Seed adds records to a collection, assigning ids.
func (s *APIServer) Seed(kind string, records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collectionLocked(kind)
	for _, r := range records {
		c.nextID++
		copied := map[string]any{"id": c.nextID}
		for k, v := range r {
			copied[k] = v
		}
		c.records = append(c.records, copied)
	}
}

// ExpireAccessTokens invalidates every access token issued so far while
// leaving refresh tokens usable.
func (s *APIServer) ExpireAccessTokens() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *APIServer) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refreshTokens = make(map[string]refreshEntry)
	s.mu.Unlock()
}

// SetSimulateErrors replaces the error simulation settings.
func (s *APIServer) SetSimulateErrors(sim *APIErrorSimulation) {
	s.mu.Lock()
	s.config.SimulateErrors = sim
	s.mu.Unlock()
}

// LoginCalls returns how many login requests were received.
func (s *APIServer) LoginCalls() int { return int(s.loginCalls.Load()) }

// RefreshCalls returns how many refresh exchanges were received.
func (s *APIServer) RefreshCalls() int { return int(s.refreshCalls.Load()) }

// ResourceCalls returns how many requests reached authenticated endpoints,
// accepted or not.
func (s *APIServer) ResourceCalls() int { return int(s.resourceCalls.Load()) }

func (s *APIServer) simulation() APIErrorSimulation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config.SimulateErrors == nil {
		return APIErrorSimulation{}
	}
	return *s.config.SimulateErrors
}

func (s *APIServer) issueTokens(username string) (access, refresh string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub": username,
		"gen": s.generation,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(s.config.AccessTokenLifetime).Unix(),
	}
	access, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", "", err
	}

	refresh = uuid.NewString()
	s.refreshTokens[refresh] = refreshEntry{
		username:  username,
		expiresAt: now.Add(s.config.RefreshTokenLifetime),
	}
	return access, refresh, nil
}

// verifyAccess returns the username carried by a valid access token.
func (s *APIServer) verifyAccess(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	gen, _ := claims["gen"].(float64)

	s.mu.RLock()
	current := s.generation
	s.mu.RUnlock()
	if int64(gen) < current {
		return "", fmt.Errorf("token has been revoked")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	return sub, nil
}

type userKey struct{}

func (s *APIServer) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.resourceCalls.Add(1)

		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		username, err := s.verifyAccess(raw)
		if err != nil {
			if s.config.Debug {
				fmt.Fprintf(os.Stderr, "Mock API rejected access token: %v\n", err)
			}
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, username)))
	}
}

func (s *APIServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.loginCalls.Add(1)

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
		return
	}

	fields := map[string][]string{}
	if body.Username == "" {
		fields["username"] = []string{"This field may not be blank."}
	}
	if body.Password == "" {
		fields["password"] = []string{"This field may not be blank."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	s.mu.RLock()
	user, ok := s.users[body.Username]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(body.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}

	access, refresh, err := s.issueTokens(body.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	s.mu.RLock()
	record := copyRecord(user.record)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, LoginResponse{Access: access, Refresh: refresh, User: record})
}

func (s *APIServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.refreshCalls.Add(1)

	sim := s.simulation()
	if sim.RefreshDelay > 0 {
		time.Sleep(sim.RefreshDelay)
	}
	if sim.RefreshStatus != 0 {
		writeJSON(w, sim.RefreshStatus, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}

	// Rotation: a refresh token is single use.
	s.mu.Lock()
	entry, ok := s.refreshTokens[body.Refresh]
	delete(s.refreshTokens, body.Refresh)
	s.mu.Unlock()

	if !ok || !s.clock.Now().Before(entry.expiresAt) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	access, refresh, err := s.issueTokens(entry.username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	if s.config.Debug {
		fmt.Fprintf(os.Stderr, "Mock API refreshed tokens for %s\n", entry.username)
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *APIServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
		return
	}

	username, _ := body["username"].(string)
	password, _ := body["password"].(string)
	delete(body, "password")

	fields := map[string][]string{}
	if username == "" {
		fields["username"] = []string{"This field may not be blank."}
	}
	if len(password) < 8 {
		fields["password"] = []string{"This password is too short. It must contain at least 8 characters."}
	}
	s.mu.RLock()
	_, taken := s.users[username]
	s.mu.RUnlock()
	if taken {
		fields["username"] = []string{"A user with that username already exists."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	if err := s.AddUser(username, password, body); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	s.mu.RLock()
	record := copyRecord(s.users[username].record)
	s.mu.RUnlock()
	writeJSON(w, http.StatusCreated, record)
}

func (s *APIServer) handleMe(w http.ResponseWriter, r *http.Request) {
	username, _ := r.Context().Value(userKey{}).(string)

	s.mu.RLock()
	user, ok := s.users[username]
	var record map[string]any
	if ok {
		record = copyRecord(user.record)
	}
	s.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleCollection serves /api/<kind>/ and /api/<kind>/<id>/.
func (s *APIServer) handleCollection(w http.ResponseWriter, r *http.Request) {
	if d := s.simulation().ResponseDelay; d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" || len(parts) > 2 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	kind := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.listRecords(w, r, kind)
		case http.MethodPost:
			s.createRecord(w, r, kind)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, err := strconv.Atoi(parts[1])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collectionLocked(kind)
	idx := -1
	for i, rec := range c.records {
		if rec["id"] == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, c.records[idx])
	case http.MethodPatch, http.MethodPut:
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
			return
		}
		for k, v := range patch {
			if k != "id" {
				c.records[idx][k] = v
			}
		}
		writeJSON(w, http.StatusOK, c.records[idx])
	case http.MethodDelete:
		c.records = append(c.records[:idx], c.records[idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *APIServer) listRecords(w http.ResponseWriter, r *http.Request, kind string) {
	query := r.URL.Query()
	search := strings.ToLower(query.Get("search"))

	s.mu.RLock()
	c := s.collections[kind]
	var matched []map[string]any
	if c != nil {
		for _, rec := range c.records {
			if search == "" || recordMatches(rec, search) {
				matched = append(matched, copyRecord(rec))
			}
		}
	}
	s.mu.RUnlock()

	if matched == nil {
		matched = []map[string]any{}
	}

	for _, bare := range s.config.BareCollections {
		if bare == kind {
			writeJSON(w, http.StatusOK, matched)
			return
		}
	}

	pageSize := s.config.PageSize
	if n, err := strconv.Atoi(query.Get("page_size")); err == nil && n > 0 {
		pageSize = n
	}
	page := 1
	if n, err := strconv.Atoi(query.Get("page")); err == nil && n > 0 {
		page = n
	}

	start := min((page-1)*pageSize, len(matched))
	end := min(start+pageSize, len(matched))

	link := func(p int) *string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(p))
		u := fmt.Sprintf("http://%s%s?%s", r.Host, r.URL.Path, q.Encode())
		return &u
	}

	var next, previous *string
	if end < len(matched) {
		next = link(page + 1)
	}
	if page > 1 {
		previous = link(page - 1)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(matched),
		"next":     next,
		"previous": previous,
		"results":  matched[start:end],
	})
}

func (s *APIServer) createRecord(w http.ResponseWriter, r *http.Request, kind string) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
		return
	}

	fields := map[string][]string{}
	if name, _ := body["name"].(string); name == "" && kind != "movements" {
		fields["name"] = []string{"This field may not be blank."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collectionLocked(kind)
	if sku, _ := body["sku"].(string); sku != "" {
		for _, rec := range c.records {
			if rec["sku"] == sku {
				fields["sku"] = []string{"product with this sku already exists."}
			}
		}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	c.nextID++
	body["id"] = c.nextID
	c.records = append(c.records, body)
	writeJSON(w, http.StatusCreated, body)
}

// collectionLocked returns the collection for kind, creating it.
// REQUIRES: s.mu held for writing.
func (s *APIServer) collectionLocked(kind string) *collection {
	c, ok := s.collections[kind]
	if !ok {
		c = &collection{}
		s.collections[kind] = c
	}
	return c
}

func recordMatches(rec map[string]any, search string) bool {
	for _, v := range rec {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

func copyRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
