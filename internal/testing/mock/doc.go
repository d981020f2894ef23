// Package mock provides an in-process stand-in for the stock management API.
//
// APIServer speaks the same wire format as the real service:
//
//   - POST /api/auth/login/     {"username","password"} -> {"access","refresh","user"}
//   - POST /api/auth/refresh/   {"refresh"} -> {"access","refresh"}, refresh credentials are single use
//   - POST /api/auth/register/  field-level 400s for invalid input
//   - GET  /api/auth/me/        profile of the caller
//   - /api/<kind>/ and /api/<kind>/<id>/ CRUD collections, paginated or bare
//
// Access credentials are HS256 JWTs validated against a Clock, so tests can
// expire them by advancing a ManualClock or by calling ExpireAccessTokens.
// Request counters (LoginCalls, RefreshCalls, ResourceCalls) let tests assert
// single-flight refresh and retry bounds. APIErrorSimulation injects refresh
// failures and latency.
//
// Usage:
//
//	api := mock.NewAPIServer(mock.APIServerConfig{PageSize: 2})
//	_ = api.AddUser("ada", "correct-horse", map[string]any{"first_name": "Ada"})
//	api.Seed("products", map[string]any{"sku": "A-1", "name": "Bolt"})
//	server := httptest.NewServer(api.Handler())
//	defer server.Close()
package mock
