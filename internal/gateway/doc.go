// Package gateway is the authenticated request pipeline to the remote API.
//
// Every outbound call goes through one Client:
//
//   - The Authenticator (an http.RoundTripper) reads the access credential
//     from the session store at send time and attaches it as a bearer token.
//   - The guardian evaluates each completed attempt. Transport failures are
//     mapped to TimeoutFailure or NetworkFailure. A 401 on an authenticated
//     request is recoverable once, and terminal on the refresh exchange itself
//     or on a request that was already replayed.
//   - The RefreshCoordinator keeps at most one refresh exchange in flight.
//     Requests that fault while it runs wait and are then replayed with the
//     rotated credential. A request whose credential was already rotated by
//     the time its 401 arrived is replayed without a new exchange.
//
// When recovery fails the session is ended through session.Lifecycle, which
// clears the store before broadcasting so a burst of failures produces one
// "session ended" event.
//
// Requests marked Anonymous (login, registration) carry no credential, and a
// 401 on them is returned to the caller as a RemoteRejected.
package gateway
