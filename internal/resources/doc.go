// Package resources provides typed REST collections for the stock API
// (companies, warehouses, products, users, roles and movements).
//
// Every call goes through gateway.Client and every list response is passed
// through listing.Normalize, so paginated and unpaginated endpoints share one
// contract. No business rules live here.
//
// The CLI works on Collection[Record] looked up through Kinds, since it only
// prints what the server returns. The typed constructors (Products,
// Warehouses, Movements, ...) are for Go callers that want decoded structs.
//
// Next only follows links on the API's own scheme and host.
package resources
