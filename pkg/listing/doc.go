// Package listing normalizes collection responses into one envelope shape.
//
// Some endpoints of the remote API paginate and answer with
// {count, next, previous, results}; others answer with a bare array.
// Normalize hides the difference so every consumer has one contract:
//
//	env, err := listing.Normalize[resources.Product](body)
//	fmt.Println(env.Count, len(env.Results))
package listing
