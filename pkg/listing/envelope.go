package listing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedPayload is returned when a list payload is neither a bare
// JSON array nor an object exposing a results field.
var ErrUnsupportedPayload = errors.New("list payload is neither an array nor a paginated envelope")

// Envelope is the uniform shape of every collection fetch.
// It is built fresh per fetch and never patched; the next fetch supersedes it.
type Envelope[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasMore reports whether the remote side advertised a further page.
func (e Envelope[T]) HasMore() bool {
	return e.Next != nil && *e.Next != ""
}

// FromSlice wraps an already-decoded, unpaginated sequence.
func FromSlice[T any](items []T) Envelope[T] {
	if items == nil {
		items = []T{}
	}
	return Envelope[T]{
		Count:   len(items),
		Results: items,
	}
}

// Normalize decodes a remote list payload into the canonical envelope.
//
// A payload that already carries a results field is trusted as-is: count,
// next and previous are taken verbatim and not recomputed. A bare array
// becomes an envelope whose count is the array length, with no further pages.
func Normalize[T any](payload []byte) (Envelope[T], error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Envelope[T]{}, ErrUnsupportedPayload
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Envelope[T]{}, fmt.Errorf("failed to decode list items: %w", err)
		}
		return FromSlice(items), nil

	case '{':
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keys); err != nil {
			return Envelope[T]{}, fmt.Errorf("failed to decode list envelope: %w", err)
		}
		if _, ok := keys["results"]; !ok {
			return Envelope[T]{}, ErrUnsupportedPayload
		}

		var envelope Envelope[T]
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return Envelope[T]{}, fmt.Errorf("failed to decode list envelope: %w", err)
		}
		if envelope.Results == nil {
			envelope.Results = []T{}
		}
		return envelope, nil
	}

	return Envelope[T]{}, ErrUnsupportedPayload
}
