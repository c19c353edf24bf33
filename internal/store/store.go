// Package store defines the remote tree-store capability used by the
// tracking engine and ships two adapters: an in-memory tree and a
// GORM-backed document table.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict is returned by Transaction when a concurrent writer changed
	// the value between read and write. Callers retry with the fresh value.
	ErrConflict = errors.New("store: transaction conflict")

	// ErrTransactionsUnsupported marks an adapter without an atomic
	// read-modify-write primitive. Callers fall back to read-then-write and
	// must treat that as a degraded mode, not mask it.
	ErrTransactionsUnsupported = errors.New("store: transactions unsupported")
)

// UpdateFunc receives the current value at a path (nil when absent) and
// returns the value to commit.
type UpdateFunc func(current any) (any, error)

// RemoteStore is the capability interface of the remote tree store. Paths are
// slash-separated logical strings ("tasks/{id}", "projects/{id}/sequence").
// Values are JSON-compatible: maps, slices, strings, float64, bool, nil.
type RemoteStore interface {
	// Get returns the value at path, or nil when nothing is stored there.
	Get(ctx context.Context, path string) (any, error)

	// Set replaces the value at path. A nil value removes the node.
	Set(ctx context.Context, path string, value any) error

	// Update applies a partial, multi-path write relative to path. Field keys
	// may themselves be nested ("history/1700000000000"); all fields land
	// atomically or not at all. A nil field value removes that child.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Remove deletes the node at path and everything beneath it.
	Remove(ctx context.Context, path string) error

	// Transaction atomically applies fn to the value at path and returns the
	// committed result, or ErrConflict when a concurrent write intervened.
	Transaction(ctx context.Context, path string, fn UpdateFunc) (any, error)

	// Subscribe registers fn to receive the full value at path after every
	// change beneath it. The returned func cancels the subscription.
	Subscribe(path string, fn func(value any)) (func(), error)
}

// Encode converts a typed record into the JSON-compatible tree form.
func Encode(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	return out, nil
}

// Decode converts a tree value back into a typed record.
func Decode(raw any, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	return nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// isPrefix reports whether segments a form a path prefix of segments b.
func isPrefix(a, b []string) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
