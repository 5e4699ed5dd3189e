package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// Backend names accepted by Open.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
)

// Options selects and configures a store backend.
type Options struct {
	Backend    string
	ProjectID  string
	SQLitePath string
	// ClientOptions are passed to the Firestore client.
	ClientOptions []option.ClientOption
}

// Open creates the configured store. The returned close func releases its
// client or database handle and is never nil.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	noop := func() error { return nil }
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	case BackendFirestore:
		client, err := firestore.NewClient(ctx, opts.ProjectID, opts.ClientOptions...)
		if err != nil {
			return nil, noop, fmt.Errorf("create firestore client: %w", err)
		}
		return NewFirestoreStore(client), client.Close, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(opts.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
