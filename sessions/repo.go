package sessions

import "context"

// Repo defines the storage operations for session records.
// Implementations must be safe for concurrent use.
type Repo interface {
	// Get returns the record for handle. A missing handle is (Record{}, false, nil).
	Get(ctx context.Context, handle string) (Record, bool, error)

	// Put upserts the record under handle, last write wins.
	// Records without a handle, access token or refresh token are rejected.
	Put(ctx context.Context, handle string, rec Record) error
}

// Pinger is implemented by repos backed by a remote store
type Pinger interface {
	Ping(ctx context.Context) error
}
