package types

import (
	"context"
	"io"
	"time"
)

// RecordStore provides uniform CRUD operations for a single entity
// collection. Every method is fallible; callers never retry automatically.
type RecordStore interface {
	// List returns every row in the collection. A nil order uses the
	// collection's default order (manual order first, newest first).
	List(ctx context.Context, order *Order) ([]Row, error)

	// Insert creates a row from fields and returns it with its new ID.
	Insert(ctx context.Context, fields map[string]any) (Row, error)

	// Update replaces the given fields of an existing row and returns the
	// stored row. Returns ErrNotFound if no row has that ID.
	Update(ctx context.Context, id string, fields map[string]any) (Row, error)

	// Delete removes the row with the given ID.
	// Returns ErrNotFound if no row has that ID.
	Delete(ctx context.Context, id string) error

	// Count returns the number of rows in the collection.
	Count(ctx context.Context) (int, error)
}

// Positioner is implemented by stores that can persist a manual row order.
type Positioner interface {
	SetPositions(ctx context.Context, ids []string) error
}

// BulkDeleter is implemented by stores that delete many rows in one call.
// IDs that do not exist are ignored.
type BulkDeleter interface {
	DeleteMany(ctx context.Context, ids []string) error
}

// BlobMeta describes one stored object.
type BlobMeta struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ContentType  string    `json:"content_type,omitempty"`
}

// BlobStore stores uploaded files under slash-separated paths.
type BlobStore interface {
	// Upload writes content to path and returns the stored path.
	Upload(ctx context.Context, path string, content io.Reader) (string, error)

	// List returns metadata for every object whose path starts with prefix.
	List(ctx context.Context, prefix string) ([]BlobMeta, error)

	// Remove deletes the given paths. Missing paths are ignored.
	Remove(ctx context.Context, paths []string) error

	// PublicURL returns the URL under which path is served.
	PublicURL(path string) string
}

// Roles recognised by the session gate.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Session identifies the signed-in user.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionProvider returns the current session. A nil session with a nil
// error means nobody is signed in.
type SessionProvider interface {
	CurrentSession(ctx context.Context) (*Session, error)
}

// Logger is the leveled logging surface used across packages.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
