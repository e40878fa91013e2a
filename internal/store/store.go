// Package store persists generation runs: which model was asked what,
// and what came back. Backends share one interface so the HTTP layer and
// tests stay backend-agnostic.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"promptrun/internal/core"
)

// Type constants for store backends
const (
	TypeMemory     = "memory"
	TypeSQLite     = "sqlite"
	TypePostgreSQL = "postgresql"
	TypeMongoDB    = "mongodb"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one persisted dispatch outcome. Either Output is set (success)
// or ErrorType/ErrorMessage are (failure); never both.
type Run struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	Fingerprint  string    `json:"fingerprint"`
	Output       string    `json:"output,omitempty"`
	ErrorType    string    `json:"error_type,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StatusCode   int       `json:"status_code,omitempty"`
	LatencyMS    int64     `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists runs. Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	// Type is one of memory, sqlite, postgresql, mongodb.
	Type string `yaml:"type"`

	// SQLitePath is the database file path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresURL is the connection string for the postgresql backend.
	PostgresURL string `yaml:"postgres_url"`

	// MongoURL and MongoDatabase configure the mongodb backend.
	MongoURL      string `yaml:"mongo_url"`
	MongoDatabase string `yaml:"mongo_database"`
}

// New creates a Store based on the configuration and establishes the
// backing connection.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "", TypeMemory:
		return NewMemory(), nil
	case TypeSQLite:
		return NewSQLite(cfg.SQLitePath)
	case TypePostgreSQL:
		return NewPostgreSQL(ctx, cfg.PostgresURL)
	case TypeMongoDB:
		return NewMongoDB(ctx, cfg.MongoURL, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store type: %s (valid: memory, sqlite, postgresql, mongodb)", cfg.Type)
	}
}

// Fingerprint hashes a model plus conversation into a stable hex key so
// repeated runs of the same prompt can be grouped. xxhash is fast and
// collision-resistant enough for grouping; this is not a security hash.
func Fingerprint(model string, conv core.Conversation) string {
	h := xxhash.New()
	_, _ = h.WriteString(model)
	for _, msg := range conv {
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(string(msg.Role))
		_, _ = h.WriteString("\x1e")
		_, _ = h.WriteString(msg.Content)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// normalizeLimit clamps a List limit to a sane range.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
