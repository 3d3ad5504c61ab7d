package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// DefaultMaxBlobSize is the largest attachment the store accepts (8 MiB).
const DefaultMaxBlobSize int64 = 8 << 20

// DBFile is the database file name inside the data directory.
const DBFile = "vault.db"

// Store is the record keeper's durable state: four entity collections, the
// attachment blobs they own and a key/value settings table. Reads are served
// from an in-memory view that is updated only after a write commits.
type Store struct {
	db          *sql.DB
	path        string
	now         func() time.Time
	newID       func() string
	maxBlobSize int64

	mu          sync.RWMutex
	resources   *collection[models.Resource]
	speeches    *collection[models.Speech]
	skills      *collection[models.Skill]
	evaluations *collection[models.Evaluation]
	settings    map[string]json.RawMessage
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for generated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxBlobSize overrides the attachment size limit.
func WithMaxBlobSize(n int64) Option {
	return func(s *Store) { s.maxBlobSize = n }
}

// NewID returns a fresh record id: a version 7 UUID, which is time-ordered
// and carries random bits.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Open opens (or creates) the vault database inside dataDir.
func Open(ctx context.Context, dataDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return OpenFile(ctx, filepath.Join(dataDir, DBFile), opts...)
}

// OpenFile opens (or creates) the vault database at path, runs migrations and
// loads the cached view.
func OpenFile(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open vault db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping vault db: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate vault db: %w", err)
	}
	if _, err := db.ExecContext(ctx, Triggers); err != nil {
		db.Close()
		return nil, fmt.Errorf("create triggers: %w", err)
	}

	s := &Store{
		db:          db,
		path:        path,
		now:         time.Now,
		newID:       NewID,
		maxBlobSize: DefaultMaxBlobSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// MaxBlobSize returns the attachment size limit in bytes.
func (s *Store) MaxBlobSize() int64 {
	return s.maxBlobSize
}

func (s *Store) timestamp() string {
	return models.Timestamp(s.now())
}

func (s *Store) load(ctx context.Context) error {
	var err error
	if s.resources, err = loadCollection(ctx, s.db, resourceTable); err != nil {
		return err
	}
	if s.speeches, err = loadCollection(ctx, s.db, speechTable); err != nil {
		return err
	}
	if s.skills, err = loadCollection(ctx, s.db, skillTable); err != nil {
		return err
	}
	if s.evaluations, err = loadCollection(ctx, s.db, evaluationTable); err != nil {
		return err
	}
	s.settings, err = loadSettings(ctx, s.db)
	return err
}
