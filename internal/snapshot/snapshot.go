// Package snapshot serializes the full application state to versioned,
// pretty-printed JSON. A bundle holds every collection in one document
// (used by the export API); a Store writes one file per collection under
// a directory (used for local backups). Every JSON shape carries an
// explicit version so a future format change fails loudly instead of
// silently dropping data.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"quid/internal/logger"
	"quid/internal/models"
)

// Version is the current snapshot format version.
const Version = 1

// ErrVersion is returned when a snapshot was written by an unsupported
// format version.
var ErrVersion = errors.New("unsupported snapshot version")

// ErrMalformed is returned when a snapshot document cannot be decoded.
var ErrMalformed = errors.New("malformed snapshot")

// Bundle is the full exportable state of one user.
type Bundle struct {
	Version      int                  `json:"version"`
	ExportedAt   time.Time            `json:"exported_at"`
	Accounts     []models.Account     `json:"accounts"`
	Categories   []models.Category    `json:"categories"`
	Transactions []models.Transaction `json:"transactions"`
	Budgets      []models.Budget      `json:"budgets"`
	Pools        []models.Pool        `json:"pools"`
}

// Encode writes the bundle as pretty-printed JSON.
func Encode(w io.Writer, b *Bundle) error {
	b.Version = Version
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// Decode reads a bundle and validates its version.
func Decode(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersion, b.Version, Version)
	}
	return &b, nil
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Bundle, error) {
	return Decode(bytes.NewReader(data))
}

// envelope wraps a single collection file on disk.
type envelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}

// Store persists collections as individual JSON files under Dir
// (accounts.json, categories.json, ...). Reads degrade gracefully: a
// missing or malformed file yields an absent collection rather than an
// error, and the in-memory state stays authoritative.
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// SaveBundle writes each collection of b to its own file, overwriting
// previous contents wholesale.
func (s *Store) SaveBundle(b *Bundle) error {
	if err := saveCollection(s.Dir, "accounts.json", b.Accounts); err != nil {
		return err
	}
	if err := saveCollection(s.Dir, "categories.json", b.Categories); err != nil {
		return err
	}
	if err := saveCollection(s.Dir, "transactions.json", b.Transactions); err != nil {
		return err
	}
	if err := saveCollection(s.Dir, "budgets.json", b.Budgets); err != nil {
		return err
	}
	return saveCollection(s.Dir, "pools.json", b.Pools)
}

// LoadBundle reads every collection file that exists and is readable.
// Collections that are missing or malformed come back empty.
func (s *Store) LoadBundle() *Bundle {
	b := &Bundle{Version: Version}
	loadCollection(s.Dir, "accounts.json", &b.Accounts)
	loadCollection(s.Dir, "categories.json", &b.Categories)
	loadCollection(s.Dir, "transactions.json", &b.Transactions)
	loadCollection(s.Dir, "budgets.json", &b.Budgets)
	loadCollection(s.Dir, "pools.json", &b.Pools)
	return b
}

func saveCollection(dir, name string, data any) error {
	raw, err := json.MarshalIndent(data, "    ", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	env := envelope{Version: Version, SavedAt: time.Now(), Data: raw}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func loadCollection(dir, name string, dest any) {
	path := filepath.Join(dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Get().Warnw("snapshot read failed", "file", name, "error", err)
		}
		return
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Get().Warnw("snapshot file malformed, skipping", "file", name, "error", err)
		return
	}
	if env.Version != Version {
		logger.Get().Warnw("snapshot file has unsupported version, skipping",
			"file", name, "version", env.Version)
		return
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		logger.Get().Warnw("snapshot data malformed, skipping", "file", name, "error", err)
	}
}
