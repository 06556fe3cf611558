package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/memory"
)

const fileExt = ".json"

// record is the on-disk form of a session.
type record struct {
	ID        string        `json:"id"`
	Mode      Mode          `json:"mode"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []models.Turn `json:"messages"`
}

// Store keeps sessions as JSON files in one directory.
type Store struct {
	dir    string
	window int
}

func NewStore(dir string, window int) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Store{dir: dir, window: window}, nil
}

// Save writes the session's full history, replacing any earlier save.
func (st *Store) Save(s *Session) error {
	rec := record{
		ID:        s.ID,
		Mode:      s.Mode(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: time.Now(),
		Messages:  s.Memory.History(),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(st.dir, "."+s.ID+"-*")
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := os.Rename(tmp.Name(), st.path(s.ID)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load restores a saved session.
func (st *Store) Load(id string) (*Session, error) {
	data, err := os.ReadFile(st.path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}

	mode := rec.Mode
	if mode == "" {
		mode = ModePlain
	}
	return &Session{
		ID:        id,
		CreatedAt: rec.CreatedAt,
		Memory:    memory.Restore(st.window, rec.Messages),
		mode:      mode,
	}, nil
}

// List returns saved session ids, newest first.
func (st *Store) List() ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func (st *Store) path(id string) string {
	return filepath.Join(st.dir, filepath.Base(id)+fileExt)
}
