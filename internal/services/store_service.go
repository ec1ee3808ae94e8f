package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/latestcomment/educhat/internal/metrics"
	"github.com/latestcomment/educhat/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrCorruptSession   = errors.New("session file is corrupt")
)

const sessionFileExt = ".json"

// SessionStore persists the ordered turn list of each session.
type SessionStore interface {
	Load(id string) ([]models.Turn, error)
	Save(id string, turns []models.Turn) bool
	Exists(id string) bool
	LastError() string
	List() ([]string, error)
}

// FileStore keeps one pretty-printed JSON file per session under dir.
type FileStore struct {
	dir     string
	mu      sync.Mutex
	lastErr string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string { return s.dir }

// ValidSessionID reports whether id is a canonical UUID and so can name a
// session file.
func ValidSessionID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+sessionFileExt)
}

// Load returns the stored turns, or an empty slice when nothing was saved
// under id yet. An unparseable file is moved aside to <id>.json.corrupt so
// a later Save cannot overwrite it, and ErrCorruptSession is returned.
func (s *FileStore) Load(id string) ([]models.Turn, error) {
	turns, err := s.Peek(id)
	if errors.Is(err, ErrCorruptSession) {
		aside := s.path(id) + ".corrupt"
		if rerr := os.Rename(s.path(id), aside); rerr != nil {
			log.Error().Err(rerr).Str("session_id", id).Msg("could not move corrupt session file aside")
		}
	}
	return turns, err
}

// Peek reads like Load but never touches the file, corrupt or not.
func (s *FileStore) Peek(id string) ([]models.Turn, error) {
	if !ValidSessionID(id) {
		return nil, ErrInvalidSessionID
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Turn{}, nil
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var turns []models.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSession, id, err)
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	for i := range turns {
		if turns[i].Answers == nil {
			turns[i].Answers = models.NewAnswers()
		}
	}
	return turns, nil
}

// Save rewrites the whole session file. The write goes to a temporary file
// that is renamed over the target, so readers see either the old or the new
// list. On failure the reason is kept for LastError and false is returned.
func (s *FileStore) Save(id string, turns []models.Turn) bool {
	if err := s.save(id, turns); err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		metrics.SaveFailures.Inc()
		log.Error().Err(err).Str("session_id", id).Msg("save session")
		return false
	}
	return true
}

func (s *FileStore) save(id string, turns []models.Turn) error {
	if !ValidSessionID(id) {
		return ErrInvalidSessionID
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	data, err := EncodeTurns(turns)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Exists reports whether a file is stored under id.
func (s *FileStore) Exists(id string) bool {
	if !ValidSessionID(id) {
		return false
	}
	info, err := os.Stat(s.path(id))
	return err == nil && !info.IsDir()
}

// LastError is the most recent save failure, or "" if none happened.
func (s *FileStore) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// List returns the ids of all stored sessions, sorted.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sessionFileExt) {
			continue
		}
		id := strings.TrimSuffix(name, sessionFileExt)
		if ValidSessionID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// EncodeTurns renders turns the way session files are written: two-space
// indentation, UTF-8 kept literal.
func EncodeTurns(turns []models.Turn) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(turns); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
