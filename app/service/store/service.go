package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"hangoutd/app/config"
	"hangoutd/app/service/session"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

const snapshotFileName = "sessions.json"

// Repository is the session persistence seam. The orchestrator depends
// on this interface only, so a real backing store can replace the
// bundled one without touching the decision logic.
type Repository interface {
	GetOrCreate(id string) *session.Session
	Get(id string) (*session.Session, bool)
	Save(s *session.Session)
	IDs() []string
}

var _ Repository = (*Service)(nil)

// Service keeps sessions in memory and mirrors them to a JSON-lines
// snapshot file when a data dir is configured. Reads and writes hand
// out deep copies, callers commit staged changes via Save.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	filePath string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	var filePath string
	if cfg.Store.DataDir != "" {
		if err := os.MkdirAll(cfg.Store.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		filePath = filepath.Join(cfg.Store.DataDir, snapshotFileName)
	}

	s := &Service{
		sessions: map[string]*session.Session{},
		filePath: filePath,
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// NewInMemory returns a repository without file persistence.
func NewInMemory() *Service {
	return &Service{sessions: map[string]*session.Session{}}
}

func (s *Service) load() error {
	if s.filePath == "" {
		return nil
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open session snapshot file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var sess session.Session
		if err = json.Unmarshal(line, &sess); err != nil {
			return fmt.Errorf("failed to parse session snapshot line: %w", err)
		}
		if sess.ActiveUsers == nil {
			sess.ActiveUsers = map[string]bool{}
		}

		s.sessions[sess.ID] = &sess
	}

	if err = scanner.Err(); err != nil {
		return fmt.Errorf("error reading session snapshot file: %w", err)
	}

	return nil
}

// flush rewrites the snapshot file from the in-memory map. Persistence
// is best-effort, failures are logged and never surfaced to callers.
func (s *Service) flush() {
	if s.filePath == "" {
		return
	}

	file, err := os.OpenFile(s.filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		slog.Error("Failed to open session snapshot file", "error", err)
		return
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	for _, sess := range s.sessions {
		data, err := json.Marshal(sess)
		if err != nil {
			slog.Error("Failed to marshal session", "session_id", sess.ID, "error", err)
			continue
		}

		if _, err = writer.Write(append(data, '\n')); err != nil {
			slog.Error("Failed to write session snapshot", "error", err)
			return
		}
	}

	if err = writer.Flush(); err != nil {
		slog.Error("Failed to flush session snapshot", "error", err)
	}
}

func (s *Service) GetOrCreate(id string) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess.Clone()
	}

	sess := session.New(id)
	s.sessions[id] = sess

	return sess.Clone()
}

func (s *Service) Get(id string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	return sess.Clone(), true
}

func (s *Service) Save(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess.Clone()
	s.flush()
}

func (s *Service) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return pie.Sort(pie.Keys(s.sessions))
}
