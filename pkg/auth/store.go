package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"redpost/pkg/logging"
)

// ErrNoCredentials indicates that no credential set has been persisted yet.
var ErrNoCredentials = errors.New("no credential set saved")

// Store reads and replaces the on-disk credential set. Reads are safe from
// any number of concurrent jobs; writes replace the file wholesale so a
// reader never observes a partially written set.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *logging.Logger
}

// NewStore creates a store backed by the given file path.
func NewStore(path string, logger *logging.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted credential set. Version 1.0 files (a bare cookie
// array with no metadata envelope) are upgraded in memory on read.
func (s *Store) Load() (*CredentialSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, ErrNoCredentials
	}

	if trimmed[0] == '[' {
		var cookies []Credential
		if err := json.Unmarshal(data, &cookies); err != nil {
			return nil, fmt.Errorf("failed to parse legacy credential file: %w", err)
		}
		s.logger.Warnf("Credential file %s uses legacy format, re-login recommended", s.path)
		return &CredentialSet{Cookies: cookies, Version: "1.0"}, nil
	}

	var set CredentialSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}
	return &set, nil
}

// Replace atomically swaps the persisted credential set for a new one. The
// set is written to a temporary file in the same directory and renamed into
// place, so concurrent readers see either the old set or the new one, never
// a partial write.
func (s *Store) Replace(set *CredentialSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential set: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write credential set: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp credential file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace credential file: %w", err)
	}

	s.logger.Infof("Saved %d credentials to %s (%d/%d required present)",
		len(set.Cookies), s.path, len(set.CriticalFound), len(RequiredNames))
	return nil
}
