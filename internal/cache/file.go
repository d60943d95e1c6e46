package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/tnunamak/usagemeter/internal/host"
	"github.com/tnunamak/usagemeter/internal/usage"
)

// FileStore keeps one JSON file per provider under Dir.
type FileStore struct {
	Dir string
	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *FileStore) path(provider string) string {
	return filepath.Join(s.Dir, provider+".json")
}

func (s *FileStore) Read(_ context.Context, provider string) (*Entry, error) {
	data, err := os.ReadFile(s.path(provider))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *FileStore) Write(_ context.Context, provider string, res usage.Result) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	data, err := json.Marshal(Entry{Result: res, FetchedAt: now()})
	if err != nil {
		return err
	}

	return host.WriteFileAtomic(s.path(provider), data, 0o644)
}
