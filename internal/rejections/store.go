package rejections

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Rejection records a write request that was turned away.
type Rejection struct {
	Scope    string `json:"scope"`  // e.g. "add", "update", "delete"
	Reason   string `json:"reason"` // message returned to the client
	Locality string `json:"locality,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Recorder accepts rejections. The HTTP layer depends on this, not on Store.
type Recorder interface {
	Record(ctx context.Context, r Rejection) error
}

// Store appends rejections to one JSONL file per day under dir.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewStore returns a Store writing under dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Record appends r with a timestamp to today's file.
func (s *Store) Record(_ context.Context, r Rejection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	now := s.now().UTC()
	fpath := filepath.Join(s.dir, fmt.Sprintf("rejections_%s.jsonl", now.Format("2006-01-02")))
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	record := struct {
		Rejection
		Timestamp string `json:"timestamp"`
	}{r, now.Format(time.RFC3339Nano)}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	_, err = f.Write(append(data, '\n'))
	return err
}

// Discard drops every rejection. Used when the log is disabled.
type Discard struct{}

func (Discard) Record(context.Context, Rejection) error { return nil }
