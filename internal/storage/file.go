package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"repdir-backend/internal/model"
)

// FilePersister keeps the directory as one JSON document on disk.
type FilePersister struct {
	path string
}

// NewFilePersister returns a persister for the JSON file at path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the backing file path.
func (p *FilePersister) Path() string { return p.path }

// Load reads the document, creating it as {} when absent.
func (p *FilePersister) Load(ctx context.Context) (model.Directory, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		dir := model.Directory{}
		if err := p.Save(ctx, dir); err != nil {
			return nil, err
		}
		return dir, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}

	dir := model.Directory{}
	if len(data) == 0 {
		return dir, nil
	}
	if err := json.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p.path, err)
	}
	return dir, nil
}

// Save rewrites the document wholesale. The new content goes to a temp file
// in the same directory which is synced and renamed over the target, so a
// crash leaves either the old or the new document.
func (p *FilePersister) Save(_ context.Context, dir model.Directory) error {
	data, err := json.MarshalIndent(dir, "", "  ")
	if err != nil {
		return fmt.Errorf("encode directory: %w", err)
	}

	parent := filepath.Dir(p.path)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(parent, "."+filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("replace %s: %w", p.path, err)
	}
	return nil
}

// Close is a no-op.
func (p *FilePersister) Close() error { return nil }
