package publish

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// DiskStore stores reports on the local filesystem. Metadata is kept
// next to each report in a .meta file.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a new DiskStore rooted at dir.
func NewDiskStore(dir string) (*DiskStore, error) {
	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir}, nil
}

// Put writes body to dir/key.
func (s *DiskStore) Put(ctx context.Context, key string, body []byte, meta map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", err
	}

	data, err := json.Marshal(meta)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if err := os.WriteFile(path+".meta", data, 0644); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
