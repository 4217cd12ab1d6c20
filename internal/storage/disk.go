package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// DiskStore is a content-addressed store on the local filesystem. Files land
// under dir/<hash[:2]>/<hash><ext> so repeated uploads of the same bytes
// share one object. URLs are served by the app's /files/ route.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) *DiskStore {
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir returns the store's root directory (used to mount the /files/ route).
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Save(_ context.Context, data []byte, filename string) (Object, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	ext := strings.ToLower(filepath.Ext(filename))
	ext = unsafeNameChars.ReplaceAllString(ext, "")
	key := filepath.Join(hash[:2], hash+ext)

	path := filepath.Join(s.dir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Object{}, fmt.Errorf("storage mkdir: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return Object{}, fmt.Errorf("storage stat: %w", err)
		}
		// Write through a temp file so a crash never leaves a truncated object.
		tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
		if err != nil {
			return Object{}, fmt.Errorf("storage temp: %w", err)
		}
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return Object{}, fmt.Errorf("storage write: %w", err)
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmp.Name())
			return Object{}, fmt.Errorf("storage close: %w", err)
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			os.Remove(tmp.Name())
			return Object{}, fmt.Errorf("storage rename: %w", err)
		}
	}

	return Object{
		Key:  filepath.ToSlash(key),
		URL:  s.baseURL + "/files/" + filepath.ToSlash(key),
		Hash: hash,
	}, nil
}
