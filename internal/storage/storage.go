package storage

import "context"

// Object describes a stored file: the store key, a retrieval URL, and the
// sha256 content hash (hex).
type Object struct {
	Key  string
	URL  string
	Hash string
}

// Store persists raw file bytes. Failures propagate untranslated to callers.
type Store interface {
	Save(ctx context.Context, data []byte, filename string) (Object, error)
}
