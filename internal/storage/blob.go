package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Get for unknown keys.
var ErrNotExist = errors.New("blob does not exist")

// BlobStore holds lesson media and cached certificate images by slash-separated key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
