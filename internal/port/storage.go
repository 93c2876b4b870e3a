package port

import (
	"context"
	"io"
)

// SourceStorage abstracts the object store holding uploaded registry exports.
// Open returns domain.ErrSourceNotFound when key does not exist.
type SourceStorage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
