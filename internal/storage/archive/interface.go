// Package archive stores backtest reports on a local disk or in S3.
package archive

import "context"

// Storage is a flat object store addressed by slash separated paths.
type Storage interface {
	// Write stores data at path, replacing any previous object
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves the object at path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under prefix
	List(ctx context.Context, prefix string) ([]string, error)
}
