package archive

import "fmt"

// Storage backends.
const (
	TypeNone    = "none"
	TypeLocalFS = "localfs"
	TypeS3      = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Type string
	Path string
	S3   S3Config
}

// Open returns the configured backend, or nil when archiving is off.
func Open(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", TypeNone:
		return nil, nil
	case TypeLocalFS:
		if cfg.Path == "" {
			return nil, fmt.Errorf("archive path is required for localfs")
		}
		return NewLocalFS(cfg.Path)
	case TypeS3:
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}
