package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ddos-reassembler/internal/reassembler"
)

// DefaultDir is used when no output directory is configured.
func DefaultDir() string {
	if v := strings.TrimSpace(os.Getenv("DDOS_REASSEMBLER_OUTPUT_DIR")); v != "" {
		return v
	}
	return "global-fp"
}

// DirSink writes each summary to <dir>/<key>.json.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) *DirSink {
	if dir == "" {
		dir = DefaultDir()
	}
	return &DirSink{dir: dir}
}

func (d *DirSink) Path(key string) string {
	return filepath.Join(d.dir, key+".json")
}

func (d *DirSink) Write(_ context.Context, s *reassembler.Summary) error {
	if err := ensureKey(s); err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if _, err := writeFileAtomic(d.dir, s.Key+".json", data); err != nil {
		return fmt.Errorf("write summary %s: %w", s.Key, err)
	}
	return nil
}

func (d *DirSink) Close() error { return nil }

// writeFileAtomic writes data next to its final name and renames it into place, so
// readers never see a partial summary. It returns the final path.
func writeFileAtomic(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	finalPath := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, name+".tmp.*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", err
	}
	ok = true
	return finalPath, nil
}
