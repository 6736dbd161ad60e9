package perfcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tushar1003/deckgen/errors"
)

// fileTier is the on-disk tier. Each entry lives in its own JSON file named
// after the canonical key with ':' rewritten to '_', so a namespace can be
// cleared with a single glob.
//
// Operations return classified errors; the orchestrator logs them and
// downgrades every failure, so a broken disk degrades the cache without
// breaking callers. Unlike the shared tier, file operations carry no
// timeout: os file calls are not cancellable, local disk latency is
// accepted as-is.
type fileTier[V any] struct {
	dir string
	now func() time.Time
}

func newFileTier[V any](dir string, now func() time.Time) (*fileTier[V], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileTier[V]{dir: dir, now: now}, nil
}

// path maps a canonical key to its file on disk.
func (f *fileTier[V]) path(key string) string {
	return filepath.Join(f.dir, strings.ReplaceAll(key, ":", "_")+".json")
}

// get reads and decodes an entry. Corrupt files are removed and reported
// with a classified error; expired files are removed and reported as a
// plain miss.
func (f *fileTier[V]) get(key string) (*Entry[V], bool, error) {
	raw, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTierUnavailable, err),
			"fileTier", "get", "read entry file")
	}

	var entry Entry[V]
	if err := json.Unmarshal(raw, &entry); err != nil {
		f.removeQuiet(key)
		return nil, false, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrEntryCorrupted, err),
			"fileTier", "get", "decode entry file")
	}

	if entry.IsExpired(f.now()) {
		f.removeQuiet(key)
		return nil, false, nil
	}

	return &entry, true, nil
}

// put writes an entry to a temp file in the same directory and renames it
// into place, so readers never observe a partial write.
func (f *fileTier[V]) put(entry *Entry[V]) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrSerializationFailed, err),
			"fileTier", "put", "encode entry")
	}

	tmp, err := os.CreateTemp(f.dir, ".entry-*.tmp")
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTierUnavailable, err),
			"fileTier", "put", "create temp file")
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTierUnavailable, err),
			"fileTier", "put", "write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTierUnavailable, err),
			"fileTier", "put", "close temp file")
	}

	if err := os.Rename(tmp.Name(), f.path(entry.Key)); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTierUnavailable, err),
			"fileTier", "put", "rename into place")
	}
	return nil
}

// remove deletes an entry's file. A missing file counts as success.
func (f *fileTier[V]) remove(key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTierUnavailable, err),
			"fileTier", "remove", "delete entry file")
	}
	return nil
}

func (f *fileTier[V]) removeQuiet(key string) {
	_ = os.Remove(f.path(key))
}

// removeNamespace deletes every file belonging to the namespace. Returns
// the number of files removed; files that vanish or resist deletion are
// skipped.
func (f *fileTier[V]) removeNamespace(namespace string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, namespace+"_*.json"))
	if err != nil {
		return 0, errors.WrapInvalid(err, "fileTier", "removeNamespace", "glob namespace files")
	}

	removed := 0
	for _, path := range matches {
		if os.Remove(path) == nil {
			removed++
		}
	}
	return removed, nil
}

// sweepExpired scans every entry file and removes the expired and corrupt
// ones. Returns the number removed.
func (f *fileTier[V]) sweepExpired() (int, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return 0, errors.WrapInvalid(err, "fileTier", "sweepExpired", "glob entry files")
	}

	now := f.now()
	removed := 0
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var entry Entry[V]
		if err := json.Unmarshal(raw, &entry); err != nil {
			// Unreadable files are dead weight, reclaim them too.
			if os.Remove(path) == nil {
				removed++
			}
			continue
		}

		if entry.IsExpired(now) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}
