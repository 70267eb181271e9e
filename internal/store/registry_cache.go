package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/txmap/internal/transcript"
)

// RegistryCache manages gob-serialized registry data on disk, so large
// annotation files are parsed once:
//
//	{dir}/transcripts.gob       (serialized transcripts)
//	{dir}/transcripts.gob.meta  (source file fingerprint)
type RegistryCache struct {
	dir string
}

// NewRegistryCache creates a registry cache for the given directory.
func NewRegistryCache(dir string) *RegistryCache {
	return &RegistryCache{dir: dir}
}

func (rc *RegistryCache) gobPath() string {
	return filepath.Join(rc.dir, "transcripts.gob")
}

func (rc *RegistryCache) metaPath() string {
	return filepath.Join(rc.dir, "transcripts.gob.meta")
}

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Valid checks whether the cached registry matches the current source file.
func (rc *RegistryCache) Valid(src FileFingerprint) bool {
	meta, err := rc.readMeta()
	if err != nil {
		return false
	}

	checks := []struct{ key, val string }{
		{"src_path", src.Path},
		{"src_size", strconv.FormatInt(src.Size, 10)},
		{"src_modtime", src.ModTime.UTC().Format(time.RFC3339Nano)},
	}

	for _, c := range checks {
		if meta[c.key] != c.val {
			return false
		}
	}

	if _, err := os.Stat(rc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads serialized transcripts from disk into the registry.
func (rc *RegistryCache) Load(r *transcript.Registry) error {
	f, err := os.Open(rc.gobPath())
	if err != nil {
		return fmt.Errorf("open registry cache: %w", err)
	}
	defer f.Close()

	var data map[string]*transcript.Transcript
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return fmt.Errorf("decode registry cache: %w", err)
	}

	for _, t := range data {
		if err := r.Add(t); err != nil {
			return fmt.Errorf("load registry cache: %w", err)
		}
	}
	return nil
}

// Write serializes all transcripts from the registry to disk.
func (rc *RegistryCache) Write(r *transcript.Registry, src FileFingerprint) error {
	if err := os.MkdirAll(rc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data := make(map[string]*transcript.Transcript, r.Len())
	for _, id := range r.IDs() {
		t, err := r.Lookup(id)
		if err != nil {
			return err
		}
		data[id] = t
	}

	f, err := os.Create(rc.gobPath())
	if err != nil {
		return fmt.Errorf("create registry cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		os.Remove(rc.gobPath())
		return fmt.Errorf("encode registry cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close registry cache: %w", err)
	}

	return rc.writeMeta(src)
}

// Clear removes the cached registry files.
func (rc *RegistryCache) Clear() {
	os.Remove(rc.gobPath())
	os.Remove(rc.metaPath())
}

func (rc *RegistryCache) writeMeta(src FileFingerprint) error {
	lines := []string{
		"src_path=" + src.Path,
		"src_size=" + strconv.FormatInt(src.Size, 10),
		"src_modtime=" + src.ModTime.UTC().Format(time.RFC3339Nano),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(rc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (rc *RegistryCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(rc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
