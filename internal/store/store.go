// Package store persists the last time anchor so a restarted process on the
// same boot has true time before its first sync completes.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/AndrewLester/truetime/pkg/truetime"
	"github.com/spf13/afero"
)

const formatVersion = 1

var ErrCorrupt = errors.New("anchor file corrupt")

type record struct {
	Version     int       `json:"version"`
	Wall        time.Time `json:"wall"`
	MonotonicNS int64     `json:"monotonic_ns"`
	Device      time.Time `json:"device"`
}

// File keeps the anchor as a small JSON document. Writes go to a temporary
// file that is renamed over the old one, so readers see either anchor whole.
type File struct {
	fs   afero.Fs
	path string
}

var _ truetime.AnchorStore = (*File)(nil)

func NewFile(path string) *File {
	return NewFileFs(afero.NewOsFs(), path)
}

func NewFileFs(fs afero.Fs, path string) *File {
	return &File{fs: fs, path: path}
}

// Load returns false without an error when nothing was stored yet.
func (f *File) Load() (truetime.Anchor, bool, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return truetime.Anchor{}, false, nil
	} else if err != nil {
		return truetime.Anchor{}, false, err
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return truetime.Anchor{}, false, fmt.Errorf("%w: %s: %w", ErrCorrupt, f.path, err)
	}
	if r.Version != formatVersion || r.Wall.IsZero() {
		return truetime.Anchor{}, false, fmt.Errorf("%w: %s: unsupported version %d", ErrCorrupt, f.path, r.Version)
	}

	return truetime.Anchor{
		Wall:      r.Wall,
		Monotonic: time.Duration(r.MonotonicNS),
		Device:    r.Device,
	}, true, nil
}

func (f *File) Save(anchor truetime.Anchor) error {
	data, err := json.Marshal(record{
		Version:     formatVersion,
		Wall:        anchor.Wall.UTC(),
		MonotonicNS: int64(anchor.Monotonic),
		Device:      anchor.Device.UTC(),
	})
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create anchor directory: %w", err)
	}

	tmp, err := afero.TempFile(f.fs, dir, ".anchor-*")
	if err != nil {
		return fmt.Errorf("could not create anchor file: %w", err)
	}
	defer f.fs.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write anchor file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write anchor file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not write anchor file: %w", err)
	}
	return f.fs.Rename(tmp.Name(), f.path)
}

