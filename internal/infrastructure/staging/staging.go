package staging

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
	"github.com/spf13/afero"
)

const (
	DefaultDir      = "uploads"
	DefaultMaxBytes = 20 << 20 // 20MiB, Gemini inline data limit
)

// Stager writes each upload to its own file under dir.
type Stager struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
}

func New(fs afero.Fs, dir string, maxBytes int64) *Stager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dir == "" {
		dir = DefaultDir
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Stager{fs: fs, dir: dir, maxBytes: maxBytes}
}

func (s *Stager) MaxBytes() int64 { return s.maxBytes }

// File is a staged upload owned by exactly one request.
type File struct {
	fs       afero.Fs
	path     string
	mimeType string
	size     int64

	once sync.Once
	err  error
}

// Stage copies r into a new file. On any error nothing is left on disk.
func (s *Stager) Stage(name string, r io.Reader, mimeType string) (*File, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return nil, &generation.StagingError{Op: "create upload dir", Err: err}
	}

	path := filepath.Join(s.dir, uuid.NewString()+filepath.Ext(filepath.Base(name)))
	f, err := s.fs.Create(path)
	if err != nil {
		return nil, &generation.StagingError{Op: "create staged file", Err: err}
	}

	n, copyErr := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = s.fs.Remove(path)
		return nil, &generation.StagingError{Op: "write staged file", Err: copyErr}
	case n > s.maxBytes:
		_ = s.fs.Remove(path)
		return nil, fmt.Errorf("%w: upload exceeds %d bytes", generation.ErrUploadTooLarge, s.maxBytes)
	case closeErr != nil:
		_ = s.fs.Remove(path)
		return nil, &generation.StagingError{Op: "write staged file", Err: closeErr}
	}

	return &File{fs: s.fs, path: path, mimeType: mimeType, size: n}, nil
}

// Probe checks that the staging dir accepts writes.
func (s *Stager) Probe() error {
	f, err := s.Stage(".probe", bytes.NewReader(nil), "")
	if err != nil {
		return err
	}
	return f.Release()
}

func (f *File) Path() string     { return f.path }
func (f *File) MIMEType() string { return f.mimeType }
func (f *File) Size() int64      { return f.size }

// Read returns the staged bytes.
func (f *File) Read() ([]byte, error) {
	b, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		return nil, &generation.StagingError{Op: "read staged file", Err: err}
	}
	return b, nil
}

// Release removes the staged file. Safe to call more than once and on nil.
func (f *File) Release() error {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		if err := f.fs.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.err = &generation.StagingError{Op: "remove staged file", Err: err}
		}
	})
	return f.err
}
