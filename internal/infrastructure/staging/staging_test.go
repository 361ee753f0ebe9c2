package staging

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
	"github.com/spf13/afero"
)

func TestStager_StageReadRelease(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := New(fs, "uploads", 1024)

	f, err := s.Stage("cat.jpg", strings.NewReader("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Stage error: %v", err)
	}
	if !strings.HasPrefix(f.Path(), "uploads") || !strings.HasSuffix(f.Path(), ".jpg") {
		t.Fatalf("unexpected staged path: %q", f.Path())
	}
	if f.MIMEType() != "image/jpeg" || f.Size() != int64(len("jpeg-bytes")) {
		t.Fatalf("unexpected file meta: mime=%q size=%d", f.MIMEType(), f.Size())
	}

	b, err := f.Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if string(b) != "jpeg-bytes" {
		t.Fatalf("unexpected content: %q", b)
	}

	if err := f.Release(); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if ok, _ := afero.Exists(fs, f.Path()); ok {
		t.Fatalf("staged file still exists after release")
	}
	if err := f.Release(); err != nil {
		t.Fatalf("second Release should be a no-op, got %v", err)
	}
}

func TestStager_UniqueNames(t *testing.T) {
	t.Parallel()

	s := New(afero.NewMemMapFs(), "", 0)
	a, err := s.Stage("a.wav", strings.NewReader("1"), "audio/wav")
	if err != nil {
		t.Fatalf("Stage error: %v", err)
	}
	b, err := s.Stage("a.wav", strings.NewReader("2"), "audio/wav")
	if err != nil {
		t.Fatalf("Stage error: %v", err)
	}
	if a.Path() == b.Path() {
		t.Fatalf("expected distinct staged paths, got %q twice", a.Path())
	}
	if s.MaxBytes() != DefaultMaxBytes {
		t.Fatalf("expected default limit, got %d", s.MaxBytes())
	}
}

func TestStager_TooLarge(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := New(fs, "uploads", 4)

	_, err := s.Stage("big.pdf", strings.NewReader("12345"), "application/pdf")
	if !errors.Is(err, generation.ErrUploadTooLarge) {
		t.Fatalf("expected ErrUploadTooLarge, got %v", err)
	}
	assertEmptyDir(t, fs, "uploads")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestStager_WriteFailureCleansUp(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := New(fs, "uploads", 1024)

	_, err := s.Stage("x.mp3", failingReader{}, "audio/mpeg")
	var se *generation.StagingError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StagingError, got %v", err)
	}
	assertEmptyDir(t, fs, "uploads")
}

func TestFile_ReadAfterRelease(t *testing.T) {
	t.Parallel()

	s := New(afero.NewMemMapFs(), "uploads", 1024)
	f, err := s.Stage("doc.txt", strings.NewReader("text"), "text/plain")
	if err != nil {
		t.Fatalf("Stage error: %v", err)
	}
	_ = f.Release()

	_, err = f.Read()
	var se *generation.StagingError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StagingError reading a released file, got %v", err)
	}
}

func TestFile_ReleaseNil(t *testing.T) {
	t.Parallel()

	var f *File
	if err := f.Release(); err != nil {
		t.Fatalf("nil Release should be a no-op, got %v", err)
	}
}

func TestStager_Probe(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if err := New(fs, "uploads", 0).Probe(); err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	assertEmptyDir(t, fs, "uploads")

	if err := New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "uploads", 0).Probe(); err == nil {
		t.Fatalf("Probe on a read-only fs should fail")
	}
}

func assertEmptyDir(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected %s to be empty, found %d entries", dir, len(entries))
	}
}
