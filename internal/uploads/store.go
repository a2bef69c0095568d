package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrUnsupportedType = errors.New("unsupported attachment type")

// allowedExtensions is the explicit allow-list; everything else is rejected.
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
	".pdf":  {},
}

// Store writes attachments under a single directory and hands back relative
// reference paths. Callers persist only the reference, never the bytes.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Store{dir: dir}, nil
}

// Register validates the extension, generates a collision-resistant stored
// name and writes the content. Returns the relative URL ("/uploads/<name>").
func (s *Store) Register(rawFilename string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(rawFilename))

	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrUnsupportedType
	}

	name := fmt.Sprintf("%d_%s", time.Now().Unix(), Sanitize(rawFilename))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)

	if err != nil {
		return "", err
	}

	_, err = io.Copy(f, content)

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)
		return "", err
	}

	return "/uploads/" + name, nil
}

// Open resolves a stored name back to a readable file. The name is reduced to
// its base component first so path traversal cannot escape the directory.
func (s *Store) Open(name string) (*os.File, error) {
	return os.Open(filepath.Join(s.dir, filepath.Base(name)))
}

// Sanitize strips path separators and anything outside a conservative
// character set from a client-supplied filename.
func Sanitize(rawFilename string) string {
	base := filepath.Base(strings.ReplaceAll(rawFilename, "\\", "/"))

	var b strings.Builder

	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := b.String()

	if out == "" || out == "." || out == ".." {
		out = "file"
	}

	return out
}
