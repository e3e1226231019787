// Package media keeps uploaded photo answers on the local filesystem.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("media: unsupported file type")

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type Store interface {
	// Save stores the upload and returns the reference to keep in the answer.
	Save(filename string, r io.Reader) (ref string, err error)
	// Remove deletes a file previously returned by Save.
	Remove(ref string) error
}

type Dir struct {
	root   string
	prefix string
}

func NewDir(root, prefix string) (*Dir, error) {
	err := os.MkdirAll(root, 0o755)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Dir{root, prefix}, nil
}

func (d *Dir) Save(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExts[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	head = head[:n]
	if ct := http.DetectContentType(head); !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: %s content", ErrUnsupportedType, ct)
	}

	name := uuid.NewString() + ext
	f, err := os.OpenFile(filepath.Join(d.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}

	_, err = io.Copy(f, io.MultiReader(bytes.NewReader(head), r))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return path.Join(d.prefix, name), nil
}

func (d *Dir) Remove(ref string) error {
	name := strings.TrimPrefix(ref, d.prefix)
	if name == ref || name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("media: %q is not a stored file", ref)
	}
	return os.Remove(filepath.Join(d.root, name))
}

// Prefix is the URL path the files are served under.
func (d *Dir) Prefix() string {
	return d.prefix
}

// Handler serves the stored files under Prefix.
func (d *Dir) Handler() http.Handler {
	return http.StripPrefix(d.prefix, http.FileServer(http.Dir(d.root)))
}
