// Package staging persists uploaded image streams to temporary files so
// file-oriented detectors can read them.
package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const defaultExt = ".jpg"

// Error reports a failure to persist an upload.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stage upload %q: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// File is a staged upload. The caller owns it and must call Remove.
type File struct {
	Path string

	once      sync.Once
	removeErr error
}

// Stage copies body into a uniquely named file under dir (os.TempDir when
// dir is empty). A partially written file is removed before returning an
// error.
func Stage(dir, nameHint string, body io.Reader) (*File, error) {
	tmp, err := os.CreateTemp(dir, "face-*"+extension(nameHint))
	if err != nil {
		return nil, &Error{Name: nameHint, Err: err}
	}

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, &Error{Name: nameHint, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, &Error{Name: nameHint, Err: err}
	}
	return &File{Path: tmp.Name()}, nil
}

// Remove deletes the file. Only the first call touches the filesystem; a
// nil File is a no-op so Remove can be deferred before checking errors.
func (f *File) Remove() error {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		err := os.Remove(f.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.removeErr = err
		}
	})
	return f.removeErr
}

// extension keeps a short alphanumeric extension from the client's file
// name, falling back to .jpg.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return defaultExt
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultExt
		}
	}
	return ext
}
