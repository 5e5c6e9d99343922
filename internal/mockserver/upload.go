package mockserver

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// uploadSink stores uploaded reports under dir, or discards them when dir
// is empty.
type uploadSink struct {
	dir string
}

func newUploadSink(dir string) (uploadSink, error) {
	if dir == "" {
		return uploadSink{}, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return uploadSink{}, fmt.Errorf("create upload dir: %w", err)
	}
	return uploadSink{dir: dir}, nil
}

// save returns the sanitised filename the upload was stored under.
func (u uploadSink) save(fh *multipart.FileHeader) (string, error) {
	name := secureFilename(fh.Filename)

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if u.dir == "" {
		_, err := io.Copy(io.Discard, src)
		return name, err
	}

	dst, err := os.Create(filepath.Join(u.dir, uuid.NewString()+"-"+name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return name, nil
}

func secureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "upload.pdf"
	}
	return name
}
