// Package archive extracts the two container formats kam modules ship
// in: zip and gzip-compressed tar. Dispatch is strictly by filename
// extension.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kam-pm/kam/pkg/errors"
)

// FetchExts are the archive extensions the fetcher may produce or
// probe for, in preference order.
var FetchExts = []string{".zip", ".tar.gz"}

// Transform rewrites entry paths and file contents during extraction.
// Either hook may be nil.
type Transform struct {
	Path    func(string) string
	Content func([]byte) []byte
}

// Ext returns the archive extension of name, treating ".tar.gz" as one
// extension. Empty string when name has none.
func Ext(name string) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".tar.gz") {
		return ".tar.gz"
	}
	return filepath.Ext(lower)
}

// IsFetchFormat reports whether name carries an extension the fetcher
// accepts.
func IsFetchFormat(name string) bool {
	ext := Ext(name)
	for _, allowed := range FetchExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Extract unpacks the archive bytes into dest, dispatching on the
// extension of name. Unknown extensions are an UnsupportedFormat error.
func Extract(data []byte, name, dest string) error {
	return ExtractWith(data, name, dest, Transform{})
}

// ExtractWith is Extract with a path/content transform applied to every
// entry.
func ExtractWith(data []byte, name, dest string, tf Transform) error {
	switch Ext(name) {
	case ".zip":
		return extractZip(data, dest, tf)
	case ".tar.gz", ".tgz":
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return errors.Wrapf(err, errors.ErrUnsupportedFormat, "corrupt gzip stream in %s", name)
		}
		defer func() { _ = gz.Close() }()
		return extractTar(gz, dest, tf)
	case ".tar":
		return extractTar(bytes.NewReader(data), dest, tf)
	default:
		return errors.Newf(errors.ErrUnsupportedFormat, "cannot extract %q: unsupported archive format", name)
	}
}

func extractZip(data []byte, dest string, tf Transform) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.Wrap(err, errors.ErrUnsupportedFormat, "corrupt zip archive")
	}

	for _, file := range reader.File {
		target, ok := entryPath(dest, file.Name, tf)
		if !ok {
			continue
		}

		if file.FileInfo().IsDir() {
			if err := osMkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to open %s in archive", file.Name)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to read %s from archive", file.Name)
		}

		if err := writeEntry(target, data, file.Mode().Perm(), tf); err != nil {
			return err
		}
	}

	return nil
}

func extractTar(r io.Reader, dest string, tf Transform) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrUnsupportedFormat, "corrupt tar archive")
		}

		target, ok := entryPath(dest, header.Name, tf)
		if !ok {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := osMkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			if err != nil {
				return errors.Wrapf(err, errors.ErrFileAccess, "failed to read %s from archive", header.Name)
			}
			perm := header.FileInfo().Mode().Perm()
			if err := writeEntry(target, data, perm, tf); err != nil {
				return err
			}
		default:
			// Symlinks and special files are not expected in module
			// archives; skip them rather than failing extraction.
		}
	}
}

// entryPath resolves an archive entry name to a destination path,
// applying the path transform and rejecting escapes from dest.
func entryPath(dest, name string, tf Transform) (string, bool) {
	clean := filepath.Clean(strings.TrimPrefix(name, "/"))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", false
	}
	if tf.Path != nil {
		clean = tf.Path(clean)
	}
	return filepath.Join(dest, clean), true
}

func writeEntry(target string, data []byte, perm fs.FileMode, tf Transform) error {
	if tf.Content != nil {
		data = tf.Content(data)
	}
	if perm == 0 {
		perm = 0644
	}
	if err := osMkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(target, data, perm); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write %s", target)
	}
	return nil
}

func osMkdirAll(path string, perm fs.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", path)
	}
	return nil
}
