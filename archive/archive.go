package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Returned when the payload isn't a readable zip archive.
var ErrCorrupt = errors.New("corrupt archive")

// Unpack extracts a zip archive into dir. Entries that would land
// outside of dir are rejected, as are archives expanding to more than
// maxSize bytes in total. A maxSize of 0 or less means no limit.
func Unpack(buf []byte, dir string, maxSize int64) error {
	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return fmt.Errorf("%w: unzipping: %v", ErrCorrupt, err)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	b := &budget{limit: maxSize, remaining: maxSize}

	for _, f := range r.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("%w: entry %q escapes archive root", ErrCorrupt, f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", f.Name, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.Name, err)
		}

		if err := extract(f, target, b); err != nil {
			return err
		}
	}

	return nil
}

// Uncompressed bytes left to extract.
type budget struct {
	limit     int64
	remaining int64
}

func extract(f *zip.File, target string, b *budget) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrCorrupt, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", f.Name, err)
	}

	var src io.Reader = rc
	if b.limit > 0 {
		// Counted on the stream, not the declared sizes. One extra
		// byte detects overflow.
		src = io.LimitReader(rc, b.remaining+1)
	}

	n, err := io.Copy(out, src)
	if err != nil {
		out.Close()
		return fmt.Errorf("%w: extracting %s: %v", ErrCorrupt, f.Name, err)
	}

	if b.limit > 0 {
		if n > b.remaining {
			out.Close()
			return fmt.Errorf("%w: uncompressed size exceeds %d bytes at %s", ErrCorrupt, b.limit, f.Name)
		}
		b.remaining -= n
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", f.Name, err)
	}

	return nil
}

// Pack zips up all regular files under dir. Paths in the archive are
// relative to dir, and entries are written in lexical order so the
// same input always gives the same archive.
func Pack(dir string) ([]byte, error) {
	paths := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	for _, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil, fmt.Errorf("relativizing %s: %w", path, err)
		}

		fw, err := w.CreateHeader(&zip.FileHeader{
			Name:   filepath.ToSlash(rel),
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, fmt.Errorf("adding %s: %w", rel, err)
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", rel, err)
		}
		_, err = io.Copy(fw, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("compressing %s: %w", rel, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing zip: %w", err)
	}

	return buf.Bytes(), nil
}

// FeedRoot returns the directory under dir holding the feed's
// files. There should not be any subdirectories, but some agencies
// don't care and nest everything one or more levels down.
func FeedRoot(dir string) string {
	if isFeedDir(dir) {
		return dir
	}

	found := ""
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found != "" {
			return filepath.SkipDir
		}
		if d.IsDir() && isFeedDir(path) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})

	if found == "" {
		return dir
	}
	return found
}

func isFeedDir(dir string) bool {
	for _, name := range []string{"agency.txt", "stops.txt", "routes.txt"} {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// ReadFile returns the contents of a file inside a zip archive,
// matching on the base name so that nested layouts work. The second
// return value is false if the file isn't present.
func ReadFile(buf []byte, name string) ([]byte, bool, error) {
	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, false, fmt.Errorf("%w: unzipping: %v", ErrCorrupt, err)
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if filepath.Base(filepath.FromSlash(f.Name)) != name {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, false, fmt.Errorf("%w: opening %s: %v", ErrCorrupt, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, false, fmt.Errorf("%w: reading %s: %v", ErrCorrupt, f.Name, err)
		}
		return data, true, nil
	}

	return nil, false, nil
}
