package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrExists is returned when a rename or copy would overwrite a file.
var ErrExists = errors.New("destination already exists")

// compoundExts are the multi-part extensions kept whole by SplitExt.
var compoundExts = []string{".nii.gz", ".tsv.gz"}

// SplitExt splits a file name into its base and extension. The compound
// extensions ".nii.gz" and ".tsv.gz" are kept whole; otherwise only the
// last dot counts, so "ep2d_bold_3.0mm.nii" gives ("ep2d_bold_3.0mm",
// ".nii"). Leading dots of hidden files are not extensions.
func SplitExt(name string) (base, ext string) {
	dir, file := filepath.Split(name)
	trimmed := strings.TrimLeft(file, ".")
	lead := file[:len(file)-len(trimmed)]
	for _, c := range compoundExts {
		if len(trimmed) > len(c) && strings.HasSuffix(strings.ToLower(trimmed), c) {
			i := len(trimmed) - len(c)
			return dir + lead + trimmed[:i], trimmed[i:]
		}
	}
	ext = filepath.Ext(trimmed)
	if ext == "" || ext == trimmed {
		return name, ""
	}
	return dir + lead + strings.TrimSuffix(trimmed, ext), ext
}

// ListFiles returns the regular files directly in dir whose name ends in
// ext ("nii", ".nii.gz", ...), sorted by name. "nii" does not match
// "nii.gz" files.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", RedactPath(dir), err)
	}
	want := "." + strings.TrimPrefix(ext, ".")

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if len(name) > len(want) && strings.HasSuffix(name, want) {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Rename moves src to dst, refusing to overwrite an existing dst.
func Rename(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("renaming to %s: %w", RedactPath(dst), ErrExists)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("renaming %s: %w", RedactPath(src), err)
	}
	return nil
}

// Copy copies src to dst with src's permissions, refusing to overwrite an
// existing dst. Parent directories of dst are created.
func Copy(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", RedactPath(src), err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", RedactPath(filepath.Dir(dst)), err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("copying to %s: %w", RedactPath(dst), ErrExists)
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", RedactPath(dst), err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", RedactPath(src), err)
	}
	return nil
}
