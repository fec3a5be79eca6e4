// Package bids assembles BIDS datasets: file names, dataset metadata,
// events files, functional sidecars and a light structural validator.
package bids

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nvandessel/nifti2bids/internal/fsutil"
	"github.com/nvandessel/nifti2bids/internal/logging"
)

// ErrInvalidLabel is returned for entity labels that are not alphanumeric.
var ErrInvalidLabel = errors.New("bids: labels must be alphanumeric")

var (
	labelPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	indexPattern = regexp.MustCompile(`^[0-9]+$`)
)

// Entities are the key-value pairs of a BIDS file name, in the order they
// appear in the name.
type Entities struct {
	Sub  string
	Ses  string
	Task string
	Acq  string
	Run  string
	Desc string
}

// entityKeys is the BIDS entity order.
var entityKeys = []string{"sub", "ses", "task", "acq", "run", "desc"}

func (e *Entities) field(key string) *string {
	switch key {
	case "sub":
		return &e.Sub
	case "ses":
		return &e.Ses
	case "task":
		return &e.Task
	case "acq":
		return &e.Acq
	case "run":
		return &e.Run
	case "desc":
		return &e.Desc
	}
	return nil
}

// normalize strips a redundant "<key>-" prefix from every label, so
// "sub-01" and "01" name the same subject.
func (e Entities) normalize() Entities {
	for _, key := range entityKeys {
		p := e.field(key)
		*p = strings.TrimPrefix(*p, key+"-")
	}
	return e
}

// Validate checks that sub is set and every label is alphanumeric; run
// must be a non-negative index.
func (e Entities) Validate() error {
	e = e.normalize()
	if e.Sub == "" {
		return fmt.Errorf("%w: sub is required", ErrInvalidLabel)
	}
	for _, key := range entityKeys {
		v := *e.field(key)
		if v == "" {
			continue
		}
		pattern := labelPattern
		if key == "run" {
			pattern = indexPattern
		}
		if !pattern.MatchString(v) {
			return fmt.Errorf("%w: %s-%q", ErrInvalidLabel, key, v)
		}
	}
	return nil
}

// Filename builds "sub-<label>[_ses-<label>]..._<suffix><ext>". ext keeps
// its leading dot and may be multi-part (".nii.gz").
func Filename(e Entities, suffix, ext string) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if !labelPattern.MatchString(suffix) {
		return "", fmt.Errorf("%w: suffix %q", ErrInvalidLabel, suffix)
	}
	e = e.normalize()

	parts := make([]string, 0, len(entityKeys)+1)
	for _, key := range entityKeys {
		if v := *e.field(key); v != "" {
			parts = append(parts, key+"-"+v)
		}
	}
	parts = append(parts, suffix)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.Join(parts, "_") + ext, nil
}

// ParseFilename splits a BIDS file name back into entities, suffix and
// extension. Unknown or repeated entities are errors.
func ParseFilename(name string) (Entities, string, string, error) {
	base, ext := fsutil.SplitExt(filepath.Base(name))
	parts := strings.Split(base, "_")
	suffix := parts[len(parts)-1]
	if strings.Contains(suffix, "-") || suffix == "" {
		return Entities{}, "", "", fmt.Errorf("bids: %s has no suffix", name)
	}

	var e Entities
	for _, part := range parts[:len(parts)-1] {
		key, value, ok := strings.Cut(part, "-")
		if !ok {
			return Entities{}, "", "", fmt.Errorf("bids: %s: malformed entity %q", name, part)
		}
		p := e.field(key)
		if p == nil {
			return Entities{}, "", "", fmt.Errorf("bids: %s: unknown entity %q", name, key)
		}
		if *p != "" {
			return Entities{}, "", "", fmt.Errorf("bids: %s: repeated entity %q", name, key)
		}
		*p = value
	}
	if err := e.Validate(); err != nil {
		return Entities{}, "", "", fmt.Errorf("bids: %s: %w", name, err)
	}
	return e, suffix, ext, nil
}

// CreateOptions controls CreateFile.
type CreateOptions struct {
	// DstDir receives a copy of the file. Empty renames in place.
	DstDir string

	// RemoveSrc deletes the source after copying to DstDir.
	RemoveSrc bool

	// Root, when set, is the dataset root the new file must stay inside.
	Root string

	Logger     *slog.Logger
	Provenance *logging.ProvenanceLogger
}

// CreateFile gives src its BIDS name. Without a DstDir the file is renamed
// in place; with one it is copied there and the source optionally removed.
// Existing files are never overwritten. Returns the new path.
func CreateFile(src string, e Entities, suffix string, opts CreateOptions) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("bids: %w", err)
	}
	_, ext := fsutil.SplitExt(src)
	name, err := Filename(e, suffix, ext)
	if err != nil {
		return "", err
	}

	dir := opts.DstDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	dst := filepath.Join(dir, name)
	if opts.Root != "" {
		if err := fsutil.ValidatePath(dst, []string{opts.Root}); err != nil {
			return "", err
		}
	}

	if opts.DstDir == "" {
		if err := fsutil.Rename(src, dst); err != nil {
			return "", err
		}
		opts.Provenance.Log("rename", map[string]any{"src": src, "dst": dst})
	} else {
		if err := fsutil.Copy(src, dst); err != nil {
			return "", err
		}
		opts.Provenance.Log("copy", map[string]any{"src": src, "dst": dst})
		if opts.RemoveSrc {
			if err := os.Remove(src); err != nil {
				return dst, fmt.Errorf("removing %s: %w", fsutil.RedactPath(src), err)
			}
			opts.Provenance.Log("remove", map[string]any{"src": src})
		}
	}

	if opts.Logger != nil {
		opts.Logger.Debug("created bids file", "src", fsutil.RedactPath(src), "dst", name)
	}
	return dst, nil
}
