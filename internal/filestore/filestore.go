// Package filestore manages the flat directory of screenshot files referenced
// by image records. Filenames are relative to the store root; collision
// handling is the only safety mechanism against concurrent-create races from
// other processes, so saves never overwrite.
package filestore

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	dirPerm  = 0750
	filePerm = 0644

	// jpegQuality is used for all re-encodes; screenshots tolerate it well.
	jpegQuality = 80

	// maxCollisionAttempts bounds the suffix search so a pathological
	// directory cannot loop forever.
	maxCollisionAttempts = 10000
)

// Store writes and deletes screenshot files under a single root directory.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a store over it.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("filestore root required")
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, errors.Wrapf(err, "failed to create filestore root %s", root)
	}
	return &Store{root: root}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// Save writes data to a new file derived from suggestedName and returns the
// chosen filename relative to the root. An existing file is never
// overwritten: on collision an incrementing numeric suffix is appended before
// the extension until a free name is found.
func (s *Store) Save(data []byte, suggestedName, forcedExt string) (string, error) {
	base, ext := splitName(sanitizeName(suggestedName))
	if forcedExt != "" {
		ext = normalizeExt(forcedExt)
	}
	if base == "" {
		base = "screenshot"
	}

	for attempt := 0; attempt < maxCollisionAttempts; attempt++ {
		name := base + ext
		if attempt > 0 {
			name = fmt.Sprintf("%s-%d%s", base, attempt, ext)
		}

		f, err := os.OpenFile(filepath.Join(s.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, "failed to create file %s", name)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(filepath.Join(s.root, name))
			return "", errors.Wrapf(err, "failed to write file %s", name)
		}
		if err := f.Close(); err != nil {
			return "", errors.Wrapf(err, "failed to close file %s", name)
		}
		return name, nil
	}

	return "", errors.Errorf("no free filename for %s after %d attempts", base+ext, maxCollisionAttempts)
}

// Delete removes the file if present. Deleting a non-existent file is not an
// error, which keeps redundant cleanup passes safe.
func (s *Store) Delete(relPath string) error {
	p := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete file %s", relPath)
	}
	return nil
}

// Read returns the file contents.
func (s *Store) Read(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", relPath)
	}
	return data, nil
}

// NormalizeJPEG decodes any supported image format and re-encodes as JPEG.
// Used on ingest so every stored screenshot is a .jpg.
func NormalizeJPEG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.Wrap(err, "failed to encode jpeg")
	}
	return buf.Bytes(), nil
}

// Downsample fits the image within maxEdge on its longer side and re-encodes
// as JPEG. Used to shrink provider payloads.
func Downsample(data []byte, maxEdge int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}
	fitted := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fitted, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.Wrap(err, "failed to encode jpeg")
	}
	return buf.Bytes(), nil
}

// sanitizeName strips path separators and control characters so a suggested
// name from a share sheet can't escape the root.
func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == '/' || r == '\\' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func splitName(name string) (base, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), strings.ToLower(ext)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
