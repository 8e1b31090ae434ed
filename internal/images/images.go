package images

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// webRoot is the prefix under which stored images are served. Refs handed to
// the store are always relative to it.
const webRoot = "img"

var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Allowed reports whether filename carries an accepted image extension.
// The check is case-insensitive.
func Allowed(filename string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(filename))]
}

// Dir stores uploaded images under root and picks generation assets from
// assetDir.
type Dir struct {
	root     string
	assetDir string
}

func NewDir(root, assetDir string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "images: mkdir")
	}
	return &Dir{root: root, assetDir: assetDir}, nil
}

// Save writes data under a fresh uuid name, keeping only the original
// extension, and returns the web-relative ref to persist. Client-supplied
// path components never reach the filesystem.
func (d *Dir) Save(filename string, data []byte) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	if err := os.WriteFile(filepath.Join(d.root, name), data, 0o644); err != nil {
		return "", errors.Wrap(err, "images: save")
	}
	return webRoot + "/" + name, nil
}

// PickRandom returns the name and contents of a random pre-existing asset,
// used to give generated listings an image.
func (d *Dir) PickRandom() (string, []byte, error) {
	entries, err := os.ReadDir(d.assetDir)
	if err != nil {
		return "", nil, errors.Wrap(err, "images: read assets")
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil, errors.New("images: no assets available")
	}
	name := names[rand.Intn(len(names))]
	data, err := os.ReadFile(filepath.Join(d.assetDir, name))
	if err != nil {
		return "", nil, errors.Wrap(err, "images: read asset")
	}
	return name, data, nil
}

// ListStale returns stored filenames last modified at least minAge ago.
// The orphan sweep uses the age cutoff so it never races an upload whose
// listing row has not been inserted yet.
func (d *Dir) ListStale(minAge time.Duration) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, errors.Wrap(err, "images: list")
	}
	cutoff := time.Now().Add(-minAge)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Remove deletes a stored file by bare name.
func (d *Dir) Remove(name string) error {
	return os.Remove(filepath.Join(d.root, filepath.Base(name)))
}
