package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/defectscope/annotator/internal/typeid"
)

var (
	ErrNotFound    = errors.New("image not found")
	ErrInvalidName = errors.New("invalid image name")
	ErrNotPNG      = errors.New("only PNG images are supported")
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Stored describes an image written to the store.
type Stored struct {
	Name         string `json:"filename"`
	OriginalName string `json:"originalName"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// Store keeps uploaded images as files in one directory.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save validates that r holds a PNG and stores it under a fresh name.
func (s *Store) Save(r io.Reader, originalName string) (*Stored, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, ErrNotPNG
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPNG, err)
	}

	name := typeid.NewImageID() + ".png"
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	return &Stored{
		Name:         name,
		OriginalName: originalName,
		Width:        cfg.Width,
		Height:       cfg.Height,
	}, nil
}

// Open decodes a stored image.
func (s *Store) Open(name string) (image.Image, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Delete removes a stored image.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}
