package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store abstracts where uploaded media ends up. Handlers only ever see
// the stored file name and a public URL, never the directory layout.
type Store interface {
	// Save persists an uploaded file and returns the stored name.
	Save(file *multipart.FileHeader) (string, error)
	// URL returns the public URL for a stored name.
	URL(name string) string
	// Remove deletes a stored file. Missing files are not an error.
	Remove(name string) error
}

// LocalStore writes media under a single directory on disk, served
// back by the router as static files.
type LocalStore struct {
	Root    string
	BaseURL string
}

// NewLocalStore builds a LocalStore from the environment.
// MEDIA_ROOT and BASE_URL have local-development fallbacks.
func NewLocalStore() (*LocalStore, error) {
	root := os.Getenv("MEDIA_ROOT")
	if root == "" {
		root = "./media"
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &LocalStore{Root: root, BaseURL: baseURL}, nil
}

// Save stores the upload under a safe unique filename (uuid + extension).
// The original filename is never used on disk.
func (s *LocalStore) Save(file *multipart.FileHeader) (string, error) {
	ext := filepath.Ext(file.Filename)
	newFilename := fmt.Sprintf("%s%s", uuid.New().String(), ext)

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.Root, newFilename))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return newFilename, nil
}

func (s *LocalStore) URL(name string) string {
	return fmt.Sprintf("%s/media/%s", s.BaseURL, name)
}

func (s *LocalStore) Remove(name string) error {
	err := os.Remove(filepath.Join(s.Root, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
