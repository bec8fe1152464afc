// Package storage publishes finished run directories to an artifact store.
// Implementations cover S3-compatible object stores and the local filesystem
// for development and tests.
package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Common errors for store operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
)

// ObjectStore abstracts the artifact store a run is published to.
type ObjectStore interface {
	// Upload copies a local file to objectPath in the store.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Exists reports whether an object exists in the store.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// List returns all object paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// PublishRun uploads every file of a finished run directory under the given
// object prefix, preserving the relative layout. It returns the uploaded
// object paths.
func PublishRun(ctx context.Context, store ObjectStore, runDir, prefix string) ([]string, error) {
	var uploaded []string
	err := filepath.WalkDir(runDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(runDir, p)
		if err != nil {
			return err
		}
		objectPath := path.Join(prefix, filepath.ToSlash(rel))
		if err := store.Upload(ctx, p, objectPath); err != nil {
			return err
		}
		uploaded = append(uploaded, objectPath)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(uploaded) == 0 {
		return nil, os.ErrNotExist
	}
	return uploaded, nil
}
