package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/spf13/afero"

	"face-score/internal/utils"
)

var ErrNotFound = errors.New("storage: object not found")

// Objects is the blob side of the image store. It sits on an afero.Fs so the
// same code serves a mounted bucket directory in production and MemMapFs in
// tests.
type Objects struct {
	fs afero.Fs
}

// NewObjects stores objects below root on the OS filesystem.
func NewObjects(root string) (*Objects, error) {
	if err := afero.NewOsFs().MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return NewObjectsFs(afero.NewBasePathFs(afero.NewOsFs(), root)), nil
}

func NewObjectsFs(fsys afero.Fs) *Objects {
	return &Objects{fs: fsys}
}

// Put writes data under id. Writing the same id again replaces the object
// with identical bytes.
func (o *Objects) Put(ctx context.Context, id string, data []byte) error {
	return o.write(ctx, ObjectKey(id), data)
}

func (o *Objects) Get(ctx context.Context, id string) ([]byte, error) {
	return o.read(ctx, ObjectKey(id))
}

// Exists reports whether the original image for id is present.
func (o *Objects) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return afero.Exists(o.fs, ObjectKey(id))
}

// Delete removes the image and its thumbnail. Missing objects are not an error.
func (o *Objects) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.remove(ObjectKey(id)); err != nil {
		return err
	}
	return o.remove(ThumbKey(id))
}

func (o *Objects) remove(key string) error {
	err := o.fs.Remove(key)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

func (o *Objects) write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for %s: %w", key, err)
	}
	tmp := key + ".tmp-" + utils.RandomString(6)
	if err := afero.WriteFile(o.fs, tmp, data, 0o644); err != nil {
		_ = o.fs.Remove(tmp)
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := o.fs.Rename(tmp, key); err != nil {
		_ = o.fs.Remove(tmp)
		return fmt.Errorf("storage: commit %s: %w", key, err)
	}
	return nil
}

func (o *Objects) read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(o.fs, key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return b, nil
}
