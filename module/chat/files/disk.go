package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chatline/tools/errs"
)

// DiskStore keeps attachments as flat files under a single directory.
// Stored names are uuid-prefixed so the base name is safe to use as the
// on-disk name directly.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.ErrDependency.WrapMsg("create upload dir", "dir", dir, "err", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (d *DiskStore) path(name string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == ".." || strings.ContainsAny(base, `/\`) {
		return "", errs.ErrValidation.WrapMsg("bad file name", "name", name)
	}
	return filepath.Join(d.dir, base), nil
}

func (d *DiskStore) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return errs.ErrDependency.WrapMsg("create file", "path", p, "err", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, io.LimitReader(r, size)); err != nil {
		return errs.ErrDependency.WrapMsg("write file", "path", p, "err", err)
	}
	return nil
}

func (d *DiskStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, errs.ErrNotFound.WrapMsg("file", "name", name)
	}
	if err != nil {
		return nil, errs.ErrDependency.WrapMsg("open file", "path", p, "err", err)
	}
	return f, nil
}

func (d *DiskStore) Delete(ctx context.Context, name string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errs.ErrDependency.WrapMsg("remove file", "path", p, "err", err)
	}
	return nil
}
