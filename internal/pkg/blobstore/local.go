package blobstore

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/gabriel-vasile/mimetype"
)

// Local keeps blobs under root/<bucket>/<path> and serves them from baseURL.
type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage root")
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory served as the public base URL.
func (l *Local) Root() string { return l.root }

func (l *Local) resolve(bucket, objectPath string) (string, string, error) {
	b, err := CleanPath(bucket)
	if err != nil || strings.Contains(b, "/") {
		return "", "", errors.WithStack(ErrInvalidPath)
	}
	p, err := CleanPath(objectPath)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(l.root, b, filepath.FromSlash(p)), p, nil
}

func (l *Local) Put(ctx context.Context, bucket, objectPath string, data []byte, opts PutOptions) (Object, error) {
	full, p, err := l.resolve(bucket, objectPath)
	if err != nil {
		return Object{}, wrap("put", bucket, objectPath, err)
	}
	if err := ctx.Err(); err != nil {
		return Object{}, wrap("put", bucket, p, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, wrap("put", bucket, p, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(full, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			err = ErrObjectExists
		}
		return Object{}, wrap("put", bucket, p, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return Object{}, wrap("put", bucket, p, err)
	}
	if err := f.Close(); err != nil {
		return Object{}, wrap("put", bucket, p, err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	info, err := os.Stat(full)
	if err != nil {
		return Object{}, wrap("put", bucket, p, err)
	}
	return Object{Bucket: bucket, Path: p, Size: info.Size(), ContentType: contentType, LastModified: info.ModTime()}, nil
}

func (l *Local) Get(ctx context.Context, bucket, objectPath string) ([]byte, error) {
	full, p, err := l.resolve(bucket, objectPath)
	if err != nil {
		return nil, wrap("get", bucket, objectPath, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = ErrNotFound
		}
		return nil, wrap("get", bucket, p, err)
	}
	return data, nil
}

func (l *Local) PublicURL(bucket, objectPath string) string {
	p, err := CleanPath(objectPath)
	if err != nil {
		return ""
	}
	return l.baseURL + "/" + url.PathEscape(bucket) + "/" + escapeKey(p)
}

// Remove deletes each path; paths that are already gone are ignored.
func (l *Local) Remove(ctx context.Context, bucket string, paths ...string) error {
	for _, objectPath := range paths {
		full, p, err := l.resolve(bucket, objectPath)
		if err != nil {
			return wrap("remove", bucket, objectPath, err)
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return wrap("remove", bucket, p, err)
		}
	}
	return nil
}

func (l *Local) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	b, err := CleanPath(bucket)
	if err != nil {
		return nil, wrap("list", bucket, prefix, err)
	}
	dir := filepath.Join(l.root, b)
	var out []Object
	err = filepath.WalkDir(dir, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{Bucket: bucket, Path: rel, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, wrap("list", bucket, prefix, err)
	}
	return out, nil
}
