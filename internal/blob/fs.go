// Package blob implements the blob store over a local directory, a watcher
// that reports changes to it, and the documents adapter that presents the
// stored files as grid rows.
package blob

import (
	"context"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// tempPrefix marks in-progress uploads; List skips them.
const tempPrefix = ".upload-"

// FSStore stores blobs as files under a root directory. Blob paths are
// slash separated and relative to the root.
type FSStore struct {
	root    string
	baseURL string
	log     types.Logger
}

var _ types.BlobStore = (*FSStore)(nil)

// NewFSStore creates root if needed. baseURL is the prefix used by
// PublicURL; when empty, file URLs are returned.
func NewFSStore(root, baseURL string, log types.Logger) (*FSStore, error) {
	if log == nil {
		log = types.NopLogger{}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve blob dir")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "create blob dir")
	}
	return &FSStore{root: abs, baseURL: strings.TrimRight(baseURL, "/"), log: log}, nil
}

// Root returns the absolute root directory.
func (s *FSStore) Root() string {
	return s.root
}

// CleanPath normalises a blob path. Empty, absolute and parent-escaping
// paths are rejected.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", errors.Wrapf(types.ErrInvalidPath, "%q", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", errors.Wrapf(types.ErrInvalidPath, "%q", p)
		}
	}
	clean := path.Clean(p)
	if clean == "." {
		return "", errors.Wrapf(types.ErrInvalidPath, "%q", p)
	}
	return clean, nil
}

func (s *FSStore) file(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// Upload writes content to p atomically, replacing any existing blob.
func (s *FSStore) Upload(ctx context.Context, p string, content io.Reader) (string, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dest := s.file(clean)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errors.Wrap(err, "create blob folder")
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), tempPrefix+"*")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.Wrapf(err, "upload %s", clean)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrap(err, "rename temp file")
	}
	s.log.Infof("uploaded %s", clean)
	return clean, nil
}

// List returns every blob whose path starts with prefix, sorted by path.
func (s *FSStore) List(ctx context.Context, prefix string) ([]types.BlobMeta, error) {
	prefix = strings.TrimLeft(strings.ReplaceAll(prefix, "\\", "/"), "/")
	var out []types.BlobMeta
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
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
		out = append(out, types.BlobMeta{
			Name:         d.Name(),
			Path:         rel,
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
			ContentType:  mime.TypeByExtension(path.Ext(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list blobs")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Stat returns the metadata of one blob, or types.ErrNotFound.
func (s *FSStore) Stat(ctx context.Context, p string) (types.BlobMeta, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return types.BlobMeta{}, err
	}
	info, err := os.Stat(s.file(clean))
	if err != nil {
		if os.IsNotExist(err) {
			return types.BlobMeta{}, errors.Wrapf(types.ErrNotFound, "blob %s", clean)
		}
		return types.BlobMeta{}, errors.Wrapf(err, "stat %s", clean)
	}
	if info.IsDir() {
		return types.BlobMeta{}, errors.Wrapf(types.ErrNotFound, "blob %s", clean)
	}
	return types.BlobMeta{
		Name:         path.Base(clean),
		Path:         clean,
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
		ContentType:  mime.TypeByExtension(path.Ext(clean)),
	}, nil
}

// Remove deletes the given blobs. Missing blobs are ignored.
func (s *FSStore) Remove(ctx context.Context, paths []string) error {
	for _, p := range paths {
		clean, err := CleanPath(p)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(s.file(clean)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %s", clean)
		}
		s.log.Infof("removed %s", clean)
	}
	return nil
}

// PublicURL returns the URL of p under the base URL, escaping each segment.
func (s *FSStore) PublicURL(p string) string {
	clean, err := CleanPath(p)
	if err != nil {
		return ""
	}
	if s.baseURL == "" {
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(s.file(clean))}).String()
	}
	segs := strings.Split(clean, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segs, "/")
}
