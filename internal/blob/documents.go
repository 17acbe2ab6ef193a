package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// DefaultPrefix is the folder documents are uploaded into.
const DefaultPrefix = "uploads"

// Documents presents the blobs under a prefix as document rows. It
// implements types.RecordStore so the grid can list and delete documents;
// Insert and Update are not supported, new files go through Upload.
type Documents struct {
	blobs  types.BlobStore
	prefix string
	now    func() time.Time
}

var (
	_ types.RecordStore = (*Documents)(nil)
	_ types.BulkDeleter = (*Documents)(nil)
)

// NewDocuments returns the documents adapter for blobs under prefix.
func NewDocuments(blobs types.BlobStore, prefix string) *Documents {
	return &Documents{blobs: blobs, prefix: strings.Trim(prefix, "/"), now: time.Now}
}

// Upload stores content under the prefix as "<unix millis>-<name>" and
// returns the stored document.
func (d *Documents) Upload(ctx context.Context, name string, content io.Reader) (types.Document, error) {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return types.Document{}, fmt.Errorf("upload %q: %w", name, types.ErrInvalidPath)
	}
	p := fmt.Sprintf("%d-%s", d.now().UnixMilli(), name)
	if d.prefix != "" {
		p = d.prefix + "/" + p
	}
	stored, err := d.blobs.Upload(ctx, p, content)
	if err != nil {
		return types.Document{}, err
	}
	metas, err := d.blobs.List(ctx, stored)
	if err != nil {
		return types.Document{}, err
	}
	for _, m := range metas {
		if m.Path == stored {
			return types.NewDocument(m, d.blobs.PublicURL(stored)), nil
		}
	}
	return types.Document{}, fmt.Errorf("upload %s: %w", stored, types.ErrNotFound)
}

// Documents returns every non-empty file under the prefix, newest first.
func (d *Documents) Documents(ctx context.Context) ([]types.Document, error) {
	prefix := d.prefix
	if prefix != "" {
		prefix += "/"
	}
	metas, err := d.blobs.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	docs := make([]types.Document, 0, len(metas))
	for _, m := range metas {
		if m.Size == 0 {
			continue
		}
		docs = append(docs, types.NewDocument(m, d.blobs.PublicURL(m.Path)))
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].LastModified.After(docs[j].LastModified)
	})
	return docs, nil
}

// List returns the documents as rows. Orders on file_name, size, file_type
// and last_modified are supported.
func (d *Documents) List(ctx context.Context, order *types.Order) ([]types.Row, error) {
	docs, err := d.Documents(ctx)
	if err != nil {
		return nil, err
	}
	if order != nil {
		less, err := documentLess(order.Field)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(docs, func(i, j int) bool {
			if order.Descending {
				return less(docs[j], docs[i])
			}
			return less(docs[i], docs[j])
		})
	}
	rows := make([]types.Row, len(docs))
	for i, doc := range docs {
		rows[i] = doc.Row()
	}
	return rows, nil
}

func documentLess(field string) (func(a, b types.Document) bool, error) {
	switch field {
	case "file_name", types.FieldID:
		return func(a, b types.Document) bool { return a.FileName < b.FileName }, nil
	case "size", "file_size":
		return func(a, b types.Document) bool { return a.Size < b.Size }, nil
	case "file_type":
		return func(a, b types.Document) bool { return a.FileType < b.FileType }, nil
	case "last_modified":
		return func(a, b types.Document) bool { return a.LastModified.Before(b.LastModified) }, nil
	}
	return nil, fmt.Errorf("order documents by %q: %w", field, types.ErrUnknownField)
}

// Insert is not supported; use Upload.
func (d *Documents) Insert(ctx context.Context, fields map[string]any) (types.Row, error) {
	return types.Row{}, fmt.Errorf("insert document: %w", types.ErrUnsupported)
}

// Update is not supported; documents are immutable.
func (d *Documents) Update(ctx context.Context, id string, fields map[string]any) (types.Row, error) {
	return types.Row{}, fmt.Errorf("update document: %w", types.ErrUnsupported)
}

// Delete removes the document stored at id.
func (d *Documents) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	ok, err := d.exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete document %s: %w", id, types.ErrNotFound)
	}
	return d.blobs.Remove(ctx, []string{id})
}

// DeleteMany removes every listed document. Missing ones are ignored.
func (d *Documents) DeleteMany(ctx context.Context, ids []string) error {
	owned := make([]string, 0, len(ids))
	for _, id := range ids {
		if d.owns(id) {
			owned = append(owned, id)
		}
	}
	if len(owned) == 0 {
		return nil
	}
	return d.blobs.Remove(ctx, owned)
}

// Count returns the number of documents.
func (d *Documents) Count(ctx context.Context) (int, error) {
	docs, err := d.Documents(ctx)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// PublicURL returns the URL of the document stored at id.
func (d *Documents) PublicURL(id string) string {
	return d.blobs.PublicURL(id)
}

func (d *Documents) exists(ctx context.Context, id string) (bool, error) {
	if !d.owns(id) {
		return false, nil
	}
	metas, err := d.blobs.List(ctx, id)
	if err != nil {
		return false, err
	}
	for _, m := range metas {
		if m.Path == id {
			return true, nil
		}
	}
	return false, nil
}

// owns reports whether id names a blob under the documents prefix.
func (d *Documents) owns(id string) bool {
	if d.prefix == "" {
		return id != ""
	}
	return strings.HasPrefix(id, d.prefix+"/")
}
