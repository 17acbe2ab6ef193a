package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

func newTestStore(t *testing.T, baseURL string) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir(), baseURL, nil)
	require.NoError(t, err)
	return s
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"uploads/a.pdf", "uploads/a.pdf", false},
		{"uploads//b.pdf", "uploads/b.pdf", false},
		{"uploads\\c.pdf", "uploads/c.pdf", false},
		{"./d.pdf", "d.pdf", false},
		{"", "", true},
		{"/etc/passwd", "", true},
		{"../secret", "", true},
		{"uploads/../../x", "", true},
		{".", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanPath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUploadListRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")

	p, err := s.Upload(ctx, "uploads/report.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "uploads/report.pdf", p)
	_, err = s.Upload(ctx, "other/notes.txt", strings.NewReader("x"))
	require.NoError(t, err)

	metas, err := s.List(ctx, "uploads/")
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "report.pdf", metas[0].Name)
	assert.Equal(t, int64(5), metas[0].Size)
	assert.Equal(t, "application/pdf", metas[0].ContentType)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Remove(ctx, []string{"uploads/report.pdf", "uploads/missing.pdf"}))
	metas, err = s.List(ctx, "uploads/")
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestUploadReplacesAndLeavesNoTemp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")

	_, err := s.Upload(ctx, "a.txt", strings.NewReader("one"))
	require.NoError(t, err)
	_, err = s.Upload(ctx, "a.txt", strings.NewReader("three"))
	require.NoError(t, err)

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(s.Root(), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "three", string(data))
}

func TestUploadRejectsEscapingPath(t *testing.T) {
	s := newTestStore(t, "")
	_, err := s.Upload(context.Background(), "../evil", strings.NewReader("x"))
	assert.ErrorIs(t, err, types.ErrInvalidPath)
	assert.ErrorIs(t, s.Remove(context.Background(), []string{"../evil"}), types.ErrInvalidPath)
}

func TestUploadHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestStore(t, "")
	_, err := s.Upload(ctx, "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")
	_, err := s.Upload(ctx, "docs/a.csv", strings.NewReader("a,b"))
	require.NoError(t, err)

	meta, err := s.Stat(ctx, "docs/a.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.Size)

	_, err = s.Stat(ctx, "docs")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.Stat(ctx, "docs/b.csv")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPublicURL(t *testing.T) {
	s := newTestStore(t, "https://files.example.com/storage/")
	assert.Equal(t, "https://files.example.com/storage/uploads/my%20cv.pdf", s.PublicURL("uploads/my cv.pdf"))
	assert.Equal(t, "", s.PublicURL("../x"))

	local := newTestStore(t, "")
	assert.True(t, strings.HasPrefix(local.PublicURL("a.pdf"), "file://"))
}

func TestDocumentsUploadAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "http://localhost/files")
	docs := NewDocuments(s, DefaultPrefix)
	clock := time.UnixMilli(1700000000000)
	docs.now = func() time.Time { return clock }

	doc, err := docs.Upload(ctx, "C:\\Users\\me\\Report.PDF", strings.NewReader(strings.Repeat("x", 2048)))
	require.NoError(t, err)
	assert.Equal(t, "uploads/1700000000000-Report.PDF", doc.Path)
	assert.Equal(t, "pdf", doc.FileType)
	assert.Equal(t, "2.0 KB", doc.FileSize)
	assert.Equal(t, "http://localhost/files/uploads/1700000000000-Report.PDF", doc.PublicURL)

	_, err = s.Upload(ctx, "uploads/empty.txt", strings.NewReader(""))
	require.NoError(t, err)
	_, err = s.Upload(ctx, "elsewhere/a.docx", strings.NewReader("x"))
	require.NoError(t, err)

	rows, err := docs.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, doc.Path, rows[0].ID)
	assert.Equal(t, "pdf", rows[0].String("file_type"))

	n, err := docs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDocumentsListOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")
	docs := NewDocuments(s, "")
	for _, f := range []struct{ name, body string }{
		{"b.txt", "xx"},
		{"a.txt", "xxx"},
		{"c.txt", "x"},
	} {
		_, err := s.Upload(ctx, f.name, strings.NewReader(f.body))
		require.NoError(t, err)
	}

	rows, err := docs.List(ctx, &types.Order{Field: "file_name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})

	rows, err = docs.List(ctx, &types.Order{Field: "size", Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})

	_, err = docs.List(ctx, &types.Order{Field: "owner"})
	assert.ErrorIs(t, err, types.ErrUnknownField)
}

func TestDocumentsDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")
	docs := NewDocuments(s, DefaultPrefix)
	doc, err := docs.Upload(ctx, "a.pdf", strings.NewReader("data"))
	require.NoError(t, err)

	require.NoError(t, docs.Delete(ctx, doc.Path))
	assert.ErrorIs(t, docs.Delete(ctx, doc.Path), types.ErrNotFound)
	assert.ErrorIs(t, docs.Delete(ctx, ""), types.ErrInvalidID)

	_, err = docs.Insert(ctx, nil)
	assert.ErrorIs(t, err, types.ErrUnsupported)
	_, err = docs.Update(ctx, doc.Path, nil)
	assert.ErrorIs(t, err, types.ErrUnsupported)
}

func TestDocumentsDeleteMany(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")
	docs := NewDocuments(s, DefaultPrefix)
	var ids []string
	for i, name := range []string{"a.pdf", "b.pdf"} {
		docs.now = func() time.Time { return time.UnixMilli(int64(i)) }
		doc, err := docs.Upload(ctx, name, strings.NewReader("data"))
		require.NoError(t, err)
		ids = append(ids, doc.Path)
	}

	require.NoError(t, docs.DeleteMany(ctx, append(ids, "uploads/missing.pdf")))
	n, err := docs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDocumentsDeleteStaysUnderPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "")
	docs := NewDocuments(s, DefaultPrefix)
	for _, p := range []string{"other/notes.txt", "uploadsx/a.pdf", "uploads.pdf"} {
		_, err := s.Upload(ctx, p, strings.NewReader("keep"))
		require.NoError(t, err)
	}

	tests := []string{"other/notes.txt", "uploadsx/a.pdf", "uploads.pdf"}
	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			assert.ErrorIs(t, docs.Delete(ctx, id), types.ErrNotFound)
		})
	}

	require.NoError(t, docs.DeleteMany(ctx, tests))
	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// fakeWatcher is a WatcherInstance driven by the test.
type fakeWatcher struct {
	mu     sync.Mutex
	added  []string
	events chan fsnotify.Event
	errs   chan error
	once   sync.Once
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan fsnotify.Event, 8), errs: make(chan error, 1)}
}

func (f *fakeWatcher) Add(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, name)
	return nil
}

func (f *fakeWatcher) Close() error {
	f.once.Do(func() {
		close(f.events)
		close(f.errs)
	})
	return nil
}

func (f *fakeWatcher) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeWatcher) Errors() <-chan error          { return f.errs }

type fakeOps struct {
	w   *fakeWatcher
	err error
}

func (o fakeOps) NewWatcher() (WatcherInstance, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.w, nil
}

func TestWatcherAddsDirectoryTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads", "2024"), 0o755))
	fw := newFakeWatcher()

	w, err := NewWatcher(root, func() {}, nil, time.Millisecond, fakeOps{w: fw})
	require.NoError(t, err)
	defer w.Close()

	fw.mu.Lock()
	defer fw.mu.Unlock()
	assert.ElementsMatch(t, []string{root, filepath.Join(root, "uploads"), filepath.Join(root, "uploads", "2024")}, fw.added)
}

func TestWatcherDebouncesEvents(t *testing.T) {
	root := t.TempDir()
	fw := newFakeWatcher()
	changes := make(chan struct{}, 4)

	w, err := NewWatcher(root, func() { changes <- struct{}{} }, nil, 20*time.Millisecond, fakeOps{w: fw})
	require.NoError(t, err)
	defer w.Close()

	name := filepath.Join(root, "a.pdf")
	fw.events <- fsnotify.Event{Name: name, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: name, Op: fsnotify.Write}
	fw.events <- fsnotify.Event{Name: filepath.Join(root, ".upload-123"), Op: fsnotify.Write}

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}
	select {
	case <-changes:
		t.Fatal("expected events to be coalesced")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherReportsErrors(t *testing.T) {
	fw := newFakeWatcher()
	errs := make(chan error, 1)
	w, err := NewWatcher(t.TempDir(), nil, func(err error) { errs <- err }, 0, fakeOps{w: fw})
	require.NoError(t, err)
	defer w.Close()

	boom := errors.New("queue overflow")
	fw.errs <- boom
	select {
	case got := <-errs:
		assert.ErrorIs(t, got, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("expected error callback")
	}
}

func TestWatcherCreateFailure(t *testing.T) {
	_, err := NewWatcher(t.TempDir(), nil, nil, 0, fakeOps{err: errors.New("too many watchers")})
	assert.Error(t, err)
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil, nil, 0, fakeOps{w: newFakeWatcher()})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWatcherWithFSNotify(t *testing.T) {
	s := newTestStore(t, "")
	changes := make(chan struct{}, 8)
	w, err := NewWatcher(s.Root(), func() { changes <- struct{}{} }, nil, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	_, err = s.Upload(context.Background(), "a.txt", strings.NewReader("x"))
	require.NoError(t, err)

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change notification from fsnotify")
	}
}
