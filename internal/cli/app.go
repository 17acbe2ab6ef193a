package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/backoffice/internal/blob"
	"github.com/mesh-intelligence/backoffice/internal/session"
	"github.com/mesh-intelligence/backoffice/internal/store"
	"github.com/mesh-intelligence/backoffice/pkg/grid"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// authorize applies the role gate when an auth secret is configured.
func (a *app) authorize(ctx context.Context, area session.Area) error {
	if a.settings.AuthSecret == "" {
		return nil
	}
	p := session.NewTokenProvider(a.settings.AuthSecret, a.settings.Token)
	s, err := session.Authorize(ctx, p, area)
	if err != nil {
		return err
	}
	a.log.Debugf("session %s (%s)", s.UserID, s.Role)
	return nil
}

// openStore opens the record store once per run.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := store.Open(ctx, a.settings.storeConfig(), a.log)
	if err != nil {
		return nil, sysError(fmt.Errorf("open store: %w", err))
	}
	a.store = st
	return st, nil
}

// collection opens the named record collection.
func (a *app) collection(ctx context.Context, name string) (*store.Collection, error) {
	if !types.IsRecordCollection(name) {
		return nil, unknownCollection(name, types.RecordCollections)
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return st.Collection(name)
}

func (a *app) blobStore() (*blob.FSStore, error) {
	fs, err := blob.NewFSStore(a.settings.BlobDir, a.settings.BlobBaseURL, a.log)
	if err != nil {
		return nil, sysError(err)
	}
	return fs, nil
}

func (a *app) documents() (*blob.Documents, error) {
	fs, err := a.blobStore()
	if err != nil {
		return nil, err
	}
	return blob.NewDocuments(fs, blob.DefaultPrefix), nil
}

// recordStore returns the store backing a collection of either kind.
func (a *app) recordStore(ctx context.Context, name string) (types.RecordStore, error) {
	if name == types.DocumentsCollection {
		return a.documents()
	}
	return a.collection(ctx, name)
}

// openView builds the grid view of a collection and loads its rows.
func (a *app) openView(ctx context.Context, name string) (*grid.View, error) {
	if _, err := a.catalog.Entry(name); err != nil {
		return nil, unknownCollection(name, types.StandardCollections)
	}
	rs, err := a.recordStore(ctx, name)
	if err != nil {
		return nil, err
	}
	opts, err := a.catalog.Options(name, rs)
	if err != nil {
		return nil, err
	}
	opts.PageSize = a.settings.PageSize
	opts.Clipboard = a.clipboard
	opts.Logger = a.log
	v := grid.New(opts)
	if _, err := v.Reload(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func unknownCollection(name string, valid []string) error {
	return fmt.Errorf("%w %q (valid: %s)", types.ErrCollectionName, name, strings.Join(valid, ", "))
}
