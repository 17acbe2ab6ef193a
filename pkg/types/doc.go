// Package types defines the generic Row, the collaborator interfaces the grid
// engine depends on (RecordStore, BlobStore, SessionProvider), the entity
// variants converted into rows at ingestion, and the standard errors shared
// by every backoffice package.
package types
