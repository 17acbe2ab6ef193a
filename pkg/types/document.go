package types

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Document is an uploaded file as shown in the documents listing.
type Document struct {
	Path         string    `json:"id"`
	FileName     string    `json:"file_name"`
	Size         int64     `json:"size"`
	FileSize     string    `json:"file_size"`
	FileType     string    `json:"file_type"`
	LastModified time.Time `json:"last_modified"`
	PublicURL    string    `json:"public_url,omitempty"`
}

// NewDocument builds a Document from blob metadata.
func NewDocument(meta BlobMeta, publicURL string) Document {
	name := meta.Name
	if name == "" {
		name = path.Base(meta.Path)
	}
	return Document{
		Path:         meta.Path,
		FileName:     name,
		Size:         meta.Size,
		FileSize:     FormatBytes(meta.Size),
		FileType:     FileExtension(name),
		LastModified: meta.LastModified,
		PublicURL:    publicURL,
	}
}

// Row returns the document as a row keyed by its storage path.
func (d Document) Row() Row {
	return Row{
		ID: d.Path,
		Fields: map[string]any{
			"file_name":     d.FileName,
			"size":          d.Size,
			"file_size":     d.FileSize,
			"file_type":     d.FileType,
			"last_modified": d.LastModified,
			"public_url":    d.PublicURL,
		},
	}
}

// FileExtension returns the lower-cased extension of name without the dot,
// or "unknown" when name has none.
func FileExtension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return "unknown"
	}
	return strings.ToLower(name[i+1:])
}

// FormatBytes renders a byte count as B, KB, MB or GB with one decimal.
func FormatBytes(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	case n < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(unit*unit*unit))
	}
}
