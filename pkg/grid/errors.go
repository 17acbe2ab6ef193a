package grid

import "errors"

// Engine errors.
var (
	ErrUnknownColumn     = errors.New("unknown or unsortable column")
	ErrInvalidPageSize   = errors.New("page size must be positive")
	ErrClipboard         = errors.New("clipboard write failed")
	ErrUnsupportedAction = errors.New("unsupported row action")
	ErrViewClosed        = errors.New("view is closed")
)
