// Package clip provides the clipboards used by the copy action.
package clip

import (
	"fmt"
	"io"
	"sync"

	"github.com/atotto/clipboard"
)

// System writes to the operating system clipboard.
type System struct{}

// Available reports whether the platform has a usable clipboard backend.
func Available() bool {
	return !clipboard.Unsupported
}

// WriteAll copies text to the system clipboard.
func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found")
	}
	return clipboard.WriteAll(text)
}

// Writer prints copied text to an io.Writer, one value per line. It stands
// in for the system clipboard in headless sessions.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter returns a Writer printing to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteAll prints text followed by a newline.
func (w *Writer) WriteAll(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.out, text)
	return err
}

// Memory keeps the last copied value.
type Memory struct {
	mu   sync.Mutex
	text string
}

// WriteAll stores text.
func (m *Memory) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

// Text returns the last copied value.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}
