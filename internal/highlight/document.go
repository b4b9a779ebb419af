package highlight

import "sync"

// Document supplies the full current text of the buffer being highlighted.
// Text is read once per refresh, when the refresh actually runs.
type Document interface {
	Text() string
}

// DocumentFunc adapts a function to Document.
type DocumentFunc func() string

// Text implements Document.
func (f DocumentFunc) Text() string { return f() }

// Buffer is a Document holding text in memory. Safe for concurrent use.
type Buffer struct {
	mu   sync.RWMutex
	text string
}

// NewBuffer returns a Buffer holding text.
func NewBuffer(text string) *Buffer {
	return &Buffer{text: text}
}

// Text implements Document.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Set replaces the buffer contents.
func (b *Buffer) Set(text string) {
	b.mu.Lock()
	b.text = text
	b.mu.Unlock()
}
