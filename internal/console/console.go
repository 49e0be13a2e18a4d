// Package console prints device diagnostics on hosts, where there is no display to hold a textbuf.Buffer.
package console

import (
	"io"
	"sync"
)

// Writer prints to an io.Writer such as os.Stdout. It has the same Print and Println methods as *textbuf.Buffer.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (c *Writer) Print(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, s)
	return err
}

func (c *Writer) Println(s string) error {
	return c.Print(s + "\n")
}

// Discard drops everything printed to it.
var Discard = New(io.Discard)
