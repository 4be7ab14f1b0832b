package winsys

import "github.com/atotto/clipboard"

// SystemClipboard adapts the host clipboard. The clipboard is a
// process-wide resource: writers own it only for the duration of a
// write-then-paste sequence and must not assume prior contents survive.
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error) {
	return clipboard.ReadAll()
}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}
