// Package intake accepts dispatch requests from external tools over a
// local datagram socket. Scripts and editors push command text at the
// running session; the session's target, mode, and serialization rules
// still apply, so intake traffic can never jump the queue or retarget.
package intake

import (
	"fmt"
	"strings"
)

// Request is the normalized payload pushed by external tools.
type Request struct {
	// Text is the command text; it may span multiple lines and is split
	// exactly like operator input.
	Text string `json:"text"`

	// AutoEnter overrides the session default for this request when set.
	AutoEnter *bool `json:"auto_enter,omitempty"`
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}
