package winsys

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Detect returns the window-system backend for this host.
// X11 is the only backend today; it requires a DISPLAY and the xdotool
// binary. Wayland sessions work only through XWayland (which sets
// DISPLAY).
func Detect(cacheTTL time.Duration) (*X11, error) {
	if os.Getenv("DISPLAY") == "" {
		if os.Getenv("WAYLAND_DISPLAY") != "" {
			return nil, fmt.Errorf("wayland session without XWayland is not supported (DISPLAY unset)")
		}
		return nil, fmt.Errorf("no X11 display detected (DISPLAY unset)")
	}

	if _, err := exec.LookPath("xdotool"); err != nil {
		return nil, fmt.Errorf("xdotool not found in PATH (install xdotool)")
	}

	return NewX11(cacheTTL), nil
}
