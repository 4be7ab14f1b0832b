package intake

import (
	"fmt"
	"os"
	"path/filepath"
)

func DefaultSocketPath() string {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir != "" {
		return filepath.Join(runtimeDir, "term-courier", "intake.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("term-courier-%d", os.Getuid()), "intake.sock")
}
