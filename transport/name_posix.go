//go:build !windows

package transport

import (
	"fmt"
	"os"
)

func resolveNativeName(name string, userSpecific bool) (string, error) {
	dir := runtimeDir()
	if userSpecific {
		return fmt.Sprintf("%s/%s.%d.sock", dir, name, os.Getuid()), nil
	}
	return fmt.Sprintf("%s/%s.sock", dir, name), nil
}

func runtimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}
