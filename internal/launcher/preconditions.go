package launcher

import (
	"errors"
	"fmt"
	"os"

	"go.olrik.dev/wrapperctl/internal/core"
	"golang.org/x/sys/unix"
)

var (
	ErrDirNotFound        = errors.New("directory not found")
	ErrExecutableNotFound = errors.New("executable not found")
	ErrNotExecutable      = errors.New("is not executable")
)

// CheckEnvironment verifies that the managed executable can be launched.
// Each problem is reported with its own sentinel error.
func CheckEnvironment(cfg *core.Configuration) error {
	dir := cfg.Wrapper.Dir
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("'%s' %w", dir, ErrDirNotFound)
	}

	exe := cfg.ExecutablePath()
	info, err = os.Stat(exe)
	if err != nil || info.IsDir() {
		return fmt.Errorf("'%s' %w", exe, ErrExecutableNotFound)
	}

	if err := unix.Access(exe, unix.X_OK); err != nil {
		return fmt.Errorf("'%s' %w", exe, ErrNotExecutable)
	}

	return nil
}

// IsEnvironmentError reports whether err came from CheckEnvironment
func IsEnvironmentError(err error) bool {
	return errors.Is(err, ErrDirNotFound) ||
		errors.Is(err, ErrExecutableNotFound) ||
		errors.Is(err, ErrNotExecutable)
}
