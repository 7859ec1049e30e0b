//go:build !linux && !darwin

package launcher

import "os"

func disableEcho(*os.File) error {
	return nil
}
