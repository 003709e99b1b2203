//go:build windows

package swap

import (
	"errors"

	"golang.org/x/sys/windows"
)

func isPlatformLock(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) || errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
