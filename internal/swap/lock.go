package swap

import (
	"errors"
	"io/fs"
)

// isLocked reports whether err from a file replace means another process
// holds the file, as opposed to a fault in the run itself.
func isLocked(err error) bool {
	return errors.Is(err, fs.ErrPermission) || isPlatformLock(err)
}
