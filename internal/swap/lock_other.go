//go:build !unix && !windows

package swap

func isPlatformLock(error) bool { return false }
