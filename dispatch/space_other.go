//go:build !linux && !darwin && !freebsd && !windows

package dispatch

import "errors"

func diskSpace(path string) (DiskSpace, error) {
	return DiskSpace{}, errors.New("disk space is not available on this platform")
}
