//go:build windows

package dispatch

import "golang.org/x/sys/windows"

func diskSpace(path string) (DiskSpace, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return DiskSpace{}, err
	}
	var avail, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(p, &avail, &total, &free); err != nil {
		return DiskSpace{}, err
	}
	return DiskSpace{Total: total, Free: avail, Used: total - free}, nil
}
