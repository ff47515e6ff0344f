//go:build linux || darwin || freebsd

package dispatch

import "golang.org/x/sys/unix"

func diskSpace(path string) (DiskSpace, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskSpace{}, err
	}
	bsize := uint64(st.Bsize)
	return DiskSpace{
		Total: uint64(st.Blocks) * bsize,
		Free:  uint64(st.Bavail) * bsize,
		Used:  (uint64(st.Blocks) - uint64(st.Bfree)) * bsize,
	}, nil
}
