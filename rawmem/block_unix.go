//go:build unix

package rawmem

import "golang.org/x/sys/unix"

func mapBlock(size int) ([]byte, bool, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func unmapBlock(data []byte) error {
	return unix.Munmap(data)
}
