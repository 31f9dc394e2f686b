//go:build windows

package rawmem

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func mapBlock(size int) ([]byte, bool, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, false, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), true, nil
}

func unmapBlock(data []byte) error {
	return windows.VirtualFree(uintptr(unsafe.Pointer(&data[0])), 0, windows.MEM_RELEASE)
}
