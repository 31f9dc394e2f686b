//go:build !unix && !windows

package rawmem

// Platforms without anonymous mappings fall back to the Go heap
func mapBlock(size int) ([]byte, bool, error) {
	return make([]byte, size), false, nil
}

func unmapBlock(data []byte) error {
	return nil
}
