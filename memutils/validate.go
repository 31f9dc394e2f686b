package memutils

import cerrors "github.com/cockroachdb/errors"

// Validatable is used by the DebugValidate method to allow it to act upon
// all types with a Validate method
type Validatable interface {
	Validate() error
}

// CheckCorruption verifies the debug margin written directly after each of the provided allocation ends.
// ends holds the offset into data at which each margin begins. In builds without the debug_mem_utils tag
// there are no margins and this always succeeds.
func CheckCorruption(data []byte, ends []int) error {
	for _, end := range ends {
		if !ValidateMagicValue(data, end) {
			return cerrors.Wrapf(CorruptionError, "margin at offset %d", end)
		}
	}

	return nil
}
