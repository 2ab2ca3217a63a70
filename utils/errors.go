package utils

import (
	"github.com/pkg/errors"
)

// NewIndexOutOfRangeError is used when a pair index falls outside the group it addresses.
func NewIndexOutOfRangeError(name string, index, size int) error {
	return errors.Errorf("%s index %d out of range [0, %d)", name, index, size)
}

// NewLengthMismatchError is used when two slices that must be parallel have different lengths.
func NewLengthMismatchError(what string, expected, actual int) error {
	return errors.Errorf("%s: expected %d entries but got %d", what, expected, actual)
}
