package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestMath(t *testing.T) {
	test.That(t, Clamp(3, 0, 1), test.ShouldEqual, 1)
	test.That(t, Clamp(-3, 0, 1), test.ShouldEqual, 0)
	test.That(t, IsFinite(math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
	test.That(t, IsFinite(2), test.ShouldBeTrue)
}

func TestErrors(t *testing.T) {
	test.That(t, NewIndexOutOfRangeError("shape", 4, 3).Error(), test.ShouldEqual, "shape index 4 out of range [0, 3)")
	test.That(t, NewLengthMismatchError("poses", 2, 1).Error(), test.ShouldEqual, "poses: expected 2 entries but got 1")
}
