package shape

import (
	"github.com/pkg/errors"
)

// ErrDegenerateHull is returned when a convex hull's points do not span a volume.
var ErrDegenerateHull = errors.New("convex hull points are coplanar or coincident")

func newBadDimensionsError(kind Kind, detail string) error {
	return errors.Errorf("invalid dimensions for %s shape: %s", kind, detail)
}

func newTooFewPointsError(n int) error {
	return errors.Errorf("convex hull needs at least 4 points, got %d", n)
}

func newUnsupportedKindError(kind Kind) error {
	return errors.Errorf("unsupported shape type %q", kind)
}
