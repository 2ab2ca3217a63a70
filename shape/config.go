package shape

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/proximity/spatialmath"
)

// Config is the serializable description of a shape and its optional local offset.
type Config struct {
	Type Kind `json:"type"`

	// Full dimensions for boxes.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	Z float64 `json:"z,omitempty"`

	// Radius for balls and bounding spheres.
	R float64 `json:"r,omitempty"`

	// Local center for bounding spheres.
	Center r3.Vector `json:"center,omitempty"`

	// Points for convex hulls.
	Points []r3.Vector `json:"points,omitempty"`

	TranslationOffset r3.Vector        `json:"translation,omitempty"`
	OrientationOffset *spatialmath.R4AA `json:"orientation,omitempty"`
}

// ParseConfig converts a Config into an offset shape.
func (config *Config) ParseConfig() (*Offset, error) {
	var (
		s   Shape
		err error
	)
	dims := r3.Vector{X: config.X, Y: config.Y, Z: config.Z}
	switch config.Type {
	case KindBall:
		s, err = NewBall(config.R)
	case KindBox:
		s, err = NewBox(dims)
	case KindOBB:
		s, err = NewOBB(dims)
	case KindConvexHull:
		s, err = NewConvexHull(config.Points)
	case KindAlignedConvexHull:
		s, err = NewAlignedConvexHull(config.Points)
	case KindBoundingSphere:
		s, err = NewBoundingSphere(config.Center, config.R)
	default:
		return nil, newUnsupportedKindError(config.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s config", config.Type)
	}

	var local spatialmath.Pose
	if config.OrientationOffset != nil || config.TranslationOffset != (r3.Vector{}) {
		var o spatialmath.Orientation
		if config.OrientationOffset != nil {
			o = config.OrientationOffset
		}
		local = spatialmath.NewPose(config.TranslationOffset, o)
	}
	return NewOffset(s, local), nil
}

// NewConfig returns the Config describing s.
func NewConfig(s Shape) (*Config, error) {
	config := &Config{}
	if o, ok := s.(*Offset); ok {
		if o.local != nil {
			config.TranslationOffset = o.local.Point()
			config.OrientationOffset = o.local.Orientation().AxisAngles()
		}
		s = o.shape
	}
	config.Type = s.Kind()
	switch typed := s.(type) {
	case *Ball:
		config.R = typed.radius
	case *BoundingSphereShape:
		config.R = typed.radius
		config.Center = typed.center
	case *Box:
		config.X, config.Y, config.Z = 2*typed.halfSize[0], 2*typed.halfSize[1], 2*typed.halfSize[2]
	case *ConvexHull:
		config.Points = typed.Points()
	default:
		return nil, newUnsupportedKindError(s.Kind())
	}
	return config, nil
}
