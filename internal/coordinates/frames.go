package coordinates

import (
	"fmt"
	"math"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

// Frame identifies the reference frame a PointCloud is expressed in.
type Frame int

const (
	// Ground is the array frame: x points north, y west, z is height above
	// the array centre.
	Ground Frame = iota
	// TiltedGround is a cartesian frame whose z axis is aligned with a
	// pointing direction. The direction is a frame attribute.
	TiltedGround
	// EastingNorthing is the ground frame in surveying convention.
	EastingNorthing
)

func (f Frame) String() string {
	switch f {
	case Ground:
		return "GroundFrame"
	case TiltedGround:
		return "TiltedGroundFrame"
	case EastingNorthing:
		return "EastingNorthingFrame"
	default:
		return fmt.Sprintf("Frame(%d)", int(f))
	}
}

// AltAz is a horizontal direction in radians.
type AltAz struct {
	Alt float64
	Az  float64
}

// Deg converts degrees to radians.
func Deg(deg float64) float64 { return deg * math.Pi / 180.0 }

// NewAltAzDeg builds a direction from degrees.
func NewAltAzDeg(altDeg, azDeg float64) AltAz {
	return AltAz{Alt: Deg(altDeg), Az: Deg(azDeg)}
}

func (d AltAz) validate() error {
	if math.IsNaN(d.Alt) || math.IsInf(d.Alt, 0) || math.IsNaN(d.Az) || math.IsInf(d.Az, 0) {
		return pipeerr.Newf(pipeerr.CodeValue, "pointing direction must be finite, got alt=%v az=%v", d.Alt, d.Az)
	}
	return nil
}

// PointCloud is a set of 3D cartesian coordinates in a single frame.
// Pointing is the frame attribute of TiltedGround clouds and nil otherwise.
type PointCloud struct {
	Frame    Frame
	Pointing *AltAz
	X, Y, Z  []float64
}

// NewPointCloud builds a cloud in a frame without attributes.
// x, y and z must have equal length.
func NewPointCloud(frame Frame, x, y, z []float64) (PointCloud, error) {
	if len(x) != len(y) || len(x) != len(z) {
		return PointCloud{}, pipeerr.Newf(pipeerr.CodeValue,
			"coordinate lengths differ: x=%d y=%d z=%d", len(x), len(y), len(z))
	}
	if frame == TiltedGround {
		return PointCloud{}, pipeerr.New(pipeerr.CodeValue, "tilted ground points need a pointing direction, use NewTiltedPointCloud")
	}
	return PointCloud{Frame: frame, X: x, Y: y, Z: z}, nil
}

// NewTiltedPointCloud builds a TiltedGround cloud for the given pointing.
func NewTiltedPointCloud(pointing AltAz, x, y, z []float64) (PointCloud, error) {
	if len(x) != len(y) || len(x) != len(z) {
		return PointCloud{}, pipeerr.Newf(pipeerr.CodeValue,
			"coordinate lengths differ: x=%d y=%d z=%d", len(x), len(y), len(z))
	}
	if err := pointing.validate(); err != nil {
		return PointCloud{}, err
	}
	p := pointing
	return PointCloud{Frame: TiltedGround, Pointing: &p, X: x, Y: y, Z: z}, nil
}

// GroundPoint is a convenience constructor for a single ground position.
func GroundPoint(x, y, z float64) PointCloud {
	return PointCloud{Frame: Ground, X: []float64{x}, Y: []float64{y}, Z: []float64{z}}
}

// Len returns the number of points.
func (p PointCloud) Len() int { return len(p.X) }

// Point returns the i-th point.
func (p PointCloud) Point(i int) (x, y, z float64) { return p.X[i], p.Y[i], p.Z[i] }

// Easting is the x component of an EastingNorthing cloud.
func (p PointCloud) Easting() []float64 { return p.X }

// Northing is the y component of an EastingNorthing cloud.
func (p PointCloud) Northing() []float64 { return p.Y }

// Height is the z component of an EastingNorthing cloud.
func (p PointCloud) Height() []float64 { return p.Z }

// SamePointing reports whether two tilted clouds share their frame.
// Tilted clouds are only comparable when this holds.
func (p PointCloud) SamePointing(o PointCloud) bool {
	if p.Pointing == nil || o.Pointing == nil {
		return p.Pointing == nil && o.Pointing == nil
	}
	return *p.Pointing == *o.Pointing
}

func (p PointCloud) expect(frame Frame) error {
	if p.Frame != frame {
		return pipeerr.Newf(pipeerr.CodeValue, "expected coordinates in %s, got %s", frame, p.Frame)
	}
	return nil
}

// AltAzToRightHandedCartesian returns the unit vector of a horizontal
// direction in the right handed ground convention (x north, y west, z up).
func AltAzToRightHandedCartesian(alt, az float64) [3]float64 {
	cosAlt := math.Cos(alt)
	return [3]float64{
		cosAlt * math.Cos(az),
		-cosAlt * math.Sin(az),
		math.Sin(alt),
	}
}
