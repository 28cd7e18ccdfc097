package coordinates

import (
	"math"
	"strconv"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

// groundToEastNorth maps ground (x north, y west) into (easting, northing).
var groundToEastNorth = intMatrix{
	{0, -1, 0},
	{1, 0, 0},
	{0, 0, 1},
}

// GroundToEastingNorthingMatrix returns a copy of the fixed rotation used by
// GroundToEastingNorthing.
func GroundToEastingNorthingMatrix() [3][3]int8 { return groundToEastNorth }

// horizonTolerance bounds |R[2,2]| below which a pointing counts as horizontal.
const horizonTolerance = 1e-12

// GroundToTilted rotates ground coordinates into the tilted frame defined by
// pointing.
func GroundToTilted(p PointCloud, pointing AltAz) (PointCloud, error) {
	if err := p.expect(Ground); err != nil {
		return PointCloud{}, err
	}
	if err := pointing.validate(); err != nil {
		return PointCloud{}, err
	}
	trans := ShowerTransMatrix(pointing.Az, pointing.Alt)
	x, y, z := applyMatrix(trans, p.X, p.Y, p.Z)
	dir := pointing
	return PointCloud{Frame: TiltedGround, Pointing: &dir, X: x, Y: y, Z: z}, nil
}

// TiltedToGround rotates tilted coordinates back into the ground frame using
// the pointing carried by p.
func TiltedToGround(p PointCloud) (PointCloud, error) {
	if err := p.expect(TiltedGround); err != nil {
		return PointCloud{}, err
	}
	if p.Pointing == nil {
		return PointCloud{}, pipeerr.New(pipeerr.CodeValue, "tilted ground coordinates have no pointing direction")
	}
	trans := ShowerTransMatrix(p.Pointing.Az, p.Pointing.Alt)
	x, y, z := applyMatrix(trans.T(), p.X, p.Y, p.Z)
	return PointCloud{Frame: Ground, X: x, Y: y, Z: z}, nil
}

// ProjectToGround intersects, for every tilted point, the line parallel to
// the pointing direction with the z=0 ground plane. This is not an
// orthogonal drop of z.
//
// A horizontal pointing has no intersection and yields a CodeDomain error.
func ProjectToGround(p PointCloud) (PointCloud, error) {
	ground, err := TiltedToGround(p)
	if err != nil {
		return PointCloud{}, err
	}

	trans := ShowerTransMatrix(p.Pointing.Az, p.Pointing.Alt)
	r20, r21, r22 := trans.At(2, 0), trans.At(2, 1), trans.At(2, 2)
	if math.Abs(r22) < horizonTolerance {
		return PointCloud{}, pipeerr.WithMetadata(pipeerr.CodeDomain,
			"cannot project onto the ground for a horizontal pointing direction",
			map[string]string{
				"alt": strconv.FormatFloat(p.Pointing.Alt, 'g', -1, 64),
				"az":  strconv.FormatFloat(p.Pointing.Az, 'g', -1, 64),
			})
	}

	n := ground.Len()
	x := make([]float64, n)
	y := make([]float64, n)
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = ground.X[i] - r20*ground.Z[i]/r22
		y[i] = ground.Y[i] - r21*ground.Z[i]/r22
	}
	return PointCloud{Frame: Ground, X: x, Y: y, Z: z}, nil
}

// GroundToGround is the identity transform. The ground frame has no
// attributes, so the input is returned unchanged.
func GroundToGround(p PointCloud) PointCloud { return p }

// GroundToEastingNorthing converts ground coordinates into
// easting = -y, northing = x, height = z.
func GroundToEastingNorthing(p PointCloud) (PointCloud, error) {
	if err := p.expect(Ground); err != nil {
		return PointCloud{}, err
	}
	x, y, z := groundToEastNorth.apply(p.X, p.Y, p.Z)
	return PointCloud{Frame: EastingNorthing, X: x, Y: y, Z: z}, nil
}

// EastingNorthingToGround is the inverse of GroundToEastingNorthing.
func EastingNorthingToGround(p PointCloud) (PointCloud, error) {
	if err := p.expect(EastingNorthing); err != nil {
		return PointCloud{}, err
	}
	x, y, z := groundToEastNorth.transpose().apply(p.X, p.Y, p.Z)
	return PointCloud{Frame: Ground, X: x, Y: y, Z: z}, nil
}
