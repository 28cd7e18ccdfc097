package coordinates

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

func samplePoints() PointCloud {
	p, _ := NewPointCloud(Ground,
		[]float64{0, 1, -120.5, 350, 1e-3},
		[]float64{0, 2, 75.25, -410, 7},
		[]float64{0, 3, 12, 0.5, -2},
	)
	return p
}

func TestShowerTransMatrixIsRotation(t *testing.T) {
	for _, alt := range []float64{0, 10, 45, 70, 89.9, 90} {
		for _, az := range []float64{-180, -90, 0, 33, 180, 359} {
			m := ShowerTransMatrix(Deg(az), Deg(alt))
			assert.Truef(t, IsRotation(m, 1e-12), "alt=%v az=%v is not a rotation", alt, az)
		}
	}
}

func TestShowerTransMatrixExactForm(t *testing.T) {
	az, alt := 0.3, 1.1
	m := ShowerTransMatrix(az, alt)
	cosZ, sinZ := math.Sin(alt), math.Cos(alt)
	want := mat.NewDense(3, 3, []float64{
		cosZ * math.Cos(az), -cosZ * math.Sin(az), -sinZ,
		math.Sin(az), math.Cos(az), 0,
		sinZ * math.Cos(az), -sinZ * math.Sin(az), cosZ,
	})
	assert.True(t, mat.Equal(m, want))
}

func TestGroundTiltedRoundTrip(t *testing.T) {
	p := samplePoints()
	for _, alt := range []float64{5, 30, 60, 85, 90} {
		for _, az := range []float64{0, 45, 135, 270} {
			pointing := NewAltAzDeg(alt, az)
			tilted, err := GroundToTilted(p, pointing)
			require.NoError(t, err)
			require.Equal(t, TiltedGround, tilted.Frame)
			require.Equal(t, pointing, *tilted.Pointing)

			back, err := TiltedToGround(tilted)
			require.NoError(t, err)
			assert.Equal(t, Ground, back.Frame)
			assert.True(t, floats.EqualApprox(p.X, back.X, 1e-9))
			assert.True(t, floats.EqualApprox(p.Y, back.Y, 1e-9))
			assert.True(t, floats.EqualApprox(p.Z, back.Z, 1e-9))
		}
	}
}

func TestTiltedToGroundUsesCarriedPointing(t *testing.T) {
	p := GroundPoint(10, 20, 0)
	a, err := GroundToTilted(p, NewAltAzDeg(70, 0))
	require.NoError(t, err)
	b, err := GroundToTilted(p, NewAltAzDeg(50, 90))
	require.NoError(t, err)
	assert.False(t, a.SamePointing(b))

	ga, err := TiltedToGround(a)
	require.NoError(t, err)
	gb, err := TiltedToGround(b)
	require.NoError(t, err)
	assert.InDelta(t, ga.X[0], gb.X[0], 1e-9)
	assert.InDelta(t, ga.Y[0], gb.Y[0], 1e-9)
}

func TestZenithPointingKeepsGroundPlane(t *testing.T) {
	// At zenith the tilted plane is the ground plane, rotated by azimuth.
	tilted, err := GroundToTilted(GroundPoint(3, 4, 0), NewAltAzDeg(90, 0))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, tilted.X[0], 1e-12)
	assert.InDelta(t, 4.0, tilted.Y[0], 1e-12)
	assert.InDelta(t, 0.0, tilted.Z[0], 1e-12)
}

func TestProjectToGround(t *testing.T) {
	pointing := NewAltAzDeg(70, 20)
	tilted, err := NewTiltedPointCloud(pointing,
		[]float64{1, -30, 100}, []float64{2, 40, -5}, []float64{0, 15, -60})
	require.NoError(t, err)

	projected, err := ProjectToGround(tilted)
	require.NoError(t, err)
	assert.Equal(t, Ground, projected.Frame)
	for i := range projected.Z {
		assert.Zero(t, projected.Z[i])
	}

	// The projected point lies on the line through the ground point along
	// the pointing direction.
	ground, err := TiltedToGround(tilted)
	require.NoError(t, err)
	dir := AltAzToRightHandedCartesian(pointing.Alt, pointing.Az)
	for i := 0; i < ground.Len(); i++ {
		s := ground.Z[i] / dir[2]
		assert.InDelta(t, ground.X[i]-s*dir[0], projected.X[i], 1e-9)
		assert.InDelta(t, ground.Y[i]-s*dir[1], projected.Y[i], 1e-9)
	}
}

func TestProjectToGroundHorizontalPointing(t *testing.T) {
	tilted, err := NewTiltedPointCloud(AltAz{Alt: 0, Az: 1}, []float64{1}, []float64{1}, []float64{1})
	require.NoError(t, err)

	_, err = ProjectToGround(tilted)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeerr.ErrDomain)
}

func TestEastingNorthingRoundTripIsExact(t *testing.T) {
	p := samplePoints()
	en, err := GroundToEastingNorthing(p)
	require.NoError(t, err)
	assert.Equal(t, EastingNorthing, en.Frame)
	for i := range p.X {
		assert.Equal(t, -p.Y[i], en.Easting()[i])
		assert.Equal(t, p.X[i], en.Northing()[i])
		assert.Equal(t, p.Z[i], en.Height()[i])
	}

	back, err := EastingNorthingToGround(en)
	require.NoError(t, err)
	assert.Equal(t, p.X, back.X)
	assert.Equal(t, p.Y, back.Y)
	assert.Equal(t, p.Z, back.Z)
}

func TestEastingNorthingMatrixIsRotation(t *testing.T) {
	m := groundToEastNorth.Dense()
	assert.True(t, IsRotation(m, 1e-12))

	var prod mat.Dense
	prod.Mul(m, groundToEastNorth.transpose().Dense())
	assert.True(t, mat.Equal(&prod, identity3))
}

func TestGroundToGroundIsIdentity(t *testing.T) {
	p := samplePoints()
	got := GroundToGround(p)
	assert.Equal(t, p, got)
	assert.Same(t, &p.X[0], &got.X[0])
}

func TestFrameMismatch(t *testing.T) {
	en, err := GroundToEastingNorthing(samplePoints())
	require.NoError(t, err)

	_, err = GroundToTilted(en, NewAltAzDeg(70, 0))
	assert.ErrorIs(t, err, pipeerr.ErrValue)
	_, err = TiltedToGround(samplePoints())
	assert.ErrorIs(t, err, pipeerr.ErrValue)
	_, err = GroundToTilted(samplePoints(), AltAz{Alt: math.NaN()})
	assert.ErrorIs(t, err, pipeerr.ErrValue)
}

func TestNewPointCloudValidation(t *testing.T) {
	_, err := NewPointCloud(Ground, []float64{1}, []float64{}, []float64{1})
	assert.Error(t, err)
	_, err = NewPointCloud(TiltedGround, nil, nil, nil)
	assert.Error(t, err)

	empty, err := NewPointCloud(Ground, nil, nil, nil)
	require.NoError(t, err)
	tilted, err := GroundToTilted(empty, NewAltAzDeg(70, 0))
	require.NoError(t, err)
	assert.Zero(t, tilted.Len())
}

func TestAltAzToRightHandedCartesian(t *testing.T) {
	vec := AltAzToRightHandedCartesian(0, Deg(90))
	assert.InDelta(t, 0, vec[0], 1e-15)
	assert.InDelta(t, -1, vec[1], 1e-15)
	assert.InDelta(t, 0, vec[2], 1e-15)
}
