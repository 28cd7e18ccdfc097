package coordinates

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ShowerTransMatrix returns the rotation from the ground frame into the
// tilted frame whose z axis points to (azimuth, altitude).
//
// The zenith-style names are kept on purpose: cosZ is sin(altitude) and
// sinZ is cos(altitude). Do not "simplify" the matrix, downstream
// reconstruction relies on this exact form.
func ShowerTransMatrix(azimuth, altitude float64) *mat.Dense {
	cosZ := math.Sin(altitude)
	sinZ := math.Cos(altitude)
	cosAz := math.Cos(azimuth)
	sinAz := math.Sin(azimuth)

	return mat.NewDense(3, 3, []float64{
		cosZ * cosAz, -cosZ * sinAz, -sinZ,
		sinAz, cosAz, 0,
		sinZ * cosAz, -sinZ * sinAz, cosZ,
	})
}

// IsRotation reports whether m is a proper 3x3 rotation within tol:
// m·mᵀ ≈ I and det(m) ≈ 1.
func IsRotation(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != 3 || c != 3 {
		return false
	}
	var prod mat.Dense
	prod.Mul(m, m.T())
	if !mat.EqualApprox(&prod, identity3, tol) {
		return false
	}
	return math.Abs(mat.Det(m)-1) <= tol
}

var identity3 = mat.NewDiagDense(3, []float64{1, 1, 1})

// applyMatrix computes m·[x y z]ᵀ for every point.
func applyMatrix(m mat.Matrix, x, y, z []float64) (ox, oy, oz []float64) {
	n := len(x)
	ox = make([]float64, n)
	oy = make([]float64, n)
	oz = make([]float64, n)
	if n == 0 {
		return ox, oy, oz
	}

	pts := mat.NewDense(3, n, nil)
	pts.SetRow(0, x)
	pts.SetRow(1, y)
	pts.SetRow(2, z)

	var out mat.Dense
	out.Mul(m, pts)
	mat.Row(ox, 0, &out)
	mat.Row(oy, 1, &out)
	mat.Row(oz, 2, &out)
	return ox, oy, oz
}

// intMatrix is an affine rotation with entries in {-1, 0, 1}. Applying it
// only sums the non-zero terms so the result is exact.
type intMatrix [3][3]int8

func (m intMatrix) transpose() intMatrix {
	var t intMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

func (m intMatrix) apply(x, y, z []float64) (ox, oy, oz []float64) {
	n := len(x)
	out := [3][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	in := [3][]float64{x, y, z}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c := m[i][j]
			if c == 0 {
				continue
			}
			for k := 0; k < n; k++ {
				out[i][k] += float64(c) * in[j][k]
			}
		}
	}
	return out[0], out[1], out[2]
}

// Dense returns the matrix as a gonum matrix.
func (m intMatrix) Dense() *mat.Dense {
	d := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d.Set(i, j, float64(m[i][j]))
		}
	}
	return d
}
