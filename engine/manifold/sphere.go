package manifold

import (
	"fmt"
	"math"

	"github.com/spectramesh/spectra-go/engine/spectral/basis"
)

// NewUVSphere builds a UV sphere centered at the origin. The grid has
// rings+1 latitude rows and segments+1 longitude columns (the last column
// duplicates the first to close the texture seam), matching the vertex
// order SphereEigenbasis emits.
//
// Parameters:
//   - name: the manifold identifier
//   - radius: the sphere radius
//   - rings: latitude subdivisions (minimum 2)
//   - segments: longitude subdivisions (minimum 3)
//
// Returns:
//   - Manifold: the sphere manifold
//   - error: an error if the resolution is too low
func NewUVSphere(name string, radius float32, rings, segments int) (Manifold, error) {
	if rings < 2 || segments < 3 {
		return nil, fmt.Errorf("manifold: %s needs rings >= 2 and segments >= 3, got %d, %d", name, rings, segments)
	}

	cols := segments + 1
	nv := (rings + 1) * cols
	positions := make([]float32, 0, nv*3)
	normals := make([]float32, 0, nv*3)
	for i := 0; i <= rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		sinT, cosT := math.Sincos(theta)
		for j := 0; j <= segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			sinP, cosP := math.Sincos(phi)
			nx := float32(sinT * cosP)
			ny := float32(cosT)
			nz := float32(sinT * sinP)
			positions = append(positions, nx*radius, ny*radius, nz*radius)
			normals = append(normals, nx, ny, nz)
		}
	}

	indices := make([]uint32, 0, rings*segments*6)
	for i := 0; i < rings; i++ {
		for j := 0; j < segments; j++ {
			a := uint32(i*cols + j)
			b := uint32((i+1)*cols + j)
			// pole rows collapse one triangle of each quad
			if i != 0 {
				indices = append(indices, a, b, a+1)
			}
			if i != rings-1 {
				indices = append(indices, a+1, b, b+1)
			}
		}
	}

	return NewManifold(name, positions, normals, indices)
}

// SphereEigenbasis builds the analytic Laplace-Beltrami eigenbasis of a
// sphere on the NewUVSphere vertex grid: real spherical harmonics up to
// degree maxL, with eigenvalues l(l+1)/r^2 and lumped quadrature weights
// as the mass vector. Seam-duplicate vertices carry zero mass so the
// closed surface is not double counted; the basis layer clamps them.
//
// Parameters:
//   - radius: the sphere radius
//   - rings: latitude subdivisions, matching the manifold
//   - segments: longitude subdivisions, matching the manifold
//   - maxL: highest harmonic degree; the basis has (maxL+1)^2 modes
//
// Returns:
//   - basis.EigenpairData: the eigenpairs in mode-major layout
func SphereEigenbasis(radius float32, rings, segments, maxL int) basis.EigenpairData {
	cols := segments + 1
	nv := (rings + 1) * cols
	k := (maxL + 1) * (maxL + 1)
	r := float64(radius)

	lambda := make([]float32, 0, k)
	for l := 0; l <= maxL; l++ {
		ev := float32(float64(l*(l+1)) / (r * r))
		for m := -l; m <= l; m++ {
			lambda = append(lambda, ev)
		}
	}

	dTheta := math.Pi / float64(rings)
	dPhi := 2 * math.Pi / float64(segments)
	mass := make([]float32, nv)
	for i := 0; i <= rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		rowWeight := 1.0
		if i == 0 || i == rings {
			rowWeight = 0.5
		}
		w := r * r * math.Sin(theta) * dTheta * dPhi * rowWeight
		for j := 0; j < cols; j++ {
			if j == segments {
				continue // seam duplicate
			}
			mass[i*cols+j] = float32(w)
		}
	}

	// psi rows are Y_lm / r, orthonormal under the mass weights above
	psi := make([]float32, k*nv)
	mode := 0
	for l := 0; l <= maxL; l++ {
		for m := -l; m <= l; m++ {
			for i := 0; i <= rings; i++ {
				theta := math.Pi * float64(i) / float64(rings)
				plm := assocLegendre(l, absInt(m), math.Cos(theta))
				norm := harmonicNorm(l, absInt(m)) / r
				for j := 0; j < cols; j++ {
					phi := 2 * math.Pi * float64(j) / float64(segments)
					var y float64
					switch {
					case m > 0:
						y = math.Sqrt2 * norm * plm * math.Cos(float64(m)*phi)
					case m < 0:
						y = math.Sqrt2 * norm * plm * math.Sin(float64(-m)*phi)
					default:
						y = norm * plm
					}
					psi[mode*nv+i*cols+j] = float32(y)
				}
			}
			mode++
		}
	}

	return basis.EigenpairData{
		Lambda: lambda,
		Psi:    psi,
		Mass:   mass,
		NV:     nv,
		Layout: basis.LayoutModeMajor,
	}
}

// harmonicNorm is sqrt((2l+1)/(4 pi) * (l-m)!/(l+m)!), the spherical
// harmonic normalization for m >= 0.
func harmonicNorm(l, m int) float64 {
	ratio := 1.0
	for i := l - m + 1; i <= l+m; i++ {
		ratio *= float64(i)
	}
	return math.Sqrt(float64(2*l+1) / (4 * math.Pi * ratio))
}

// assocLegendre evaluates the associated Legendre function P_l^m(x) for
// m >= 0 by the standard upward recurrence.
func assocLegendre(l, m int, x float64) float64 {
	// P_m^m
	pmm := 1.0
	if m > 0 {
		somx2 := math.Sqrt((1 - x) * (1 + x))
		fact := 1.0
		for i := 0; i < m; i++ {
			pmm *= fact * somx2
			fact += 2
		}
	}
	if l == m {
		return pmm
	}
	// P_{m+1}^m
	pmmp1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pmmp1
	}
	var pll float64
	for ll := m + 2; ll <= l; ll++ {
		pll = (x*float64(2*ll-1)*pmmp1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm = pmmp1
		pmmp1 = pll
	}
	return pll
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
