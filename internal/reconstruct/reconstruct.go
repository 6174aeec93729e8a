// Package reconstruct recovers 3D points from masked multi-view 2D
// observations using linear (DLT) triangulation. It consumes the
// (points, mask) contract produced by the triangulate package: a view masked
// soft-invalid is skipped for that point, and a point-pair carrying a
// hard-exclusion marker in any view is not solved at all.
package reconstruct

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/danielrogel/xrmocap/internal/camera"
	"github.com/danielrogel/xrmocap/internal/triangulate"
)

// MinViews is the minimum number of valid views required to triangulate a
// point. Two rays are the geometric floor; anything less leaves the system
// underdetermined.
const MinViews = 2

// Point3 is one reconstructed world point. Unsolved points carry NaN
// coordinates and Valid false.
type Point3 struct {
	X, Y, Z float64
	// Views is the number of valid observations used for this point.
	Views int
	Valid bool
}

// Triangulator solves 3D points for a fixed camera rig.
type Triangulator struct {
	cameras     []*camera.Camera
	projections []*mat.Dense
}

// NewTriangulator builds a triangulator over the rig's cameras. Projection
// matrices are computed once here since the rig is fixed for a run.
func NewTriangulator(cams []*camera.Camera) (*Triangulator, error) {
	if len(cams) < MinViews {
		return nil, fmt.Errorf("triangulation needs at least %d cameras, got %d", MinViews, len(cams))
	}
	projs := make([]*mat.Dense, len(cams))
	for i, c := range cams {
		projs[i] = c.Projection()
	}
	return &Triangulator{cameras: cams, projections: projs}, nil
}

// CameraNumber returns the number of views in the rig.
func (tr *Triangulator) CameraNumber() int { return len(tr.cameras) }

// TriangulatePoint solves a single world point from per-view pixel
// observations. valid marks which views contribute; invalid views are
// skipped. Fails when fewer than MinViews views remain or the solution is
// degenerate (homogeneous scale collapses to zero).
func (tr *Triangulator) TriangulatePoint(obs [][2]float64, valid []bool) (Point3, error) {
	if len(obs) != len(tr.cameras) || len(valid) != len(tr.cameras) {
		return Point3{}, fmt.Errorf("observation count %d and validity count %d must equal camera count %d",
			len(obs), len(valid), len(tr.cameras))
	}
	nValid := 0
	for _, ok := range valid {
		if ok {
			nValid++
		}
	}
	if nValid < MinViews {
		return Point3{}, fmt.Errorf("only %d valid views, need at least %d", nValid, MinViews)
	}

	// Stack two DLT rows per valid view: u*P3-P1 and v*P3-P2, where Pi is
	// the i-th row of the view's projection matrix. The world point is the
	// null vector of the stacked system, taken from the SVD.
	a := mat.NewDense(2*nValid, 4, nil)
	row := 0
	for view, ok := range valid {
		if !ok {
			continue
		}
		p := tr.projections[view]
		u, v := obs[view][0], obs[view][1]
		for j := 0; j < 4; j++ {
			a.Set(row, j, u*p.At(2, j)-p.At(0, j))
			a.Set(row+1, j, v*p.At(2, j)-p.At(1, j))
		}
		row += 2
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return Point3{}, fmt.Errorf("SVD factorization failed for %d-view system", nValid)
	}
	var v mat.Dense
	svd.VTo(&v)
	_, cols := v.Dims()
	sol := v.ColView(cols - 1)

	w := sol.AtVec(3)
	if math.Abs(w) < 1e-12 {
		return Point3{}, fmt.Errorf("degenerate solution: homogeneous scale %g", w)
	}
	return Point3{
		X:     sol.AtVec(0) / w,
		Y:     sol.AtVec(1) / w,
		Z:     sol.AtVec(2) / w,
		Views: nValid,
		Valid: true,
	}, nil
}

// TriangulateAll solves every point-pair in a validated (points, mask) pair.
// points and mask may be any rank the triangulate package accepts; they are
// flattened to the canonical [n_view, n_point, w] layout here. The result has
// one entry per point: hard-excluded pairs and pairs with fewer than MinViews
// valid observations come back with Valid false and NaN coordinates.
func (tr *Triangulator) TriangulateAll(points, mask *triangulate.Tensor) ([]Point3, error) {
	pts, err := points.FlattenPairs()
	if err != nil {
		return nil, fmt.Errorf("points: %w", err)
	}
	msk, err := mask.FlattenPairs()
	if err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	nView, nPoint := pts.Dim(0), pts.Dim(1)
	if nView != tr.CameraNumber() {
		return nil, fmt.Errorf("points carry %d views, rig has %d", nView, tr.CameraNumber())
	}
	if msk.Dim(0) != nView || msk.Dim(1) != nPoint || msk.Dim(2) != 1 {
		return nil, fmt.Errorf("mask shape %v does not match points shape %v", mask.Shape(), points.Shape())
	}

	out := make([]Point3, nPoint)
	obs := make([][2]float64, nView)
	valid := make([]bool, nView)
	for p := 0; p < nPoint; p++ {
		excluded := false
		nValid := 0
		for v := 0; v < nView; v++ {
			m := msk.At(v, p, 0)
			if triangulate.IsHardExcluded(m) {
				excluded = true
				break
			}
			valid[v] = m == triangulate.MaskValid
			if valid[v] {
				nValid++
			}
			obs[v] = [2]float64{pts.At(v, p, 0), pts.At(v, p, 1)}
		}
		if excluded || nValid < MinViews {
			out[p] = invalidPoint()
			continue
		}
		solved, err := tr.TriangulatePoint(obs, valid)
		if err != nil {
			out[p] = invalidPoint()
			continue
		}
		out[p] = solved
	}
	return out, nil
}

func invalidPoint() Point3 {
	return Point3{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
}
