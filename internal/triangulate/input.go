package triangulate

import (
	"fmt"
	"math"

	"github.com/danielrogel/xrmocap/internal/monitoring"
)

// Mask element values. A mask entry is one of three states: valid, soft
// invalid (that single view is skipped but the point-pair still counts in
// statistics), or hard excluded (the whole pair is dropped from triangulation
// and from every statistic). Hard exclusion is encoded as NaN so the solver
// interface stays a plain float tensor; all reads and writes of the excluded
// state go through HardExcluded and IsHardExcluded, never arithmetic.
const (
	MaskValid       = 1.0
	MaskSoftInvalid = 0.0
)

// HardExcluded returns the mask value marking a point-pair as removed from
// all computation and all statistics.
func HardExcluded() float64 { return math.NaN() }

// IsHardExcluded reports whether a mask value is the hard-exclusion marker.
func IsHardExcluded(v float64) bool { return math.IsNaN(v) }

// PrepareInput normalizes raw multi-view observations into a validated
// (points, mask) tensor pair ready for triangulation.
//
// points may be a *Tensor or any uniformly nested numeric sequence (including
// the []any nesting produced by encoding/json), shaped
// [n_view, ...extra..., 2+n] with n >= 0; coordinates beyond the first two
// are passed through untouched. pointsMask is optional with shape
// [n_view, ...extra..., 1]; when nil an all-valid mask is synthesized.
//
// Checks run in order and fail fast: view count against cameraNumber
// (ErrViewCountMismatch), coordinate width (ErrCoordWidthTooSmall), then mask
// shape (ErrMaskShapeMismatch). Inputs that cannot be coerced to a tensor of
// rank >= 2 fail with ErrInvalidInput. Each rejection is logged with the
// offending shapes before the error is returned.
func PrepareInput(cameraNumber int, points any, pointsMask any) (*Tensor, *Tensor, error) {
	pts, err := coerceInput("points", points)
	if err != nil {
		return nil, nil, err
	}

	var mask *Tensor
	if pointsMask == nil {
		mask = Ones(append(pts.LeadingShape(), 1)...)
	} else {
		mask, err = coerceInput("points_mask", pointsMask)
		if err != nil {
			return nil, nil, err
		}
	}

	if pts.Dim(0) != mask.Dim(0) || pts.Dim(0) != cameraNumber {
		monitoring.Logf("view number of input does not equal camera number: points shape %v, mask shape %v, camera number %d",
			pts.Shape(), mask.Shape(), cameraNumber)
		return nil, nil, fmt.Errorf("%w: points shape %v, mask shape %v, camera number %d",
			ErrViewCountMismatch, pts.Shape(), mask.Shape(), cameraNumber)
	}
	if pts.Dim(pts.Rank()-1) < 2 {
		monitoring.Logf("points last axis must not be narrower than 2: points shape %v", pts.Shape())
		return nil, nil, fmt.Errorf("%w: points shape %v", ErrCoordWidthTooSmall, pts.Shape())
	}
	if !leadingShapeEquals(pts, mask) || mask.Dim(mask.Rank()-1) != 1 {
		monitoring.Logf("points_mask must be [n_view, ..., 1] like points: mask shape %v, points shape %v",
			mask.Shape(), pts.Shape())
		return nil, nil, fmt.Errorf("%w: mask shape %v, points shape %v",
			ErrMaskShapeMismatch, mask.Shape(), pts.Shape())
	}
	return pts, mask, nil
}

// coerceInput converts a boundary argument into a rank >= 2 tensor, logging
// and wrapping ErrInvalidInput on failure. This is the single place dynamic
// input typing is resolved; everything downstream is statically a *Tensor.
func coerceInput(name string, v any) (*Tensor, error) {
	if v == nil {
		monitoring.Logf("%s is nil, expected a tensor or nested numeric sequence", name)
		return nil, fmt.Errorf("%w: %s is nil", ErrInvalidInput, name)
	}
	t, err := FromNested(v)
	if err != nil {
		monitoring.Logf("type of %s is not a tensor or nested numeric sequence: %T (%v)", name, v, err)
		return nil, fmt.Errorf("%w: %s has type %T: %v", ErrInvalidInput, name, v, err)
	}
	if t.Rank() < 2 {
		monitoring.Logf("%s must have rank >= 2, got shape %v", name, t.Shape())
		return nil, fmt.Errorf("%w: %s must have rank >= 2, got shape %v", ErrInvalidInput, name, t.Shape())
	}
	return t, nil
}

func leadingShapeEquals(a, b *Tensor) bool {
	if a.Rank() != b.Rank() {
		return false
	}
	for i := 0; i < a.Rank()-1; i++ {
		if a.Dim(i) != b.Dim(i) {
			return false
		}
	}
	return true
}
