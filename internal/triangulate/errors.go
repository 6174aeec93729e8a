package triangulate

import "errors"

// Sentinel errors for input validation. Every failure is logged with the
// concrete offending shapes or types before being returned, and callers are
// expected to treat them as fatal for the current batch (no partial results).
var (
	// ErrInvalidInput marks a points or mask argument that is not a tensor
	// or a uniformly nested numeric sequence.
	ErrInvalidInput = errors.New("invalid input")

	// ErrViewCountMismatch marks a leading axis that does not match the
	// declared camera count.
	ErrViewCountMismatch = errors.New("view count mismatch")

	// ErrCoordWidthTooSmall marks a points tensor whose last axis is
	// narrower than the two planar coordinates.
	ErrCoordWidthTooSmall = errors.New("coordinate width too small")

	// ErrMaskShapeMismatch marks a mask whose leading shape differs from
	// the points tensor, or whose last axis is not width 1.
	ErrMaskShapeMismatch = errors.New("mask shape mismatch")

	// ErrKeypointCountMismatch marks a keypoint axis whose length differs
	// from the supplied keypoint validity vector.
	ErrKeypointCountMismatch = errors.New("keypoint count mismatch")
)
