// Package triangulate validates and masks multi-view 2D point observations
// ahead of 3D reconstruction.
//
// The pipeline has three stages. PrepareInput normalizes raw observations
// (nested sequences or tensors of any rank >= 2) into a validated
// (points, mask) pair with strict shape checks against the declared camera
// count. ParseKeypointsMask folds a per-keypoint validity vector from the
// annotation layer into the mask, hard-excluding unobservable keypoints
// across every view. ValidViewsStats reports how many views see each
// surviving point-pair, which is the diagnostic that tells an evaluation run
// whether its reconstructions are starved of views.
//
// Masks are float64 tensors with three element states: 1 (valid), 0 (soft
// invalid, skipped for that view only), and NaN (hard excluded, the whole
// pair vanishes from triangulation and statistics). The NaN state is only
// touched through HardExcluded and IsHardExcluded.
package triangulate
