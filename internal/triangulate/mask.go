package triangulate

import (
	"fmt"

	"github.com/danielrogel/xrmocap/internal/monitoring"
)

// ParseKeypointsMask builds a triangulation mask from a per-keypoint validity
// vector supplied by the annotation layer.
//
// keypoints is a *Tensor or nested sequence shaped
// [n_view, ...extra..., n_keypoints, 2+n]; it only provides the shape
// reference for the returned mask. keypointsMask has one entry per keypoint:
// 0 means the keypoint is not observable at all and its mask slice is hard
// excluded uniformly across every view and every leading-axis combination
// (frame, person); any other value leaves the slice valid.
//
// The returned mask is shaped [n_view, ...extra..., n_keypoints, 1]. The
// keypoint axis length must match len(keypointsMask), else
// ErrKeypointCountMismatch.
func ParseKeypointsMask(keypoints any, keypointsMask []float64) (*Tensor, error) {
	kps, err := coerceInput("keypoints", keypoints)
	if err != nil {
		return nil, err
	}
	_, mask, err := PrepareInput(kps.Dim(0), kps, nil)
	if err != nil {
		return nil, err
	}

	nKeypoints := kps.Dim(kps.Rank() - 2)
	if nKeypoints != len(keypointsMask) {
		monitoring.Logf("keypoint number of points does not match length of keypoints_mask: keypoints shape %v, mask length %d",
			kps.Shape(), len(keypointsMask))
		return nil, fmt.Errorf("%w: keypoints shape %v, validity vector length %d",
			ErrKeypointCountMismatch, kps.Shape(), len(keypointsMask))
	}

	// The mask is [..., n_keypoints, 1] in row-major order, so each run of
	// nKeypoints consecutive elements is one keypoint slice. Marking every
	// run at the invalid indices excludes the keypoint across all views and
	// all leading axes at once.
	data := mask.Data()
	for base := 0; base < len(data); base += nKeypoints {
		for idx, v := range keypointsMask {
			if v == 0 {
				data[base+idx] = HardExcluded()
			}
		}
	}
	return mask, nil
}

// MergeMasks combines two masks of identical shape into one. Hard exclusion
// in either input wins, then soft invalidity, then validity. The inputs are
// not modified.
func MergeMasks(a, b *Tensor) (*Tensor, error) {
	if !a.ShapeEquals(b) {
		monitoring.Logf("cannot merge masks of different shapes: %v and %v", a.Shape(), b.Shape())
		return nil, fmt.Errorf("%w: cannot merge shapes %v and %v", ErrMaskShapeMismatch, a.Shape(), b.Shape())
	}
	out := a.Clone()
	dst := out.Data()
	src := b.Data()
	for i := range dst {
		switch {
		case IsHardExcluded(dst[i]) || IsHardExcluded(src[i]):
			dst[i] = HardExcluded()
		case dst[i] == MaskValid && src[i] == MaskValid:
			dst[i] = MaskValid
		default:
			dst[i] = MaskSoftInvalid
		}
	}
	return out, nil
}
