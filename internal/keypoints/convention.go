// Package keypoints defines the COCO-17 body keypoint convention used across
// the dataset and triangulation layers: canonical names, the skeleton limb
// pairs, and validity vectors marking which keypoints an annotation source
// actually observes.
package keypoints

// Count is the number of keypoints in the COCO body convention.
const Count = 17

// Names lists the COCO-17 keypoints in index order.
var Names = [Count]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// Skeleton lists the limb connections as index pairs, used when rendering a
// reconstructed pose.
var Skeleton = [][2]int{
	{15, 13}, {13, 11}, {16, 14}, {14, 12}, {11, 12},
	{5, 11}, {6, 12}, {5, 6},
	{5, 7}, {6, 8}, {7, 9}, {8, 10},
	{1, 2}, {0, 1}, {0, 2}, {1, 3}, {2, 4}, {3, 5}, {4, 6},
}

// Index returns the convention index for a keypoint name.
func Index(name string) (int, bool) {
	for i, n := range Names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// ValidityVector returns a per-keypoint 0/1 vector with every keypoint valid
// except those named. Unknown names are reported rather than ignored, since a
// typo here would silently re-include a keypoint the annotation cannot see.
func ValidityVector(exclude ...string) ([]float64, error) {
	vec := make([]float64, Count)
	for i := range vec {
		vec[i] = 1
	}
	for _, name := range exclude {
		idx, ok := Index(name)
		if !ok {
			return nil, &UnknownKeypointError{Name: name}
		}
		vec[idx] = 0
	}
	return vec, nil
}

// UnknownKeypointError reports a keypoint name outside the convention.
type UnknownKeypointError struct {
	Name string
}

func (e *UnknownKeypointError) Error() string {
	return "unknown keypoint name: " + e.Name
}
