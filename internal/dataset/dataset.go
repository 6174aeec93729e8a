// Package dataset loads multi-view 2D keypoint detection files. A detection
// file is JSON: per-view, per-person, per-keypoint rows of [x, y, confidence]
// produced by an upstream 2D pose estimator. The loader turns a file into the
// tensors the triangulation pipeline consumes and derives a soft-invalidity
// mask from detector confidence.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielrogel/xrmocap/internal/triangulate"
)

// Detections is one synchronized multi-view capture: every view observes the
// same persons and keypoints at the same instant.
type Detections struct {
	// Source names where the detections came from (file path or dataset id).
	Source string `json:"source"`
	// Views is indexed [view][person][keypoint] with rows of
	// [x, y, confidence]. Confidence is the detector's score in [0, 1].
	Views [][][][]float64 `json:"views"`
}

// Load reads and validates a detection file. Every view must carry the same
// person and keypoint counts and every row must have at least x and y.
func Load(path string) (*Detections, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}
	var d Detections
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse detections %s: %w", path, err)
	}
	if d.Source == "" {
		d.Source = path
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("invalid detections %s: %w", path, err)
	}
	return &d, nil
}

func (d *Detections) validate() error {
	if len(d.Views) == 0 {
		return fmt.Errorf("no views")
	}
	nPerson := len(d.Views[0])
	if nPerson == 0 {
		return fmt.Errorf("view 0 has no persons")
	}
	nKeypoint := len(d.Views[0][0])
	if nKeypoint == 0 {
		return fmt.Errorf("view 0 person 0 has no keypoints")
	}
	width := len(d.Views[0][0][0])
	if width < 2 {
		return fmt.Errorf("keypoint rows must have at least x and y, got width %d", width)
	}
	for v, persons := range d.Views {
		if len(persons) != nPerson {
			return fmt.Errorf("view %d has %d persons, view 0 has %d", v, len(persons), nPerson)
		}
		for p, kps := range persons {
			if len(kps) != nKeypoint {
				return fmt.Errorf("view %d person %d has %d keypoints, expected %d", v, p, len(kps), nKeypoint)
			}
			for k, row := range kps {
				if len(row) != width {
					return fmt.Errorf("view %d person %d keypoint %d has width %d, expected %d", v, p, k, len(row), width)
				}
			}
		}
	}
	return nil
}

// CameraNumber returns the number of views.
func (d *Detections) CameraNumber() int { return len(d.Views) }

// PersonCount returns the number of persons per view.
func (d *Detections) PersonCount() int { return len(d.Views[0]) }

// KeypointCount returns the number of keypoints per person.
func (d *Detections) KeypointCount() int { return len(d.Views[0][0]) }

// PointsTensor returns the observations as a
// [n_view, n_person, n_keypoint, width] tensor. Width includes the
// confidence column when the file carries one.
func (d *Detections) PointsTensor() (*triangulate.Tensor, error) {
	return triangulate.FromNested(d.Views)
}

// ConfidenceMask builds a [n_view, n_person, n_keypoint, 1] mask marking
// detections below the confidence threshold as soft invalid. Files without a
// confidence column yield an all-valid mask.
func (d *Detections) ConfidenceMask(threshold float64) (*triangulate.Tensor, error) {
	nView, nPerson, nKeypoint := d.CameraNumber(), d.PersonCount(), d.KeypointCount()
	hasConfidence := len(d.Views[0][0][0]) > 2

	data := make([]float64, 0, nView*nPerson*nKeypoint)
	for _, persons := range d.Views {
		for _, kps := range persons {
			for _, row := range kps {
				v := triangulate.MaskValid
				if hasConfidence && row[2] < threshold {
					v = triangulate.MaskSoftInvalid
				}
				data = append(data, v)
			}
		}
	}
	return triangulate.NewTensor([]int{nView, nPerson, nKeypoint, 1}, data)
}
