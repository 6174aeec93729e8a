// Package camera models calibrated pinhole cameras: intrinsics, world-to-
// camera extrinsics, and the 3x4 projection matrices the triangulation
// solver consumes. Calibration is read from a JSON rig file; estimating it
// is someone else's job.
package camera

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Camera is one calibrated view.
type Camera struct {
	Name string
	// K is the 3x3 intrinsic matrix (focal lengths and principal point).
	K *mat.Dense
	// R is the 3x3 world-to-camera rotation.
	R *mat.Dense
	// T is the world-to-camera translation.
	T *mat.VecDense
}

// New builds a camera from row-major 3x3 intrinsics, row-major 3x3 rotation
// and a length-3 translation.
func New(name string, k, r [9]float64, t [3]float64) *Camera {
	return &Camera{
		Name: name,
		K:    mat.NewDense(3, 3, k[:]),
		R:    mat.NewDense(3, 3, r[:]),
		T:    mat.NewVecDense(3, t[:]),
	}
}

// Projection returns the 3x4 projection matrix K*[R|t].
func (c *Camera) Projection() *mat.Dense {
	rt := mat.NewDense(3, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rt.Set(i, j, c.R.At(i, j))
		}
		rt.Set(i, 3, c.T.AtVec(i))
	}
	proj := mat.NewDense(3, 4, nil)
	proj.Mul(c.K, rt)
	return proj
}

// Project maps a world point onto the image plane, returning pixel
// coordinates. The third homogeneous component is assumed non-degenerate
// (point in front of a finite camera).
func (c *Camera) Project(x, y, z float64) (u, v float64) {
	world := mat.NewVecDense(4, []float64{x, y, z, 1})
	img := mat.NewVecDense(3, nil)
	img.MulVec(c.Projection(), world)
	w := img.AtVec(2)
	return img.AtVec(0) / w, img.AtVec(1) / w
}

// NormalizePixel converts pixel coordinates to normalized image coordinates
// by removing the intrinsic scaling.
func (c *Camera) NormalizePixel(u, v float64) (float64, float64) {
	fx, fy := c.K.At(0, 0), c.K.At(1, 1)
	cx, cy := c.K.At(0, 2), c.K.At(1, 2)
	return (u - cx) / fx, (v - cy) / fy
}

// rigEntry is the JSON schema for one camera in a rig file.
type rigEntry struct {
	Name string     `json:"name"`
	K    [9]float64 `json:"k"`
	R    [9]float64 `json:"r"`
	T    [3]float64 `json:"t"`
}

// LoadRig reads a JSON rig file: a list of cameras with row-major k, r and
// length-3 t entries. The list order defines view order everywhere else.
func LoadRig(path string) ([]*Camera, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rig file: %w", err)
	}
	var entries []rigEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse rig file %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("rig file %s contains no cameras", path)
	}
	cams := make([]*Camera, len(entries))
	for i, e := range entries {
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("view_%d", i)
		}
		cams[i] = New(name, e.K, e.R, e.T)
	}
	return cams, nil
}
