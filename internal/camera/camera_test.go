package camera

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityK is a unit-focal intrinsic matrix with the principal point at the
// origin, so normalized and pixel coordinates coincide.
var identityK = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

var identityR = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

func TestProjectionIdentityExtrinsics(t *testing.T) {
	t.Parallel()

	k := [9]float64{1000, 0, 960, 0, 1000, 540, 0, 0, 1}
	cam := New("cam0", k, identityR, [3]float64{0, 0, 0})
	proj := cam.Projection()

	rows, cols := proj.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 4, cols)

	// With identity extrinsics the left 3x3 block is K and the last column
	// is zero.
	assert.InDelta(t, 1000.0, proj.At(0, 0), 1e-12)
	assert.InDelta(t, 960.0, proj.At(0, 2), 1e-12)
	assert.InDelta(t, 540.0, proj.At(1, 2), 1e-12)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0.0, proj.At(i, 3), 1e-12)
	}
}

func TestProjectKnownPoint(t *testing.T) {
	t.Parallel()

	k := [9]float64{800, 0, 320, 0, 800, 240, 0, 0, 1}
	cam := New("cam0", k, identityR, [3]float64{0, 0, 0})

	// Point at (1, 0.5, 4) in front of the camera.
	u, v := cam.Project(1, 0.5, 4)
	assert.InDelta(t, 320+800*1/4.0, u, 1e-9)
	assert.InDelta(t, 240+800*0.5/4.0, v, 1e-9)
}

func TestProjectWithTranslation(t *testing.T) {
	t.Parallel()

	cam := New("cam1", identityK, identityR, [3]float64{-1, 0, 0})
	// Translation shifts the world point before projection: world (1,0,2)
	// lands at camera (0,0,2) -> image origin.
	u, v := cam.Project(1, 0, 2)
	assert.InDelta(t, 0.0, u, 1e-12)
	assert.InDelta(t, 0.0, v, 1e-12)
}

func TestNormalizePixelRoundTrip(t *testing.T) {
	t.Parallel()

	k := [9]float64{500, 0, 100, 0, 400, 50, 0, 0, 1}
	cam := New("cam0", k, identityR, [3]float64{0, 0, 0})

	x, y := cam.NormalizePixel(600, 450)
	assert.InDelta(t, 1.0, x, 1e-12)
	assert.InDelta(t, 1.0, y, 1e-12)
}

func TestLoadRig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "rig.json")
	content := `[
		{"name": "left", "k": [1000,0,960,0,1000,540,0,0,1], "r": [1,0,0,0,1,0,0,0,1], "t": [0,0,0]},
		{"k": [1000,0,960,0,1000,540,0,0,1], "r": [0,0,1,0,1,0,-1,0,0], "t": [0,0,3]}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cams, err := LoadRig(path)
	require.NoError(t, err)
	require.Len(t, cams, 2)
	assert.Equal(t, "left", cams[0].Name)
	assert.Equal(t, "view_1", cams[1].Name, "unnamed cameras get positional names")
	assert.InDelta(t, 3.0, cams[1].T.AtVec(2), 1e-12)
}

func TestLoadRigErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadRig(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := LoadRig(path)
		assert.Error(t, err)
	})

	t.Run("empty rig", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
		_, err := LoadRig(path)
		assert.Error(t, err)
	})
}

func TestProjectionMatrixAgreesWithProject(t *testing.T) {
	t.Parallel()

	cam := New("cam0",
		[9]float64{700, 0, 300, 0, 700, 200, 0, 0, 1},
		[9]float64{0, -1, 0, 1, 0, 0, 0, 0, 1},
		[3]float64{0.2, -0.1, 1.5})

	proj := cam.Projection()
	x, y, z := 0.4, 0.7, 2.0
	hx := proj.At(0, 0)*x + proj.At(0, 1)*y + proj.At(0, 2)*z + proj.At(0, 3)
	hy := proj.At(1, 0)*x + proj.At(1, 1)*y + proj.At(1, 2)*z + proj.At(1, 3)
	hw := proj.At(2, 0)*x + proj.At(2, 1)*y + proj.At(2, 2)*z + proj.At(2, 3)

	u, v := cam.Project(x, y, z)
	if math.Abs(u-hx/hw) > 1e-9 || math.Abs(v-hy/hw) > 1e-9 {
		t.Errorf("Project = (%g, %g), matrix form = (%g, %g)", u, v, hx/hw, hy/hw)
	}
}
