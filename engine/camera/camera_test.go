package camera

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestTargetProjectsToScreenCenter(t *testing.T) {
	c := NewCamera(WithTarget(0.5, -0.25, 1.0), WithDistance(2))

	vp := c.ViewProjectionMatrix()
	// Column-major multiply of the homogeneous target point.
	tx, ty, tz := c.Target()
	var clip [4]float32
	for row := range 4 {
		clip[row] = vp[row]*tx + vp[4+row]*ty + vp[8+row]*tz + vp[12+row]
	}

	if clip[3] == 0 {
		t.Fatal("target projected to w == 0")
	}
	x := clip[0] / clip[3]
	y := clip[1] / clip[3]
	if math32.Abs(x) > 1e-5 || math32.Abs(y) > 1e-5 {
		t.Errorf("target projected to (%v, %v), want screen center", x, y)
	}
}

func TestDollyClampsToLimits(t *testing.T) {
	c := NewCamera(WithDistance(1), WithDistanceLimits(0.5, 4))

	c.Dolly(100)
	if got := c.Distance(); got != 4 {
		t.Errorf("distance after dolly out = %v, want 4", got)
	}

	c.Dolly(0.0001)
	if got := c.Distance(); got != 0.5 {
		t.Errorf("distance after dolly in = %v, want 0.5", got)
	}

	c.Dolly(-1)
	if got := c.Distance(); got != 0.5 {
		t.Errorf("distance after invalid dolly = %v, want unchanged 0.5", got)
	}
}

func TestOrbitClampsElevation(t *testing.T) {
	c := NewCamera()

	c.Orbit(0, 10)
	_, y1, _ := c.Position()

	c.Orbit(0, 10)
	_, y2, _ := c.Position()

	if math32.Abs(y1-y2) > 1e-6 {
		t.Errorf("elevation kept climbing past the pole: y %v then %v", y1, y2)
	}
}

func TestFrameCoversBoundingRadius(t *testing.T) {
	c := NewCamera(WithClipPlanes(0.1, 10))

	c.Frame(100)
	if d := c.Distance(); d <= 100 {
		t.Errorf("framed distance %v does not clear radius 100", d)
	}

	// The far plane must have widened to keep the sphere visible.
	x, y, z := c.Position()
	eyeDist := math32.Sqrt(x*x + y*y + z*z)
	if eyeDist+100 > c.Distance()+200+1e-3 {
		t.Errorf("far side of sphere at %v beyond adjusted far plane", eyeDist+100)
	}
}

func TestUniformMatchesPosition(t *testing.T) {
	c := NewCamera(WithTarget(1, 2, 3), WithDistance(5))

	u := c.Uniform()
	px, py, pz := c.Position()

	if u.Eye[0] != px || u.Eye[1] != py || u.Eye[2] != pz {
		t.Errorf("uniform eye %v, want (%v, %v, %v)", u.Eye, px, py, pz)
	}
	if u.ViewProj != c.ViewProjectionMatrix() {
		t.Error("uniform view-projection does not match camera matrix")
	}
	if u.Size() != 80 {
		t.Errorf("uniform size = %d, want 80", u.Size())
	}
	if got := len(u.Marshal()); got != 80 {
		t.Errorf("marshalled size = %d, want 80", got)
	}
}
