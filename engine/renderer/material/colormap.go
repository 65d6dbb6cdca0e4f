package material

import (
	"fmt"
	"strings"
)

// ColorLookup maps a normalized field value in [0, 1] to an RGB color. The
// same control points drive both the CPU evaluation and the generated WGSL,
// so headless output and the fragment shader agree.
type ColorLookup interface {
	// Name returns the colormap's registry name.
	//
	// Returns:
	//   - string: the colormap name
	Name() string

	// At evaluates the colormap at a normalized position. Inputs outside
	// [0, 1] are clamped.
	//
	// Parameters:
	//   - t: the normalized field value
	//
	// Returns:
	//   - [3]float32: the RGB color
	At(t float32) [3]float32

	// WGSL returns a WGSL function `fn colormap(t: f32) -> vec3<f32>`
	// evaluating the same lookup.
	//
	// Returns:
	//   - string: the WGSL source
	WGSL() string
}

// stopColormap interpolates linearly between evenly spaced RGB stops.
type stopColormap struct {
	name  string
	stops [][3]float32
}

var _ ColorLookup = stopColormap{}

func (c stopColormap) Name() string {
	return c.name
}

func (c stopColormap) At(t float32) [3]float32 {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	n := len(c.stops)
	pos := t * float32(n-1)
	lo := int(pos)
	if lo >= n-1 {
		return c.stops[n-1]
	}
	frac := pos - float32(lo)
	a, b := c.stops[lo], c.stops[lo+1]
	return [3]float32{
		a[0] + (b[0]-a[0])*frac,
		a[1] + (b[1]-a[1])*frac,
		a[2] + (b[2]-a[2])*frac,
	}
}

func (c stopColormap) WGSL() string {
	var sb strings.Builder
	n := len(c.stops)
	fmt.Fprintf(&sb, "const COLORMAP_STOPS = array<vec3<f32>, %d>(\n", n)
	for _, s := range c.stops {
		fmt.Fprintf(&sb, "    vec3<f32>(%g, %g, %g),\n", s[0], s[1], s[2])
	}
	sb.WriteString(");\n\n")
	fmt.Fprintf(&sb, `fn colormap(t: f32) -> vec3<f32> {
    let clamped = clamp(t, 0.0, 1.0);
    let pos = clamped * %d.0;
    let lo = min(u32(pos), %du);
    let hi = min(lo + 1u, %du);
    return mix(COLORMAP_STOPS[lo], COLORMAP_STOPS[hi], pos - f32(lo));
}
`, n-1, n-2, n-1)
	return sb.String()
}

// Colormaps returns the built-in colormaps keyed by name.
//
// Returns:
//   - map[string]ColorLookup: the built-in colormap set
func Colormaps() map[string]ColorLookup {
	maps := []ColorLookup{
		Viridis(), Plasma(), Inferno(), Coolwarm(), Greys(),
	}
	out := make(map[string]ColorLookup, len(maps))
	for _, c := range maps {
		out[c.Name()] = c
	}
	return out
}

// Viridis returns the perceptually uniform default colormap.
//
// Returns:
//   - ColorLookup: the viridis colormap
func Viridis() ColorLookup {
	return stopColormap{name: "viridis", stops: [][3]float32{
		{0.267, 0.005, 0.329},
		{0.275, 0.194, 0.496},
		{0.213, 0.359, 0.552},
		{0.153, 0.497, 0.558},
		{0.122, 0.633, 0.530},
		{0.288, 0.758, 0.428},
		{0.622, 0.854, 0.226},
		{0.993, 0.906, 0.144},
	}}
}

// Plasma returns the plasma colormap.
//
// Returns:
//   - ColorLookup: the plasma colormap
func Plasma() ColorLookup {
	return stopColormap{name: "plasma", stops: [][3]float32{
		{0.050, 0.030, 0.528},
		{0.294, 0.012, 0.631},
		{0.490, 0.012, 0.658},
		{0.658, 0.134, 0.588},
		{0.798, 0.280, 0.470},
		{0.902, 0.425, 0.360},
		{0.973, 0.585, 0.252},
		{0.940, 0.975, 0.131},
	}}
}

// Inferno returns the inferno colormap.
//
// Returns:
//   - ColorLookup: the inferno colormap
func Inferno() ColorLookup {
	return stopColormap{name: "inferno", stops: [][3]float32{
		{0.001, 0.000, 0.014},
		{0.163, 0.044, 0.361},
		{0.397, 0.083, 0.433},
		{0.624, 0.164, 0.388},
		{0.832, 0.283, 0.259},
		{0.961, 0.490, 0.084},
		{0.981, 0.755, 0.153},
		{0.988, 0.998, 0.645},
	}}
}

// Coolwarm returns the diverging blue-to-red colormap, suited to signed
// fields shown with a symmetric range.
//
// Returns:
//   - ColorLookup: the coolwarm colormap
func Coolwarm() ColorLookup {
	return stopColormap{name: "coolwarm", stops: [][3]float32{
		{0.230, 0.299, 0.754},
		{0.406, 0.537, 0.934},
		{0.602, 0.731, 0.999},
		{0.788, 0.845, 0.939},
		{0.930, 0.820, 0.761},
		{0.967, 0.657, 0.537},
		{0.887, 0.413, 0.324},
		{0.706, 0.016, 0.150},
	}}
}

// Greys returns the linear black-to-white colormap.
//
// Returns:
//   - ColorLookup: the greys colormap
func Greys() ColorLookup {
	stops := make([][3]float32, 8)
	for i := range stops {
		v := float32(i) / 7
		stops[i] = [3]float32{v, v, v}
	}
	return stopColormap{name: "greys", stops: stops}
}
