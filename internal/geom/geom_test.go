package geom

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

var red = Color{1, 0, 0, 1}

func TestCircleN(t *testing.T) {
	tests := []struct {
		n      int
		radius float32
	}{
		{3, 1},
		{6, 0.02},
		{32, 0.5},
	}

	for _, tt := range tests {
		tmpl, err := CircleN(tt.n, tt.radius, red)
		if err != nil {
			t.Fatalf("CircleN(%d, %v): %v", tt.n, tt.radius, err)
		}
		if len(tmpl.Vertices) != tt.n {
			t.Fatalf("expected %d vertices, got %d", tt.n, len(tmpl.Vertices))
		}
		if tmpl.Vertices[0] != (mgl32.Vec2{0, tt.radius}) {
			t.Errorf("first vertex = %v, want (0, %v)", tmpl.Vertices[0], tt.radius)
		}
		step := 2 * math.Pi / float64(tt.n)
		for i, v := range tmpl.Vertices {
			if d := math.Abs(float64(v.Len() - tt.radius)); d > 1e-5*float64(tt.radius)*float64(tt.n) {
				t.Errorf("n=%d vertex %d off circle by %v", tt.n, i, d)
			}
			want := math.Pi/2 + float64(i)*step
			wx, wy := float64(tt.radius)*math.Cos(want), float64(tt.radius)*math.Sin(want)
			if math.Abs(float64(v[0])-wx) > 1e-4 || math.Abs(float64(v[1])-wy) > 1e-4 {
				t.Errorf("n=%d vertex %d = %v, want (%.5f, %.5f)", tt.n, i, v, wx, wy)
			}
		}
		if tmpl.Color != red {
			t.Errorf("color not carried over: %v", tmpl.Color)
		}
	}
}

func TestCircleDefault(t *testing.T) {
	tmpl, err := Circle(0.02, red)
	if err != nil {
		t.Fatal(err)
	}
	if len(tmpl.Vertices) != DefaultCircleVertices {
		t.Errorf("expected %d vertices, got %d", DefaultCircleVertices, len(tmpl.Vertices))
	}
	if r := tmpl.BoundingRadius(); math.Abs(float64(r-0.02)) > 1e-6 {
		t.Errorf("bounding radius = %v, want 0.02", r)
	}
}

func TestPolygonCopiesPoints(t *testing.T) {
	pts := []mgl32.Vec2{{1, 0}, {0, 1}, {-1, 0}}
	tmpl, err := Polygon(pts, red)
	if err != nil {
		t.Fatal(err)
	}
	pts[0] = mgl32.Vec2{9, 9}
	if tmpl.Vertices[0] != (mgl32.Vec2{1, 0}) {
		t.Error("Polygon aliases the caller's slice")
	}
	if tmpl.BoundingRadius() != 1 {
		t.Errorf("bounding radius = %v, want 1", tmpl.BoundingRadius())
	}
}

func TestRectangle(t *testing.T) {
	tmpl, err := Rectangle(4, 2, red)
	if err != nil {
		t.Fatal(err)
	}
	want := []mgl32.Vec2{{2, -1}, {-2, -1}, {-2, 1}, {2, 1}}
	for i := range want {
		if tmpl.Vertices[i] != want[i] {
			t.Errorf("corner %d = %v, want %v", i, tmpl.Vertices[i], want[i])
		}
	}
}

func TestInvalidGeometry(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name string
		fn   func() (*Template, error)
	}{
		{"zero radius", func() (*Template, error) { return Circle(0, red) }},
		{"negative radius", func() (*Template, error) { return Circle(-1, red) }},
		{"nan radius", func() (*Template, error) { return Circle(nan, red) }},
		{"inf radius", func() (*Template, error) { return Circle(inf, red) }},
		{"two vertices", func() (*Template, error) { return CircleN(2, 1, red) }},
		{"empty polygon", func() (*Template, error) { return Polygon(nil, red) }},
		{"collapsed polygon", func() (*Template, error) { return Polygon([]mgl32.Vec2{{0, 0}}, red) }},
		{"nan polygon", func() (*Template, error) { return Polygon([]mgl32.Vec2{{nan, 1}}, red) }},
		{"flat rectangle", func() (*Template, error) { return Rectangle(1, 0, red) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := tt.fn()
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Fatalf("expected ErrInvalidGeometry, got %v", err)
			}
			if tmpl != nil {
				t.Error("expected nil template on error")
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	tmpl, _ := Rectangle(2, 2, red)
	out := tmpl.Translate(nil, mgl32.Vec2{10, 20})
	if len(out) != 4 {
		t.Fatalf("expected 4 points, got %d", len(out))
	}
	if out[0] != (mgl32.Vec2{11, 19}) {
		t.Errorf("translated corner = %v", out[0])
	}
	if tmpl.Vertices[0] != (mgl32.Vec2{1, -1}) {
		t.Error("Translate mutated the template")
	}
}

func TestFanIndices(t *testing.T) {
	got := FanIndices(6)
	want := []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4, 0, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %d indices, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FanIndices(6) = %v, want %v", got, want)
		}
	}
	if FanIndices(2) != nil {
		t.Error("expected no triangles for 2 vertices")
	}
}

func TestColorRGBA(t *testing.T) {
	c := Color{1, 0.5, -1, 1.1}.RGBA()
	if c.R != 255 || c.G != 128 || c.B != 0 || c.A != 255 {
		t.Errorf("RGBA() = %v", c)
	}
}

func TestFromRGBARoundTrip(t *testing.T) {
	in := color.RGBA{R: 0, G: 128, B: 255, A: 255}
	if got := FromRGBA(in).RGBA(); got != in {
		t.Errorf("expected %v, got %v", in, got)
	}
}
