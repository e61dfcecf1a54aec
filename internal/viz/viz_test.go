package viz

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/verlet/internal/config"
	"github.com/san-kum/verlet/internal/geom"
	"github.com/san-kum/verlet/internal/physics"
	"github.com/san-kum/verlet/internal/render"
)

var red = geom.Color{1, 0, 0, 1}

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(4, 2)

	c.Set(0, 0, red)
	c.Set(3, 7, red)
	c.Set(-1, 0, red)
	c.Set(100, 100, red)

	if c.Grid[0][0] != blank|0x1 {
		t.Errorf("cell (0,0) = %U", c.Grid[0][0])
	}
	if c.Grid[1][1] != blank|0x80 {
		t.Errorf("cell (1,1) = %U", c.Grid[1][1])
	}
	if !c.Lit(0, 0) || c.Lit(1, 0) {
		t.Error("Lit disagrees with Set")
	}
	if c.Colors[0][0] != red {
		t.Error("cell color not recorded")
	}

	c.Clear()
	if c.Lit(0, 0) || c.Colors[0][0] != (geom.Color{}) {
		t.Error("Clear left dots behind")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 19, 0, red)
	for x := 0; x < 20; x++ {
		if !c.Lit(x, 0) {
			t.Fatalf("dot %d not lit", x)
		}
	}
	if c.Lit(0, 1) {
		t.Error("line bled into the next row")
	}
}

func TestFillTriangle(t *testing.T) {
	c := NewCanvas(10, 5)
	c.FillTriangle(mgl32.Vec2{0, 0}, mgl32.Vec2{10, 0}, mgl32.Vec2{0, 10}, red)

	if !c.Lit(1, 1) {
		t.Error("interior dot not lit")
	}
	if c.Lit(9, 9) {
		t.Error("dot beyond the hypotenuse lit")
	}

	// clockwise winding fills the same dots
	d := NewCanvas(10, 5)
	d.FillTriangle(mgl32.Vec2{0, 0}, mgl32.Vec2{0, 10}, mgl32.Vec2{10, 0}, red)
	if c.String() != d.String() {
		t.Error("winding changed the fill")
	}

	// sub-dot triangles still leave a mark
	e := NewCanvas(10, 5)
	e.FillTriangle(mgl32.Vec2{4.1, 4.1}, mgl32.Vec2{4.3, 4.1}, mgl32.Vec2{4.1, 4.3}, red)
	if !e.Lit(4, 4) {
		t.Error("tiny triangle vanished")
	}
}

func TestDrawBuffers(t *testing.T) {
	w, err := physics.New(physics.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	w.Spawn(mgl32.Vec2{0, 0})

	var b render.Buffers
	b.Sync(w)

	c := NewCanvas(48, 24)
	c.DrawBuffers(&b)

	// the world origin is the center dot of a 96x96 canvas
	if !c.Lit(48, 48) && !c.Lit(47, 47) {
		t.Error("body at the origin not drawn")
	}
	if c.Lit(0, 0) {
		t.Error("corner lit")
	}
}

func TestCanvasRenderPlain(t *testing.T) {
	c := NewCanvas(3, 1)
	c.Set(0, 0, red)
	// without a color profile Render degrades to the plain grid
	plain := c.String()
	if got := c.Render(); !strings.Contains(got, string(c.Grid[0][1:])) {
		t.Errorf("render lost cells: %q vs %q", got, plain)
	}
}

func newModel(t *testing.T) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Fill = config.FillConfig{}
	m, err := NewModel(Options{Config: cfg, Name: "test"})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelTickAdvances(t *testing.T) {
	m := newModel(t)
	m.world().Spawn(mgl32.Vec2{0, 0.5})

	now := time.Now()
	m = update(t, m, TickMsg(now))
	m = update(t, m, TickMsg(now.Add(time.Second/60)))

	if m.runner.FrameCount() != 2 {
		t.Errorf("expected 2 frames, got %d", m.runner.FrameCount())
	}
	if m.world().Body(0).Position[1] >= 0.5 {
		t.Error("body did not fall")
	}
	if m.buffers.Rebuilds() != 1 {
		t.Errorf("expected a single buffer rebuild, got %d", m.buffers.Rebuilds())
	}
}

func TestModelPause(t *testing.T) {
	m := newModel(t)
	m = update(t, m, key(" "))
	if m.running {
		t.Fatal("space should pause")
	}
	m = update(t, m, TickMsg(time.Now()))
	if m.runner.FrameCount() != 0 {
		t.Error("paused model advanced")
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view does not show the paused state")
	}
}

func TestModelMouseSpawns(t *testing.T) {
	m := newModel(t)

	press := tea.MouseMsg{X: padLeft + 24, Y: padTop + 12, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	m = update(t, m, press)
	if !m.spawning {
		t.Fatal("left press over the canvas should spawn")
	}
	want := mgl32.Vec2{49.0/96*2 - 1, -(50.0/96*2 - 1)}
	if !m.pointer.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("pointer %v, want %v", m.pointer, want)
	}

	m = update(t, m, TickMsg(time.Now()))
	if m.world().Len() != 1 {
		t.Fatalf("expected 1 body, got %d", m.world().Len())
	}

	release := tea.MouseMsg{X: padLeft + 24, Y: padTop + 12, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft}
	m = update(t, m, release)
	m = update(t, m, TickMsg(time.Now().Add(time.Second/60)))
	if m.world().Len() != 1 {
		t.Errorf("release should stop spawning, got %d bodies", m.world().Len())
	}
}

func TestModelFillAndEmitter(t *testing.T) {
	m := newModel(t)
	m = update(t, m, key("f"))
	if m.world().Len() != 100 {
		t.Errorf("expected 100 bodies after fill, got %d", m.world().Len())
	}

	m = update(t, m, key("e"))
	if !m.emitting {
		t.Fatal("e should start the emitter")
	}
	m = update(t, m, TickMsg(time.Now()))
	if m.world().Len() != 101 {
		t.Errorf("expected the emitter to add a body, got %d", m.world().Len())
	}

	m = update(t, m, key("r"))
	if m.world().Len() != 0 || m.emitting {
		t.Error("reset should rebuild the configured world")
	}
}

func TestModelConfigReload(t *testing.T) {
	m := newModel(t)

	cfg := config.DefaultConfig()
	cfg.Fill = config.FillConfig{Cols: 2, Rows: 2}
	m = update(t, m, ConfigMsg{Config: cfg})
	if m.world().Len() != 4 {
		t.Errorf("expected 4 bodies after reload, got %d", m.world().Len())
	}

	m = update(t, m, ConfigErrMsg{Err: errors.New("boom")})
	if !strings.Contains(m.status, "boom") {
		t.Errorf("status %q does not report the error", m.status)
	}
	if m.world().Len() != 4 {
		t.Error("failed reload replaced the world")
	}
}

func TestModelResize(t *testing.T) {
	m := newModel(t)
	m = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 40})
	if m.canvas.Height != 38 || m.canvas.Width != 76 {
		t.Errorf("canvas %dx%d", m.canvas.Width, m.canvas.Height)
	}

	m = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 5})
	if m.canvas.Height != minRows {
		t.Errorf("expected minimum rows, got %d", m.canvas.Height)
	}
}

func TestNextTheme(t *testing.T) {
	defer SetTheme(ThemeCyberpunk.Name)
	SetTheme("retro")
	NextTheme()
	if CurrentTheme.Name != "minimal" {
		t.Errorf("expected minimal, got %s", CurrentTheme.Name)
	}
	NextTheme()
	if CurrentTheme.Name != "cyberpunk" {
		t.Errorf("expected wrap to cyberpunk, got %s", CurrentTheme.Name)
	}
}

func TestModelFailedReloadKeepsConfig(t *testing.T) {
	m := newModel(t)
	prev := m.cfg

	bad := config.DefaultConfig()
	bad.World.Radius = 0
	m = update(t, m, ConfigMsg{Config: bad})
	if m.err == nil {
		t.Fatal("expected the reload to fail")
	}
	if m.cfg != prev {
		t.Error("failed reload replaced the config")
	}

	m = update(t, m, key("r"))
	if m.err != nil {
		t.Errorf("reset after a failed reload: %v", m.err)
	}
	if m.cfg != prev {
		t.Error("reset picked up the rejected config")
	}
}
