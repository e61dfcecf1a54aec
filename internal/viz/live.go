package viz

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/verlet/internal/config"
	"github.com/san-kum/verlet/internal/metrics"
	"github.com/san-kum/verlet/internal/physics"
	"github.com/san-kum/verlet/internal/render"
	"github.com/san-kum/verlet/internal/sim"
	"github.com/san-kum/verlet/internal/watch"
)

const (
	defaultRows      = 24
	minRows          = 6
	statsWidth       = 45
	historyCapacity  = 300
	boundarySegments = 64

	// canvasStyle padding, needed to map mouse cells onto the canvas
	padTop  = 1
	padLeft = 2
)

type TickMsg time.Time

// ConfigMsg carries a configuration reloaded from disk.
type ConfigMsg struct{ Config *config.Config }

// ConfigErrMsg reports a reload that failed.
type ConfigErrMsg struct{ Err error }

type Options struct {
	Config  *config.Config
	Name    string
	Logger  *log.Logger
	Watcher *watch.Watcher
}

// Model owns the world for the lifetime of the program. Every tick it
// steps the world once and redraws the canvas from the render buffers.
type Model struct {
	cfg     *config.Config
	name    string
	logger  *log.Logger
	watcher *watch.Watcher

	runner  *sim.Runner
	energy  *metrics.KineticEnergy
	buffers *render.Buffers
	canvas  *Canvas

	running  bool
	emitting bool
	spawning bool
	pointer  mgl32.Vec2

	last          time.Time
	frameTime     time.Duration
	energyHistory []float64
	status        string
	err           error
	showHelp      bool
}

func NewModel(opts Options) (Model, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	name := opts.Name
	if name == "" {
		name = "verlet"
	}

	m := Model{
		cfg:     cfg,
		name:    name,
		logger:  logger,
		watcher: opts.Watcher,
		canvas:  NewCanvas(defaultRows*2, defaultRows),
		running: true,
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitForConfig())
}

func (m Model) waitForConfig() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	w := m.watcher
	return func() tea.Msg {
		select {
		case cfg, ok := <-w.Events:
			if !ok {
				return nil
			}
			return ConfigMsg{Config: cfg}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return ConfigErrMsg{Err: err}
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
			m.last = time.Time{}
		case "r":
			if err := m.reset(); err != nil {
				m.fail(err)
			}
		case "f":
			m.fill()
		case "e":
			m.toggleEmitter()
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.MouseMsg:
		m.mouse(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case ConfigMsg:
		if err := m.resetTo(msg.Config); err != nil {
			m.fail(err)
		} else {
			m.status = "config reloaded"
			m.logger.Info("config reloaded")
		}
		return m, m.waitForConfig()
	case ConfigErrMsg:
		m.status = "reload failed: " + msg.Err.Error()
		m.logger.Warn("config reload failed", "err", msg.Err)
		return m, m.waitForConfig()
	case TickMsg:
		now := time.Time(msg)
		if m.running {
			m.step(now)
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

// step advances one frame using the wall time since the previous tick.
func (m *Model) step(now time.Time) {
	dt := m.cfg.Run.Dt
	if !m.last.IsZero() {
		dt = now.Sub(m.last).Seconds()
	}
	m.last = now
	if dt <= 0 {
		return
	}

	if m.spawning {
		m.world().Spawn(m.pointer)
	}

	start := time.Now()
	if err := m.runner.Frame(dt); err != nil {
		m.fail(err)
		return
	}
	m.frameTime = time.Since(start)

	m.energyHistory = append(m.energyHistory, m.energy.Value())
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}
}

func (m *Model) fail(err error) {
	m.err = err
	m.running = false
	m.logger.Error("simulation stopped", "err", err)
}

func (m *Model) world() *physics.World { return m.runner.World() }

// reset rebuilds the world from the current configuration.
func (m *Model) reset() error { return m.resetTo(m.cfg) }

// resetTo rebuilds from cfg and adopts cfg only on success. After a failed
// reload the r key still rebuilds the previous config.
func (m *Model) resetTo(cfg *config.Config) error {
	w, err := cfg.BuildWorld()
	if err != nil {
		return err
	}
	w.EnableTimings(true)

	simCfg := cfg.SimConfig()
	r, err := sim.New(w, simCfg, m.logger)
	if err != nil {
		return err
	}
	energy := metrics.NewKineticEnergy(simCfg.StepDt())

	e := cfg.EmitterSpec()
	if e != nil {
		if err := r.SetEmitter(e); err != nil {
			return err
		}
	}

	m.cfg = cfg
	m.emitting = e != nil
	m.energy = energy
	r.AddMetric(energy)
	m.runner = r
	m.buffers = &render.Buffers{}
	m.energyHistory = m.energyHistory[:0]
	m.last = time.Time{}
	m.err = nil
	m.status = ""
	return nil
}

func (m *Model) fill() {
	f := m.cfg.Fill
	if f.Cols == 0 || f.Rows == 0 {
		f = config.FillConfig{Cols: 10, Rows: 10, Origin: [2]float32{-0.18, 0.6}}
	}
	n := m.world().Fill(f.Cols, f.Rows, mgl32.Vec2(f.Origin), f.Angle)
	m.status = fmt.Sprintf("filled %d bodies", n)
}

func (m *Model) toggleEmitter() {
	if m.emitting {
		_ = m.runner.SetEmitter(nil)
		m.emitting = false
		return
	}
	e := m.cfg.EmitterSpec()
	if e == nil {
		def := config.DefaultConfig()
		def.Emitter.Enabled = true
		e = def.EmitterSpec()
	}
	if err := m.runner.SetEmitter(e); err != nil {
		m.status = err.Error()
		return
	}
	m.emitting = true
}

// mouse tracks the pointer in world coordinates; holding the left button
// spawns a body there every frame.
func (m *Model) mouse(msg tea.MouseMsg) {
	x := (msg.X-padLeft)*2 + 1
	y := (msg.Y-padTop)*4 + 2
	inside := x >= 0 && y >= 0 && x < m.canvas.Width*2 && y < m.canvas.Height*4

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && inside {
			m.spawning = true
		}
	case tea.MouseActionRelease:
		m.spawning = false
	}
	if inside {
		m.pointer = m.canvas.Viewport().ToWorld(float32(x), float32(y))
	} else {
		m.spawning = false
	}
}

// resize keeps the canvas square in dots: two cells wide per row.
func (m *Model) resize(w, h int) {
	rows := h - 2*padTop
	cols := 2 * rows
	if avail := w - 2*padLeft - statsWidth - 3; cols > avail {
		cols = avail
		rows = cols / 2
	}
	if rows < minRows {
		rows = minRows
		cols = 2 * rows
	}
	m.canvas.Resize(cols, rows)
}

func (m *Model) draw() {
	m.canvas.Clear()
	center, radius := m.world().Boundary()
	m.canvas.DrawCircle(center, radius, boundarySegments, CurrentTheme.Boundary)
	m.buffers.Sync(m.world())
	m.canvas.DrawBuffers(m.buffers)
}

func (m Model) View() string {
	w := m.world()
	stats := w.Stats()

	var s strings.Builder
	s.WriteString(headerStyle().Render(strings.ToUpper(m.name)) + "\n")

	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	if m.emitting {
		status += " · EMITTING"
	}
	s.WriteString(statusStyle(m.running).Render(status) + "\n\n")

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.runner.Time()))
	row("Bodies", fmt.Sprintf("%d", w.Len()))
	row("Contacts", fmt.Sprintf("%d", stats.Contacts))
	row("Overlap", fmt.Sprintf("%.4f", stats.MaxOverlap))
	row("Step", fmt.Sprintf("%v", w.Timings().Total().Round(time.Microsecond)))
	row("Frame", fmt.Sprintf("%v", m.frameTime.Round(time.Microsecond)))
	row("Clamped", fmt.Sprintf("%d", m.runner.ClampedFrames()))

	capacity := w.Params().Capacity
	if capacity > 0 {
		ratio := float64(w.Len()) / float64(capacity)
		s.WriteString(labelStyle.Render("Capacity") + ProgressBar(ratio, 20) + "\n")
	}

	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	} else if m.status != "" {
		s.WriteString("\n" + valueStyle.Render(m.status) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nF:Fill E:Emitter T:Theme\nMouse: hold to spawn  ?:Help"))

	canvasView := canvasStyle.Render(m.canvas.Render())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Rebuild from config      ║
║  F        - Spawn the fill lattice   ║
║  E        - Toggle the emitter       ║
║  T        - Cycle themes             ║
║  Mouse    - Hold left button to spawn║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// Run starts the live view on the alternate screen with mouse tracking.
func Run(opts Options) error {
	m, err := NewModel(opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}
