package physics_test

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/verlet/internal/geom"
	"github.com/san-kum/verlet/internal/physics"
)

const dt = float32(1.0 / 60)

func newWorld(tweak func(p *physics.Params)) *physics.World {
	p := physics.DefaultParams()
	if tweak != nil {
		tweak(&p)
	}
	w, err := physics.New(p)
	Expect(err).NotTo(HaveOccurred())
	return w
}

func zeroGravity(p *physics.Params) { p.Gravity = mgl32.Vec2{} }

func distance(a, b mgl32.Vec2) float64 {
	return float64(a.Sub(b).Len())
}

func stepN(w *physics.World, n int) {
	for i := 0; i < n; i++ {
		Expect(w.Step(dt)).To(Succeed())
	}
}

var _ = Describe("World", func() {
	Describe("integration", func() {
		It("keeps a body at rest without acceleration", func() {
			w := newWorld(zeroGravity)
			start := mgl32.Vec2{0.1, -0.2}
			w.Spawn(start)

			stepN(w, 500)

			Expect(w.Body(0).Position).To(Equal(start))
			Expect(w.Body(0).Velocity()).To(Equal(mgl32.Vec2{}))
		})

		It("follows the discrete Verlet trajectory under constant gravity", func() {
			w := newWorld(func(p *physics.Params) { p.BoundaryRadius = 100 })
			start := mgl32.Vec2{0, 0}
			w.Spawn(start)
			g := float64(w.Gravity()[1])
			h := float64(dt)

			for k := 1; k <= 90; k++ {
				Expect(w.Step(dt)).To(Succeed())
				want := g * h * h * float64(k*(k+1)) / 2
				got := float64(w.Body(0).Position[1] - start[1])
				Expect(got).To(BeNumerically("~", want, 2e-5), "after %d steps", k)
				Expect(w.Body(0).Position[0]).To(BeZero())
			}
		})

		It("clears the acceleration accumulator after each step", func() {
			w := newWorld(nil)
			w.Spawn(mgl32.Vec2{})
			stepN(w, 3)
			Expect(w.Body(0).Acceleration).To(Equal(mgl32.Vec2{}))
		})

		It("rejects invalid timesteps without mutating state", func() {
			w := newWorld(nil)
			w.Spawn(mgl32.Vec2{0.3, 0.3})
			stepN(w, 5)
			before := w.Body(0)

			for _, bad := range []float32{0, -dt, float32(math.NaN()), float32(math.Inf(1))} {
				Expect(w.Step(bad)).To(MatchError(physics.ErrInvalidTimestep))
				Expect(w.Body(0)).To(Equal(before))
			}
		})
	})

	Describe("boundary", func() {
		It("keeps every body inside the circle after every step", func() {
			w := newWorld(nil)
			center, radius := w.Boundary()
			rng := rand.New(rand.NewSource(11))
			for i := 0; i < 600; i++ {
				a := rng.Float64() * 2 * math.Pi
				r := 0.85 * math.Sqrt(rng.Float64())
				w.Spawn(mgl32.Vec2{float32(r * math.Cos(a)), float32(r * math.Sin(a))})
			}

			for s := 0; s < 240; s++ {
				Expect(w.Step(dt)).To(Succeed())
				for i := 0; i < w.Len(); i++ {
					Expect(distance(w.Body(i).Position, center)).To(BeNumerically("<=", float64(radius)+1e-5))
				}
			}
		})

		It("projects a falling body onto the boundary and holds it there", func() {
			w := newWorld(func(p *physics.Params) { p.BoundaryRadius = 0.9 })
			w.Spawn(mgl32.Vec2{0, 0.85})

			// 120 steps of 1/60 s fall about 1.0 units, still short of the floor.
			stepN(w, 120)
			fall := 0.5 * float64(dt*dt) * 120 * 121 / 2
			Expect(float64(w.Body(0).Position[1])).To(BeNumerically("~", 0.85-fall, 1e-4))

			stepN(w, 120)
			Expect(distance(w.Body(0).Position, mgl32.Vec2{})).To(BeNumerically("~", 0.9, 1e-5))
			Expect(w.Body(0).Position[0]).To(BeZero())
			Expect(w.Body(0).Position[1]).To(BeNumerically("<", 0))
			Expect(w.Stats().Projections).To(BeNumerically(">=", 1))
		})

		It("treats a body exactly at the center as inside", func() {
			w := newWorld(zeroGravity)
			w.Spawn(mgl32.Vec2{})
			stepN(w, 2)
			Expect(w.Body(0).Position).To(Equal(mgl32.Vec2{}))
			Expect(w.Stats().Projections).To(BeZero())
		})
	})

	Describe("collisions", func() {
		It("separates an overlapping pair until they no longer penetrate", func() {
			w := newWorld(zeroGravity)
			w.Spawn(mgl32.Vec2{-0.005, 0})
			w.Spawn(mgl32.Vec2{0.005, 0})
			sum := float64(w.Body(0).Radius + w.Body(1).Radius)

			for s := 0; s < 60; s++ {
				Expect(w.Step(dt)).To(Succeed())
				Expect(distance(w.Body(0).Position, w.Body(1).Position)).To(BeNumerically(">=", sum-1e-5))
			}
		})

		It("splits coincident bodies along the x axis", func() {
			w := newWorld(zeroGravity)
			w.Spawn(mgl32.Vec2{})
			w.Spawn(mgl32.Vec2{})

			Expect(w.Step(dt)).To(Succeed())

			a, b := w.Body(0).Position, w.Body(1).Position
			Expect(a[0]).To(BeNumerically(">", 0))
			Expect(b[0]).To(BeNumerically("<", 0))
			Expect(a[1]).To(BeZero())
			Expect(b[1]).To(BeZero())
			Expect(a[0]).To(BeNumerically("~", -b[0], 1e-7))
			Expect(w.Stats().Degenerate).To(Equal(1))
			Expect(distance(a, b)).To(BeNumerically("~", 0.04, 1e-6))
		})

		It("does not favor spawn order", func() {
			left, right := mgl32.Vec2{-0.01, 0.003}, mgl32.Vec2{0.012, -0.004}

			forward := newWorld(zeroGravity)
			forward.Spawn(left)
			forward.Spawn(right)

			reverse := newWorld(zeroGravity)
			reverse.Spawn(right)
			reverse.Spawn(left)

			stepN(forward, 20)
			stepN(reverse, 20)

			Expect(forward.Body(0).Position).To(Equal(reverse.Body(1).Position))
			Expect(forward.Body(1).Position).To(Equal(reverse.Body(0).Position))
		})

		It("finds the same overlapping pairs as a brute-force scan", func() {
			w := newWorld(zeroGravity)
			rng := rand.New(rand.NewSource(5))
			for i := 0; i < 1500; i++ {
				w.Spawn(mgl32.Vec2{rng.Float32()*1.8 - 0.9, rng.Float32()*1.8 - 0.9})
			}

			type pair struct{ i, j int }
			want := map[pair]bool{}
			for i := 0; i < w.Len(); i++ {
				for j := i + 1; j < w.Len(); j++ {
					a, b := w.Body(i), w.Body(j)
					if a.Overlaps(b) {
						want[pair{i, j}] = true
					}
				}
			}

			got := map[pair]bool{}
			w.Contacts(func(i, j int, overlap float32) {
				Expect(i).To(BeNumerically("<", j))
				Expect(overlap).To(BeNumerically(">", 0))
				got[pair{i, j}] = true
			})

			Expect(want).NotTo(BeEmpty())
			Expect(got).To(Equal(want))
		})

		It("collides tiny bodies in a large arena", func() {
			w := newWorld(func(p *physics.Params) {
				p.Gravity = mgl32.Vec2{}
				p.BoundaryRadius = 10
				p.BodyRadius = 0.0002
				p.CircleVertices = 3
				p.Capacity = 0
			})
			w.Spawn(mgl32.Vec2{1, 1})
			w.Spawn(mgl32.Vec2{1.0003, 1})

			pairs := 0
			w.Contacts(func(i, j int, overlap float32) { pairs++ })
			Expect(pairs).To(Equal(1))

			Expect(w.Step(dt)).To(Succeed())
			Expect(distance(w.Body(0).Position, w.Body(1).Position)).To(BeNumerically(">=", 0.0004-1e-6))
		})

		It("uses the largest registered radius for the grid", func() {
			w := newWorld(zeroGravity)
			big, err := geom.Circle(0.1, geom.Color{0, 1, 0, 1})
			Expect(err).NotTo(HaveOccurred())
			id, err := w.AddShape(big)
			Expect(err).NotTo(HaveOccurred())

			_, err = w.SpawnShape(mgl32.Vec2{0, 0}, id)
			Expect(err).NotTo(HaveOccurred())
			_, err = w.SpawnShape(mgl32.Vec2{0.15, 0}, id)
			Expect(err).NotTo(HaveOccurred())

			pairs := 0
			w.Contacts(func(i, j int, overlap float32) { pairs++ })
			Expect(pairs).To(Equal(1))

			Expect(w.Step(dt)).To(Succeed())
			Expect(distance(w.Body(0).Position, w.Body(1).Position)).To(BeNumerically(">=", 0.2-1e-5))
		})
	})

	Describe("spawning and snapshots", func() {
		It("lists bodies in insertion order", func() {
			w := newWorld(nil)
			b1, b2 := mgl32.Vec2{0.5, 0.1}, mgl32.Vec2{-0.3, 0.2}
			w.Spawn(b1)
			w.Spawn(b2)

			snap := w.Snapshot()
			Expect(snap).To(HaveLen(2))
			tmpl, err := w.Shape(physics.DefaultShape)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap[0].Vertices[0]).To(Equal(tmpl.Vertices[0].Add(b1)))
			Expect(snap[1].Vertices[0]).To(Equal(tmpl.Vertices[0].Add(b2)))
			Expect(snap[0].Color).To(Equal(tmpl.Color))
		})

		It("has no side effects", func() {
			w := newWorld(nil)
			w.Spawn(mgl32.Vec2{0, 0.5})
			stepN(w, 4)
			gen, body := w.Generation(), w.Body(0)

			first := w.Snapshot()
			second := w.Snapshot()

			Expect(first).To(Equal(second))
			Expect(w.Generation()).To(Equal(gen))
			Expect(w.Body(0)).To(Equal(body))
		})

		It("bumps the generation on spawn but not on step", func() {
			w := newWorld(nil)
			g0 := w.Generation()
			w.Spawn(mgl32.Vec2{})
			Expect(w.Generation()).To(Equal(g0 + 1))
			stepN(w, 3)
			Expect(w.Generation()).To(Equal(g0 + 1))
		})

		It("spawns bodies at rest", func() {
			w := newWorld(nil)
			i := w.Spawn(mgl32.Vec2{0.2, 0.2})
			b := w.Body(i)
			Expect(b.Previous).To(Equal(b.Position))
			Expect(b.Radius).To(BeNumerically("~", 0.02, 1e-6))
		})

		It("rejects unknown shapes", func() {
			w := newWorld(nil)
			_, err := w.SpawnShape(mgl32.Vec2{}, physics.ShapeID(7))
			Expect(err).To(MatchError(physics.ErrUnknownShape))
			Expect(w.Len()).To(BeZero())
		})

		It("gives polygon bodies their bounding radius", func() {
			w := newWorld(nil)
			rect, err := geom.Rectangle(0.06, 0.08, geom.Color{0, 0, 1, 1})
			Expect(err).NotTo(HaveOccurred())
			id, err := w.AddShape(rect)
			Expect(err).NotTo(HaveOccurred())
			i, err := w.SpawnShape(mgl32.Vec2{}, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(w.Body(i).Radius).To(BeNumerically("~", 0.05, 1e-6))
			Expect(w.Snapshot()[i].Vertices).To(HaveLen(4))
		})

		It("rejects non-finite positions", func() {
			w := newWorld(nil)
			nan, inf := float32(math.NaN()), float32(math.Inf(1))

			_, err := w.SpawnShape(mgl32.Vec2{nan, 0}, physics.DefaultShape)
			Expect(err).To(MatchError(physics.ErrInvalidPosition))
			Expect(w.Spawn(mgl32.Vec2{0, inf})).To(Equal(-1))
			Expect(w.Fill(3, 3, mgl32.Vec2{nan, 0}, 0)).To(BeZero())
			Expect(w.Len()).To(BeZero())
		})

		It("fills a lattice one diameter apart", func() {
			w := newWorld(nil)
			n := w.Fill(4, 3, mgl32.Vec2{-0.2, 0.4}, 0)
			Expect(n).To(Equal(12))
			Expect(w.Len()).To(Equal(12))
			Expect(w.Body(0).Position).To(Equal(mgl32.Vec2{-0.2, 0.4}))
			Expect(distance(w.Body(0).Position, w.Body(1).Position)).To(BeNumerically("~", 0.04, 1e-6))
			Expect(float64(w.Body(4).Position[1])).To(BeNumerically("~", 0.36, 1e-6))
		})
	})

	Describe("construction", func() {
		It("rejects a degenerate boundary", func() {
			p := physics.DefaultParams()
			p.BoundaryRadius = 0
			_, err := physics.New(p)
			Expect(err).To(MatchError(physics.ErrInvalidWorld))
		})

		It("rejects a degenerate default body", func() {
			p := physics.DefaultParams()
			p.BodyRadius = -1
			_, err := physics.New(p)
			Expect(err).To(MatchError(geom.ErrInvalidGeometry))
		})

		It("runs at least one collision pass", func() {
			w := newWorld(func(p *physics.Params) { p.Iterations = 0 })
			Expect(w.Params().Iterations).To(Equal(1))
		})
	})

	Describe("timings", func() {
		It("reports phase durations only when enabled", func() {
			w := newWorld(nil)
			w.Fill(60, 60, mgl32.Vec2{-0.6, 0.6}, 0)
			stepN(w, 1)
			Expect(w.Timings().Total()).To(BeZero())

			w.EnableTimings(true)
			stepN(w, 1)
			Expect(w.Timings().Total()).To(BeNumerically(">", 0))
		})
	})
})

var _ = Describe("ResolvePair", func() {
	It("moves both bodies by equal and opposite amounts", func() {
		a := physics.Body{Position: mgl32.Vec2{0.1, 0.2}, Radius: 0.02}
		b := physics.Body{Position: mgl32.Vec2{0.124, 0.232}, Radius: 0.03}
		a0, b0 := a.Position, b.Position

		overlap, degenerate := physics.ResolvePair(&a, &b)

		Expect(degenerate).To(BeFalse())
		Expect(overlap).To(BeNumerically("~", 0.01, 1e-6))
		da, db := a.Position.Sub(a0), b.Position.Sub(b0)
		Expect(float64(da[0])).To(BeNumerically("~", -float64(db[0]), 1e-7))
		Expect(float64(da[1])).To(BeNumerically("~", -float64(db[1]), 1e-7))
		Expect(distance(a.Position, b.Position)).To(BeNumerically("~", 0.05, 1e-6))

		axis := b0.Sub(a0).Normalize()
		Expect(float64(da.Normalize().Dot(axis))).To(BeNumerically("~", -1, 1e-5))
	})

	It("leaves separated bodies alone", func() {
		a := physics.Body{Position: mgl32.Vec2{0, 0}, Radius: 0.02}
		b := physics.Body{Position: mgl32.Vec2{0.05, 0}, Radius: 0.02}
		overlap, _ := physics.ResolvePair(&a, &b)
		Expect(overlap).To(BeZero())
		Expect(a.Position).To(Equal(mgl32.Vec2{0, 0}))
		Expect(b.Position).To(Equal(mgl32.Vec2{0.05, 0}))
	})

	It("does not push a finite body away from a NaN one", func() {
		nan := float32(math.NaN())
		a := physics.Body{Position: mgl32.Vec2{nan, 0}, Radius: 0.02}
		b := physics.Body{Position: mgl32.Vec2{0.01, 0}, Radius: 0.02}
		overlap, degenerate := physics.ResolvePair(&a, &b)
		Expect(overlap).To(BeZero())
		Expect(degenerate).To(BeFalse())
		Expect(b.Position).To(Equal(mgl32.Vec2{0.01, 0}))
	})
})
