package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/verlet/internal/config"
	"github.com/san-kum/verlet/internal/metrics"
	"github.com/san-kum/verlet/internal/physics"
	"github.com/spf13/cobra"
)

const benchWarmup = 60

var (
	benchSizes  []int
	benchSteps  int
	benchRadius float32
)

func benchWorld(cmd *cobra.Command, args []string) error {
	if benchSteps < 1 {
		return fmt.Errorf("--steps must be at least 1, got %d", benchSteps)
	}

	fmt.Printf("benchmarking %d steps of dt=%.4f\n\n", benchSteps, config.DefaultDt)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODIES\tSTEPS\tTIME\tSTEPS/SEC\tSTEP µs\tINTEGRATE\tBOUNDARY\tCOLLIDE\tCONTACTS")

	for _, n := range benchSizes {
		world, err := benchScene(n)
		if err != nil {
			return err
		}

		for i := 0; i < benchWarmup; i++ {
			if err := world.Step(config.DefaultDt); err != nil {
				return err
			}
		}

		world.EnableTimings(true)
		stepTime := metrics.NewStepTime()
		contacts := metrics.NewContacts()
		var phases physics.Timings

		start := time.Now()
		for i := 0; i < benchSteps; i++ {
			if err := world.Step(config.DefaultDt); err != nil {
				return err
			}
			t := world.Timings()
			phases.Integrate += t.Integrate
			phases.Boundary += t.Boundary
			phases.Collide += t.Collide
			stepTime.Observe(world, 0)
			contacts.Observe(world, 0)
		}
		elapsed := time.Since(start)

		steps := time.Duration(benchSteps)
		fmt.Fprintf(w, "%d\t%d\t%v\t%.0f\t%.1f\t%v\t%v\t%v\t%.0f\n",
			world.Len(),
			benchSteps,
			elapsed.Round(time.Millisecond),
			float64(benchSteps)/elapsed.Seconds(),
			stepTime.Value(),
			(phases.Integrate / steps).Round(time.Microsecond),
			(phases.Boundary / steps).Round(time.Microsecond),
			(phases.Collide / steps).Round(time.Microsecond),
			contacts.Value(),
		)
	}

	return w.Flush()
}

// benchScene packs n bodies in a square lattice centred on the origin.
func benchScene(n int) (*physics.World, error) {
	p := physics.DefaultParams()
	p.BodyRadius = benchRadius
	if n > p.Capacity {
		p.Capacity = n
	}

	world, err := physics.New(p)
	if err != nil {
		return nil, err
	}

	side := int(math.Ceil(math.Sqrt(float64(n))))
	half := float32(side-1) * benchRadius
	world.Fill(side, (n+side-1)/side, mgl32.Vec2{-half, half}, 0)
	return world, nil
}
