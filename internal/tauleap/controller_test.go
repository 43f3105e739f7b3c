package tauleap_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tauleap/internal/tauleap"
)

func constantRates(r ...float64) tauleap.RateFunc {
	return func(tauleap.State, tauleap.Parameters, float64) ([]float64, error) {
		out := make([]float64, len(r))
		copy(out, r)
		return out, nil
	}
}

// geneSwitch is a promoter that flips on at rate kOn; the flip halts the run.
func geneSwitch(kOn float64) tauleap.Model {
	return tauleap.Model{
		Initial: tauleap.State{1, 0, 0},
		Names:   []string{"off", "on", "protein"},
		Transitions: [][]tauleap.Change{
			{{State: 0, Mag: -1}, {State: 1, Mag: 1}},
			{{State: 2, Mag: 1}},
		},
		Halting: []int{0},
		Rates: func(x tauleap.State, _ tauleap.Parameters, _ float64) ([]float64, error) {
			return []float64{kOn * x[0], 5}, nil
		},
	}
}

var _ = Describe("Simulator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("when every rate is zero", func() {
		It("returns the initial point and one point at the end time", func() {
			m := tauleap.Model{
				Initial:     tauleap.State{3, 7},
				Transitions: tauleap.DenseTransitions([][]int{{-1}, {1}}),
				Rates:       constantRates(0),
			}
			s, err := tauleap.New(m, tauleap.DefaultParams(), tauleap.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Points).To(HaveLen(2))
			Expect(res.Points[0].Time).To(Equal(0.0))
			Expect(res.Points[1].Time).To(Equal(5.0))
			Expect([]float64(res.Points[1].State)).To(Equal([]float64{3, 7}))
		})
	})

	Context("when the end time is zero", func() {
		It("returns only the initial point", func() {
			s, err := tauleap.New(geneSwitch(1), tauleap.DefaultParams(), tauleap.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Points).To(HaveLen(1))
		})
	})

	Context("with a halting transition", func() {
		It("stops right after the halting transition fires", func() {
			s, err := tauleap.New(geneSwitch(1), tauleap.DefaultParams(), tauleap.WithSeed(12))
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx, 1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.HasHalting).To(BeTrue())
			Expect(res.HaltingTransition).To(Equal(0))
			Expect(res.HaltingLabel([]string{"activate", "express"})).To(Equal("activate"))

			final := res.Final()
			Expect(final.Time).To(BeNumerically("<", 1000))
			Expect(final.State[1]).To(Equal(1.0))
		})

		It("reports none when the end time comes first", func() {
			s, err := tauleap.New(geneSwitch(1e-9), tauleap.DefaultParams(), tauleap.WithSeed(3))
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.HasHalting).To(BeTrue())
			Expect(res.HaltingTransition).To(Equal(tauleap.NoTransition))
			Expect(res.HaltingLabel(nil)).To(Equal("none"))
		})

		It("also halts exact-only runs", func() {
			s, err := tauleap.New(geneSwitch(2), tauleap.DefaultParams(), tauleap.WithSeed(5))
			Expect(err).NotTo(HaveOccurred())

			res, err := s.RunExact(ctx, 1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.HaltingTransition).To(Equal(0))
		})
	})

	Context("when a rate is infinite", func() {
		It("exits early with the points gathered so far", func() {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))

			m := tauleap.Model{
				Initial:     tauleap.State{10},
				Transitions: tauleap.DenseTransitions([][]int{{-1}}),
				Rates: func(x tauleap.State, _ tauleap.Parameters, _ float64) ([]float64, error) {
					if x[0] < 8 {
						return []float64{math.Inf(1)}, nil
					}
					return []float64{x[0]}, nil
				},
			}
			s, err := tauleap.New(m, tauleap.DefaultParams(), tauleap.WithSeed(2), tauleap.WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx, 100)
			Expect(err).To(MatchError(tauleap.ErrEarlyExit))

			var early *tauleap.EarlyExitError
			Expect(errors.As(err, &early)).To(BeTrue())
			Expect(res).NotTo(BeNil())
			Expect(res.Diagnostic).To(ContainSubstring("results returned only up until this point"))
			Expect(res.Final().State[0]).To(BeNumerically("<", 8))
			Expect(res.Final().Time).To(BeNumerically("<", 100))
			Expect(logs.String()).To(ContainSubstring("run truncated"))
		})
	})

	Context("when cancelled", func() {
		var m tauleap.Model

		BeforeEach(func() {
			// a birth process that never runs out of work
			m = tauleap.Model{
				Initial:     tauleap.State{0},
				Transitions: tauleap.DenseTransitions([][]int{{1}}),
				Rates:       constantRates(1),
			}
		})

		It("stops on a cancelled context", func() {
			s, err := tauleap.New(m, tauleap.DefaultParams(), tauleap.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())

			cctx, cancel := context.WithCancel(ctx)
			cancel()
			res, err := s.Run(cctx, 1e6)
			Expect(err).To(MatchError(tauleap.ErrEarlyExit))
			Expect(res.Stats.Iterations).To(Equal(tauleap.DefaultParams().CheckInterval))
		})

		It("polls the interrupt predicate every check interval", func() {
			calls := 0
			p := tauleap.DefaultParams()
			p.CheckInterval = 3
			s, err := tauleap.New(m, p, tauleap.WithSeed(1), tauleap.WithInterrupt(func() bool {
				calls++
				return calls == 4
			}))
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx, 1e6)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("interrupted"))
			Expect(res.Stats.Iterations).To(Equal(12))
		})
	})

	Context("with a critical transition that overdraws", func() {
		It("fails with a model error", func() {
			// consumes two units but the rate ignores availability
			m := tauleap.Model{
				Initial:     tauleap.State{1},
				Transitions: tauleap.DenseTransitions([][]int{{-2}}),
				Rates:       constantRates(1),
			}
			p := tauleap.DefaultParams()
			p.ExtraChecks = false
			s, err := tauleap.New(m, p, tauleap.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx, 1e6)
			Expect(res).To(BeNil())
			Expect(err).To(HaveOccurred())

			var se *tauleap.SimulationError
			Expect(errors.As(err, &se)).To(BeTrue())
		})
	})

	Context("with verbose tracing", func() {
		It("logs steps through the configured logger", func() {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			p := tauleap.DefaultParams()
			p.Verbosity = 2

			m := tauleap.Model{
				Initial:     tauleap.State{20},
				Transitions: tauleap.DenseTransitions([][]int{{-1}}),
				Rates: func(x tauleap.State, _ tauleap.Parameters, _ float64) ([]float64, error) {
					return []float64{x[0]}, nil
				},
			}
			s, err := tauleap.New(m, p, tauleap.WithSeed(4), tauleap.WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Run(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(logs.String(), "msg=state")).To(BeNumerically(">=", 2))
		})
	})
})
