package rtd_test

import (
	"errors"
	"math"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/biomcpp/internal/results"
	"github.com/san-kum/biomcpp/internal/rtd"
	"github.com/san-kum/biomcpp/internal/timeunit"
)

type concentrationStub struct {
	results.ConcentrationReader
	c   []float64
	err error
}

func (s concentrationStub) SpatialAverageConcentration(species int, phase results.Phase) ([]float64, error) {
	Expect(species).To(Equal(0))
	Expect(phase).To(Equal(results.Liquid))
	return s.c, s.err
}

type probeStub struct {
	probes []float64
	err    error
}

func (s probeStub) Probes() ([]float64, error) { return s.probes, s.err }

var _ = Describe("FromScalar", func() {
	seconds := timeunit.Normalize([]float64{0, 1, 2, 3})

	It("computes the step response and its derivative", func() {
		s, err := rtd.FromScalar(seconds, []float64{10, 15, 20, 20}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.F).To(Equal([]float64{0, 1, 2, 2}))
		Expect(s.E).To(Equal([]float64{1, 1, 0}))
		Expect(s.ETime()).To(Equal([]float64{1, 2, 3}))
		Expect(s.Time.Unit).To(Equal(timeunit.Seconds))
	})

	It("uses the caller's step magnitude instead of a fixed one", func() {
		s, err := rtd.FromScalar(seconds, []float64{10, 15, 20, 20}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.F).To(Equal([]float64{0, 0.5, 1, 1}))
		Expect(s.E).To(Equal([]float64{0.5, 0.5, 0}))
	})

	It("keeps len(E) == len(time)-1 for any length", func() {
		rng := rand.New(rand.NewPCG(7, 11))
		for n := 2; n < 40; n++ {
			t := make([]float64, n)
			c := make([]float64, n)
			for i := range t {
				t[i] = float64(i) * (1 + rng.Float64())
				c[i] = rng.Float64()
			}
			s, err := rtd.FromScalar(timeunit.Normalize(t), c, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.F).To(HaveLen(n))
			Expect(s.E).To(HaveLen(n - 1))
		}
	})

	It("differentiates with respect to the normalized unit", func() {
		hours := timeunit.Normalize([]float64{0, 18000, 36000})
		s, err := rtd.FromScalar(hours, []float64{0, 1, 2}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Time.Unit).To(Equal(timeunit.Hours))
		Expect(s.E[0]).To(BeNumerically("~", 0.1, 1e-12))
	})

	It("converts to hours with E expressed per hour", func() {
		s, err := rtd.FromScalar(timeunit.Normalize([]float64{0, 1800, 3600}), []float64{0, 2, 3}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Time.Unit).To(Equal(timeunit.Seconds))

		h := s.In(timeunit.Hours)
		Expect(h.Time.Unit).To(Equal(timeunit.Hours))
		Expect(h.Time.Values).To(Equal([]float64{0, 0.5, 1}))
		Expect(h.F).To(Equal(s.F))
		Expect(h.E[0]).To(BeNumerically("~", 0.8, 1e-12))
		Expect(h.E[1]).To(BeNumerically("~", 0.4, 1e-12))
		Expect(s.E[0]).To(BeNumerically("~", 0.4/1800, 1e-15))
	})

	It("does not modify its inputs", func() {
		t := []float64{0, 1, 2}
		c := []float64{1, 2, 3}
		series := timeunit.Series{Values: t, Unit: timeunit.Seconds}
		s, err := rtd.FromScalar(series, c, 1)
		Expect(err).NotTo(HaveOccurred())
		s.Time.Values[0] = 42
		Expect(t).To(Equal([]float64{0, 1, 2}))
		Expect(c).To(Equal([]float64{1, 2, 3}))
	})

	DescribeTable("rejects invalid input",
		func(t, c []float64, step float64, want error) {
			_, err := rtd.FromScalar(timeunit.Normalize(t), c, step)
			Expect(errors.Is(err, want)).To(BeTrue(), "got %v", err)
		},
		Entry("length mismatch", []float64{0, 1, 2}, []float64{1, 2}, 5.0, results.ErrShapeMismatch),
		Entry("single sample", []float64{0}, []float64{1}, 5.0, results.ErrEmptySample),
		Entry("zero step", []float64{0, 1}, []float64{1, 2}, 0.0, rtd.ErrInvalidStep),
		Entry("NaN step", []float64{0, 1}, []float64{1, 2}, math.NaN(), rtd.ErrInvalidStep),
	)
})

var _ = Describe("FromScalarRun", func() {
	It("reads the liquid average of species 0", func() {
		r := concentrationStub{c: []float64{10, 15, 20, 20}}
		s, err := rtd.FromScalarRun(r, timeunit.Normalize([]float64{0, 1, 2, 3}), 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.E).To(Equal([]float64{1, 1, 0}))
	})

	It("returns provider errors unchanged", func() {
		providerErr := &results.LookupError{Op: "spatial average concentration", Wrapped: results.ErrPhaseAbsent}
		_, err := rtd.FromScalarRun(concentrationStub{err: providerErr}, timeunit.Series{}, 5)
		Expect(err).To(BeIdenticalTo(error(providerErr)))
	})
})

var _ = Describe("FromParticles", func() {
	var probes []float64

	BeforeEach(func() {
		rng := rand.New(rand.NewPCG(3, 5))
		probes = make([]float64, 5000)
		for i := range probes {
			probes[i] = rng.ExpFloat64() * 2 * 3600
		}
	})

	It("returns a density histogram over 100 bins, in hours", func() {
		h, err := rtd.FromParticles(probes)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Edges).To(HaveLen(rtd.ParticleBins + 1))
		Expect(h.Counts).To(HaveLen(rtd.ParticleBins))
		Expect(h.Edges[0]).To(BeNumerically("~", floats.Min(probes)/3600, 1e-12))
		Expect(h.Edges[rtd.ParticleBins]).To(BeNumerically("~", floats.Max(probes)/3600, 1e-9))
	})

	It("integrates to one", func() {
		h, err := rtd.FromParticles(probes)
		Expect(err).NotTo(HaveOccurred())
		Expect(floats.Dot(h.Counts, h.Widths())).To(BeNumerically("~", 1, 1e-9))
	})

	It("leaves the probes in seconds", func() {
		first := probes[0]
		_, err := rtd.FromParticles(probes)
		Expect(err).NotTo(HaveOccurred())
		Expect(probes[0]).To(Equal(first))
	})

	It("fails on an empty sample", func() {
		_, err := rtd.FromParticles(nil)
		Expect(err).To(MatchError(results.ErrEmptySample))
	})

	It("reads probes from the provider", func() {
		h, err := rtd.FromParticleRun(probeStub{probes: probes})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Counts).To(HaveLen(rtd.ParticleBins))

		_, err = rtd.FromParticleRun(probeStub{err: results.ErrNotAvailable})
		Expect(err).To(MatchError(results.ErrNotAvailable))
	})
})
