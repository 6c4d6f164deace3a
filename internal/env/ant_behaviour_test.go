package env

import (
	"io"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/antsim/internal/config"
	"gonum.org/v1/gonum/mat"
)

var _ = Describe("Ant", func() {
	var (
		cfg  *config.Config
		ant  *Ant
		zero *mat.Dense
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		cfg.NumEnvs = 4
		cfg.EpisodeLength = 10
		cfg.EarlyTermination = false
		cfg.StochasticInit = false
	})

	JustBeforeEach(func() {
		var err error
		ant, err = NewAnt(cfg, WithLogger(log.New(io.Discard)))
		Expect(err).NotTo(HaveOccurred())
		zero = mat.NewDense(cfg.NumEnvs, AntActs, nil)
	})

	Describe("episode bookkeeping", func() {
		It("truncates every environment exactly at the episode length", func() {
			for step := 1; step < 10; step++ {
				res, err := ant.Step(zero)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Truncated).To(HaveEach(BeFalse()))
				Expect(res.Terminated).To(HaveEach(BeFalse()))
			}

			res, err := ant.Step(zero)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Truncated).To(HaveEach(BeTrue()))
			Expect(res.Terminated).To(HaveEach(BeFalse()))
			Expect(ant.Progress()).To(HaveEach(BeZero()))
		})

		It("starts every environment at the canonical height", func() {
			obs := ant.Reset(nil, true)
			for i := 0; i < cfg.NumEnvs; i++ {
				Expect(obs.At(i, obsHeight.Offset)).To(Equal(config.DefaultStartHeight))
			}
			Expect(mat.Norm(ant.Actions(), 1)).To(BeZero())
		})
	})

	Context("with gradient tracking", func() {
		BeforeEach(func() {
			cfg.NoGrad = false
		})

		It("grows the history every step and cuts it on InitializeTrajectory", func() {
			for i := 0; i < 3; i++ {
				_, err := ant.Step(zero)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(ant.State().GraphLen()).To(Equal(3))

			q := mat.DenseCopyOf(ant.State().JointQ)
			ant.InitializeTrajectory()
			Expect(ant.State().GraphLen()).To(BeZero())
			Expect(mat.Equal(q, ant.State().JointQ)).To(BeTrue())
		})

		It("reports diagnostics in extras", func() {
			res, err := ant.Step(zero)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Extras).NotTo(BeNil())
			Expect(res.Extras.ObsBeforeReset).NotTo(BeNil())
			Expect(res.Extras.EpisodeEnd).To(HaveLen(cfg.NumEnvs))
			Expect(res.Extras.ContactsChanged).To(HaveLen(cfg.NumEnvs))
			Expect(res.Extras.Jacobian).To(BeNil())
		})
	})

	Context("without gradient tracking", func() {
		It("keeps states detached", func() {
			_, err := ant.Step(zero)
			Expect(err).NotTo(HaveOccurred())
			Expect(ant.State().GraphLen()).To(BeZero())
		})
	})

	Describe("checkpoints", func() {
		It("restore an earlier episode position", func() {
			_, err := ant.Step(zero)
			Expect(err).NotTo(HaveOccurred())
			cp := ant.GetCheckpoint()
			obs := mat.DenseCopyOf(ant.Obs())

			for i := 0; i < 4; i++ {
				_, err = ant.Step(zero)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(ant.ClearGrad(cp)).To(Succeed())
			Expect(mat.Equal(obs, ant.CalculateObservations())).To(BeTrue())
			Expect(ant.Progress()).To(HaveEach(Equal(1)))
		})
	})
})
