package degrade_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/degrade"
	"github.com/papercomputeco/brainstream/pkg/frame"
)

var _ = Describe("DemoSource", func() {
	It("rotates through the whitelisted kinds", func() {
		src := degrade.NewDemoSource()

		kinds := make([]frame.Kind, 8)
		for i := range kinds {
			kinds[i] = src.Next().Kind
		}

		Expect(kinds).To(Equal([]frame.Kind{
			frame.KindThought, frame.KindTrinityScore, frame.KindActiveAgent, frame.KindBrainState,
			frame.KindThought, frame.KindTrinityScore, frame.KindActiveAgent, frame.KindBrainState,
		}))
	})

	It("produces JSON payloads the store can read", func() {
		frames := degrade.NewDemoSource().Placeholder()
		Expect(frames).To(HaveLen(4))

		for _, f := range frames {
			Expect(f.Payload.IsJSON()).To(BeTrue())
			Expect(f.ID).To(HavePrefix("demo-"))
		}

		text, ok := frames[0].Payload.String("text")
		Expect(ok).To(BeTrue())
		Expect(text).NotTo(BeEmpty())

		score, ok := frames[1].Payload.Number("score")
		Expect(ok).To(BeTrue())
		Expect(score).To(BeNumerically(">=", 60))
		Expect(score).To(BeNumerically("<=", 95))
	})

	It("numbers frames sequentially", func() {
		src := degrade.NewDemoSource()
		Expect(src.Next().ID).To(Equal("demo-0"))
		Expect(src.Next().ID).To(Equal("demo-1"))
	})
})
