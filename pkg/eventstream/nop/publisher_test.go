package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/eventstream"
	"github.com/papercomputeco/brainstream/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("satisfies the eventstream publisher interface", func() {
		var p eventstream.Publisher = nop.NewPublisher()
		Expect(p).NotTo(BeNil())
	})

	It("returns ErrNilFrameEvent for nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishFrame(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilFrameEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishFrame(context.Background(), &eventstream.FrameRelayedEvent{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
