package subscriber_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/subscriber"
)

var _ = Describe("BackoffPolicy", func() {
	noJitter := subscriber.BackoffPolicy{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
	}

	DescribeTable("grows exponentially up to the ceiling",
		func(attempt int, expected time.Duration) {
			Expect(noJitter.Delay(attempt, nil)).To(Equal(expected))
		},
		Entry("first retry", 1, time.Second),
		Entry("second retry", 2, 2*time.Second),
		Entry("third retry", 3, 4*time.Second),
		Entry("fifth retry", 5, 16*time.Second),
		Entry("capped", 6, 30*time.Second),
		Entry("stays capped", 20, 30*time.Second),
		Entry("attempt below one is treated as the first", 0, time.Second),
	)

	It("keeps jitter within the configured band", func() {
		p := subscriber.DefaultBackoff()

		low := p.Delay(3, func() float64 { return 0 })
		high := p.Delay(3, func() float64 { return 0.999999 })

		Expect(low).To(BeNumerically("~", 3200*time.Millisecond, time.Millisecond))
		Expect(high).To(BeNumerically("~", 4800*time.Millisecond, time.Millisecond))
	})

	It("never lets jitter push past the ceiling", func() {
		p := subscriber.DefaultBackoff()
		Expect(p.Delay(10, func() float64 { return 0.999999 })).To(Equal(30 * time.Second))
	})

	It("defaults to ten retries", func() {
		p := subscriber.DefaultBackoff()
		Expect(p.Exhausted(10)).To(BeFalse())
		Expect(p.Exhausted(11)).To(BeTrue())
	})

	It("retries forever when MaxRetries is zero", func() {
		p := subscriber.BackoffPolicy{}
		Expect(p.Exhausted(1_000_000)).To(BeFalse())
	})
})
