package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("returns the error from fn and prints a final mark line", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "probing", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("probing"))
		Expect(buf.String()).To(HaveSuffix(")\n"))
	})
})

var _ = Describe("FormatAge", func() {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	DescribeTable("renders relative ages",
		func(ago time.Duration, want string) {
			Expect(cliui.FormatAge(now.Add(-ago), now)).To(Equal(want))
		},
		Entry("sub-second", 200*time.Millisecond, "just now"),
		Entry("seconds", 12*time.Second, "12s ago"),
		Entry("minutes", 3*time.Minute, "3m ago"),
		Entry("hours", 5*time.Hour, "5h ago"),
	)

	It("says never for the zero time", func() {
		Expect(cliui.FormatAge(time.Time{}, now)).To(Equal("never"))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds under a second", func() {
		Expect(cliui.FormatDuration(42 * time.Millisecond)).To(Equal("42ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})
