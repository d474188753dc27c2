// Package storagetest holds the behavior every storage.Driver must share. Each
// driver package runs it from its own suite.
package storagetest

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/frame"
	"github.com/papercomputeco/brainstream/pkg/storage"
)

// NewRecord builds a record for connection conn carrying a thought frame.
func NewRecord(conn string, seq uint64, text string) *storage.Record {
	at := time.Date(2026, 5, 1, 9, 0, 0, int(seq), time.UTC)
	f := frame.Restore(frame.TypeThought, "", text, at)
	return &storage.Record{
		EventID:      conn + "-evt",
		ConnectionID: conn,
		Sequence:     seq,
		Variant:      "proxy",
		Frame:        f,
		RelayedAt:    at,
	}
}

// DescribeDriver declares the shared driver specs. newDriver is called before
// each spec and must return an empty driver.
func DescribeDriver(newDriver func() storage.Driver) {
	Describe("storage.Driver conformance", func() {
		var (
			ctx    context.Context
			driver storage.Driver
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("assigns increasing ids", func() {
			a := NewRecord("c1", 1, "first")
			b := NewRecord("c1", 2, "second")
			Expect(driver.Append(ctx, a)).To(Succeed())
			Expect(driver.Append(ctx, b)).To(Succeed())
			Expect(b.ID).To(BeNumerically(">", a.ID))
		})

		It("round-trips a record", func() {
			rec := NewRecord("c1", 1, "hello")
			rec.Frame = frame.Restore(frame.TypeTrinityScore, "42", `{"score":87.5}`, rec.Frame.ReceivedAt)
			Expect(driver.Append(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ConnectionID).To(Equal("c1"))
			Expect(got.Sequence).To(Equal(uint64(1)))
			Expect(got.Variant).To(Equal("proxy"))
			Expect(got.Frame.Kind).To(Equal(frame.KindTrinityScore))
			Expect(got.Frame.ID).To(Equal("42"))
			Expect(got.Frame.Payload.IsJSON()).To(BeTrue())
			Expect(got.Frame.ReceivedAt.Equal(rec.Frame.ReceivedAt)).To(BeTrue())
			Expect(got.RelayedAt.Equal(rec.RelayedAt)).To(BeTrue())
		})

		It("returns ErrNotFound for a missing id", func() {
			_, err := driver.Get(ctx, 999)
			var notFound storage.ErrNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.ID).To(Equal(int64(999)))
		})

		It("refuses keep-alive frames and nil records", func() {
			rec := NewRecord("c1", 1, "")
			rec.Frame = frame.Restore("", "", "keep-alive", time.Now())
			Expect(driver.Append(ctx, rec)).To(MatchError(storage.ErrKeepAlive))
			Expect(driver.Append(ctx, nil)).To(MatchError(storage.ErrNilRecord))

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
		})

		It("lists recent records newest first", func() {
			for i, text := range []string{"a", "b", "c"} {
				Expect(driver.Append(ctx, NewRecord("c1", uint64(i+1), text))).To(Succeed())
			}

			recent, err := driver.Recent(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(2))
			Expect(recent[0].Frame.Payload.Raw).To(Equal("c"))
			Expect(recent[1].Frame.Payload.Raw).To(Equal("b"))

			all, err := driver.Recent(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
		})

		It("filters by connection", func() {
			Expect(driver.Append(ctx, NewRecord("c1", 1, "mine"))).To(Succeed())
			Expect(driver.Append(ctx, NewRecord("c2", 1, "theirs"))).To(Succeed())
			Expect(driver.Append(ctx, NewRecord("c1", 2, "mine again"))).To(Succeed())

			recs, err := driver.ByConnection(ctx, "c1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
			Expect(recs[0].Sequence).To(Equal(uint64(2)))

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(3)))
		})
	})
}
