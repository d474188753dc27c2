package relay

import (
	"context"
	"io"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Connection", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		conn   *Connection
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(cancel)
		conn = newConnection(VariantProxy, "127.0.0.1", 50*time.Millisecond, cancel)
	})

	It("starts connecting and opens once", func() {
		Expect(conn.ID).NotTo(BeEmpty())
		Expect(conn.State()).To(Equal(StateConnecting))

		conn.markOpen()
		Expect(conn.State()).To(Equal(StateOpen))
	})

	It("numbers frames in order and records the last one", func() {
		at := time.Now()
		Expect(conn.touch(at)).To(BeEquivalentTo(1))
		Expect(conn.touch(at)).To(BeEquivalentTo(2))
		Expect(conn.LastFrameAt()).To(Equal(at))
		Expect(conn.Info().Frames).To(BeEquivalentTo(2))
	})

	It("reports degraded when open and silent past the threshold", func() {
		conn.markOpen()
		conn.touch(time.Now().Add(-time.Second))
		Expect(conn.State()).To(Equal(StateDegraded))

		conn.touch(time.Now())
		Expect(conn.State()).To(Equal(StateOpen))
	})

	It("cancels its context exactly once on close", func() {
		Expect(conn.Close()).To(BeTrue())
		Expect(ctx.Err()).To(MatchError(context.Canceled))
		Expect(conn.Close()).To(BeFalse())
		Expect(conn.State()).To(Equal(StateClosed))

		conn.markOpen()
		Expect(conn.State()).To(Equal(StateClosed))
	})

	It("is closed by its response body", func() {
		pr, pw := io.Pipe()
		defer pw.Close()

		body := &streamBody{PipeReader: pr, conn: conn}
		Expect(body.Close()).To(Succeed())
		Expect(ctx.Err()).To(HaveOccurred())

		_, err := pw.Write([]byte("data: x\n\n"))
		Expect(err).To(MatchError(io.ErrClosedPipe))
	})

	It("marshals its state by name", func() {
		b, err := StateDegraded.MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal("degraded"))
	})
})
