package relay

import (
	"crypto/tls"
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("watchable", func() {
	It("accepts TCP connections, plain or behind TLS", func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(l.Close)

		accepted := make(chan net.Conn, 1)
		go func() {
			c, _ := l.Accept()
			accepted <- c
		}()

		client, err := net.Dial("tcp", l.Addr().String())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(client.Close)

		var server net.Conn
		Eventually(accepted).Should(Receive(&server))
		DeferCleanup(server.Close)

		Expect(watchable(server)).To(BeTrue())
		Expect(watchable(tls.Server(server, &tls.Config{}))).To(BeTrue())
	})

	It("rejects in-memory connections", func() {
		a, b := net.Pipe()
		DeferCleanup(a.Close)
		DeferCleanup(b.Close)

		Expect(watchable(a)).To(BeFalse())
		Expect(watchClient(a, newConnection(VariantProxy, "test", 0, func() {}))).To(BeNil())
	})
})
