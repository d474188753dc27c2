package header

import (
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SetUpstreamRequestHeaders", func() {
	var (
		app *fiber.App
		hh  *Handler
		got http.Header
	)

	BeforeEach(func() {
		app = fiber.New()
		hh = NewHandler()
		got = nil

		app.Get("/stream", func(c *fiber.Ctx) error {
			req, _ := http.NewRequest(http.MethodGet, "http://upstream/events", nil)
			hh.SetUpstreamRequestHeaders(c, req)
			got = req.Header
			return c.SendStatus(fiber.StatusOK)
		})
	})

	AfterEach(func() {
		app.Shutdown()
	})

	send := func(headers map[string]string) {
		req := httptest.NewRequest(http.MethodGet, "/stream", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
	}

	It("forwards the resume and auth headers", func() {
		send(map[string]string{
			"Authorization": "Bearer token123",
			"Last-Event-ID": "41",
		})

		Expect(got.Get("Authorization")).To(Equal("Bearer token123"))
		Expect(got.Get("Last-Event-ID")).To(Equal("41"))
	})

	It("marks the upstream request as a stream request", func() {
		send(nil)

		Expect(got.Get("Accept")).To(Equal("text/event-stream"))
		Expect(got.Get("Cache-Control")).To(Equal("no-cache"))
		Expect(got.Get("Connection")).To(Equal("keep-alive"))
	})

	It("keeps other client headers on the client leg", func() {
		send(map[string]string{
			"Cookie":          "session=abc",
			"Accept-Encoding": "gzip, deflate, br",
			"Host":            "client.example.com",
		})

		Expect(got.Get("Cookie")).To(BeEmpty())
		Expect(got.Get("Accept-Encoding")).To(BeEmpty())
		Expect(got.Get("Host")).To(BeEmpty())
	})

	It("omits forwarded headers the client did not send", func() {
		send(nil)

		_, ok := got["Last-Event-Id"]
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("SetClientResponseHeaders", func() {
	var (
		app *fiber.App
		hh  *Handler
	)

	BeforeEach(func() {
		app = fiber.New()
		hh = NewHandler()
	})

	AfterEach(func() {
		app.Shutdown()
	})

	respond := func(upstream http.Header) *http.Response {
		app.Get("/stream", func(c *fiber.Ctx) error {
			hh.SetClientResponseHeaders(c, &http.Response{Header: upstream})
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stream", nil))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		return resp
	}

	It("forwards ordinary upstream headers", func() {
		resp := respond(http.Header{"X-Request-Id": {"abc-123"}})
		Expect(resp.Header.Get("X-Request-Id")).To(Equal("abc-123"))
	})

	It("overrides upstream content type and caching with stream headers", func() {
		resp := respond(http.Header{
			"Content-Type":  {"text/event-stream"},
			"Cache-Control": {"max-age=60"},
		})

		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream; charset=utf-8"))
		Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache, no-transform"))
		Expect(resp.Header.Get("X-Accel-Buffering")).To(Equal("no"))
	})

	It("strips encoding and length headers", func() {
		resp := respond(http.Header{
			"Content-Encoding":  {"gzip"},
			"Transfer-Encoding": {"chunked"},
		})

		Expect(resp.Header.Get("Content-Encoding")).To(BeEmpty())
		Expect(resp.Header.Get("Transfer-Encoding")).To(BeEmpty())
	})
})

var _ = Describe("SetStreamHeaders", func() {
	It("sets the streaming response headers", func() {
		app := fiber.New()
		DeferCleanup(app.Shutdown)

		app.Get("/demo", func(c *fiber.Ctx) error {
			NewHandler().SetStreamHeaders(c)
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/demo", nil))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream; charset=utf-8"))
		Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache, no-transform"))
		Expect(resp.Header.Get("X-Accel-Buffering")).To(Equal("no"))
	})
})
