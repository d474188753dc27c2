// Package relay serves the brain's event stream to dashboard clients. The
// proxy variant opens one upstream stream per client and forwards its bytes
// verbatim; the synthetic variant generates demo frames without an upstream.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/papercomputeco/brainstream/pkg/degrade"
	"github.com/papercomputeco/brainstream/pkg/eventstream"
	"github.com/papercomputeco/brainstream/pkg/frame"
	"github.com/papercomputeco/brainstream/pkg/logger"
	"github.com/papercomputeco/brainstream/pkg/sse"
	"github.com/papercomputeco/brainstream/relay/header"
	"github.com/papercomputeco/brainstream/relay/worker"
)

const (
	// HealthPath answers liveness probes.
	HealthPath = "/healthz"

	// MetricsPath exposes prometheus metrics.
	MetricsPath = "/metrics"

	// ConnectionsPath lists the open streams.
	ConnectionsPath = "/connections"

	// ProbeComment is the text of the proxy liveness comment.
	ProbeComment = "keep-alive"

	defaultName = "brainstream-relay"
)

// Relay is the event stream relay server.
type Relay struct {
	config        Config
	name          string
	upstreamURL   string
	workerPool    *worker.Pool
	logger        *slog.Logger
	httpClient    *http.Client
	server        *fiber.App
	headerHandler *header.Handler
	limiter       *rate.Limiter
	metrics       *metrics
	conns         *registry

	// streams counts running stream goroutines so Close can wait for them
	// before draining the worker pool.
	streams   sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Relay.
type Option func(*Relay)

// WithHTTPClient sets the client used for upstream calls. The client must not
// set a Timeout: stream lifetime is bounded by Config.MaxLifetime instead.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Relay) {
		r.httpClient = c
	}
}

// WithName sets the relay name stamped on tapped frame events.
func WithName(name string) Option {
	return func(r *Relay) {
		r.name = name
	}
}

// New creates a new Relay.
func New(cfg Config, log *slog.Logger, opts ...Option) (*Relay, error) {
	cfg = cfg.withDefaults()

	if log == nil {
		log = logger.Nop()
	}

	upstreamURL := strings.TrimRight(cfg.UpstreamURL, "/") + cfg.UpstreamPath
	if !strings.HasPrefix(upstreamURL, "http://") && !strings.HasPrefix(upstreamURL, "https://") {
		return nil, fmt.Errorf("upstream url %q must be http or https", cfg.UpstreamURL)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	r := &Relay{
		config:        cfg,
		name:          defaultName,
		upstreamURL:   upstreamURL,
		logger:        log,
		server:        app,
		headerHandler: header.NewHandler(),
		metrics:       newMetrics(),
		conns:         newRegistry(),
		httpClient:    &http.Client{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.MaxOpensPerSecond > 0 {
		burst := max(int(cfg.MaxOpensPerSecond), 1)
		r.limiter = rate.NewLimiter(rate.Limit(cfg.MaxOpensPerSecond), burst)
	}

	if cfg.Publisher != nil || cfg.Archive != nil {
		wp, err := worker.NewPool(&worker.Config{
			Publisher: cfg.Publisher,
			Driver:    cfg.Archive,
			Logger:    log,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create worker pool: %w", err)
		}
		r.workerPool = wp
	}

	app.Get(HealthPath, r.handleHealth)
	app.Get(ConnectionsPath, r.handleConnections)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(r.metrics.registry, promhttp.HandlerOpts{})))
	app.Get(cfg.DemoPath, r.handleDemo)
	app.Get(cfg.StreamPath, r.handleStream)

	return r, nil
}

// Run starts the relay server on the configured listening address
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		"listen", r.config.ListenAddr,
		"upstream", r.upstreamURL,
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"upstream", r.upstreamURL,
	)

	return r.server.Listener(listener)
}

// Close cancels every open stream, shuts the server down and waits for the
// worker pool to drain. It is safe to call more than once.
func (r *Relay) Close() error {
	r.closeOnce.Do(func() {
		for _, conn := range r.conns.list() {
			conn.Close()
		}
		r.closeErr = r.server.Shutdown()
		r.streams.Wait()
		if r.workerPool != nil {
			r.workerPool.Close()
		}
	})
	return r.closeErr
}

// Connections returns a snapshot of every open stream.
func (r *Relay) Connections() []ConnectionInfo {
	conns := r.conns.list()
	out := make([]ConnectionInfo, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Info())
	}
	return out
}

// TapStats returns the frame tap totals. The zero value is returned when no
// publisher or archive is configured.
func (r *Relay) TapStats() worker.Stats {
	if r.workerPool == nil {
		return worker.Stats{}
	}
	return r.workerPool.Stats()
}

func (r *Relay) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (r *Relay) handleConnections(c *fiber.Ctx) error {
	return c.JSON(r.Connections())
}

// admit applies admission control to a new stream.
func (r *Relay) admit() bool {
	return r.limiter == nil || r.limiter.Allow()
}

func (r *Relay) reject(c *fiber.Ctx) error {
	r.metrics.admissionRejected.Inc()
	r.logger.Warn("stream rejected by admission control", "remote", c.IP())
	return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
		Error: "too many new streams, retry shortly",
		Kind:  "rate_limited",
	})
}

// sessionContext returns the context that bounds a single stream. It is not
// derived from the fiber context because fasthttp recycles request contexts
// once the handler returns.
func (r *Relay) sessionContext() (context.Context, context.CancelFunc) {
	if r.config.MaxLifetime > 0 {
		return context.WithTimeout(context.Background(), r.config.MaxLifetime)
	}
	return context.WithCancel(context.Background())
}

func (r *Relay) track(conn *Connection) {
	r.conns.add(conn)
	r.streams.Add(1)
	r.metrics.streamsOpened.WithLabelValues(string(conn.Variant)).Inc()
	r.metrics.activeConnections.WithLabelValues(string(conn.Variant)).Inc()
}

func (r *Relay) untrack(conn *Connection) {
	conn.Close()
	r.conns.remove(conn)
	r.metrics.activeConnections.WithLabelValues(string(conn.Variant)).Dec()
	r.streams.Done()
}

// handleStream serves the proxy variant.
func (r *Relay) handleStream(c *fiber.Ctx) error {
	if !r.admit() {
		return r.reject(c)
	}

	ctx, cancel := r.sessionContext()
	conn := newConnection(VariantProxy, c.IP(), r.config.StaleAfter, cancel)

	resp, uerr := r.dialUpstream(ctx, c)
	if uerr != nil {
		conn.Close()
		r.metrics.upstreamFailures.WithLabelValues(uerr.Kind.String()).Inc()
		r.logger.Error("upstream stream failed",
			"connection_id", conn.ID,
			"kind", uerr.Kind.String(),
			"error", uerr,
		)
		return c.Status(uerr.HTTPStatus()).JSON(uerr.Response())
	}

	r.headerHandler.SetClientResponseHeaders(c, resp)
	c.Set(header.ConnectionIDHeader, conn.ID)
	c.Status(fiber.StatusOK)

	r.logger.Debug("proxy stream opened",
		"connection_id", conn.ID,
		"remote", conn.RemoteAddr,
	)

	// Use io.Pipe + SetBodyStream: pw.Write blocks until fasthttp has read the
	// bytes, so a stalled client applies backpressure all the way upstream,
	// and a closed client surfaces as a write error.
	pr, pw := io.Pipe()
	r.track(conn)
	watch := watchClient(c.Context().Conn(), conn)
	go r.serveProxy(ctx, conn, resp, pw, watch)

	c.Context().Response.SetBodyStream(&streamBody{PipeReader: pr, conn: conn}, -1)
	return nil
}

// dialUpstream opens the upstream stream. The request is bound to the session
// context, so cancelling the connection aborts it.
func (r *Relay) dialUpstream(ctx context.Context, c *fiber.Ctx) (*http.Response, *UpstreamError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.upstreamURL, nil)
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamUnavailable, Err: err}
	}
	r.headerHandler.SetUpstreamRequestHeaders(c, req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamUnavailable, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		return nil, badStatus(resp.StatusCode)
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, &UpstreamError{Kind: UpstreamNoBody}
	}

	return resp, nil
}

// serveProxy pumps the upstream body to the client until either side ends.
// Without a watch on the client connection the comment probe is the only way
// to notice a client leaving a quiet stream, so it runs regardless of
// ProxyKeepAlive.
func (r *Relay) serveProxy(ctx context.Context, conn *Connection, resp *http.Response, pw *io.PipeWriter, watch *clientWatch) {
	defer r.untrack(conn)
	defer resp.Body.Close()

	w := sse.NewWriter(pw)

	var probes sync.WaitGroup
	if r.config.ProxyKeepAlive || watch == nil {
		probes.Add(1)
		go func() {
			defer probes.Done()
			r.probe(ctx, conn, w)
		}()
	}

	err := r.pump(conn, resp.Body, w)

	// Stops the probe and aborts the upstream call if it is still open.
	conn.Close()
	probes.Wait()
	watch.stop()
	pw.Close()

	r.metrics.bytesRelayed.WithLabelValues(string(conn.Variant)).Add(float64(w.Written()))
	r.logEnd(ctx, conn, err, w.Written())
}

// pump tees the upstream body to w one block at a time and offers every
// decoded frame to the tap.
func (r *Relay) pump(conn *Connection, body io.Reader, w io.Writer) error {
	tee := sse.NewTeeReader(body, w)
	conn.markOpen()

	for {
		ev, err := tee.Next()
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}

		f := frame.Decode(ev, time.Now())
		seq := conn.touch(f.ReceivedAt)
		r.metrics.framesRelayed.WithLabelValues(string(conn.Variant), f.Kind.String()).Inc()

		if f.IsKeepAlive() {
			continue
		}
		r.tap(conn, seq, f)
	}
}

// probe writes a comment every KeepAliveInterval. A failed write means the
// client is gone, so the connection is closed.
func (r *Relay) probe(ctx context.Context, conn *Connection, w *sse.Writer) {
	ticker := time.NewTicker(r.config.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.WriteComment(ProbeComment); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (r *Relay) tap(conn *Connection, seq uint64, f frame.Frame) {
	if r.workerPool == nil {
		return
	}

	ev := eventstream.NewFrameRelayedEvent(
		eventstream.EventSource{
			Relay:    r.name,
			Upstream: r.upstreamURL,
			Variant:  string(conn.Variant),
		},
		eventstream.ConnectionMeta{
			ID:       conn.ID,
			OpenedAt: conn.OpenedAt,
			Sequence: seq,
		},
		f,
	)
	if !r.workerPool.Enqueue(worker.Job{Event: ev}) {
		r.metrics.tapDropped.Inc()
	}
}

// handleDemo serves the synthetic variant.
func (r *Relay) handleDemo(c *fiber.Ctx) error {
	if !r.admit() {
		return r.reject(c)
	}

	ctx, cancel := r.sessionContext()
	conn := newConnection(VariantSynthetic, c.IP(), r.config.StaleAfter, cancel)

	r.headerHandler.SetStreamHeaders(c)
	c.Set(header.ConnectionIDHeader, conn.ID)
	c.Status(fiber.StatusOK)

	pr, pw := io.Pipe()
	r.track(conn)
	watch := watchClient(c.Context().Conn(), conn)
	go func() {
		defer r.untrack(conn)

		w := sse.NewWriter(pw)
		err := r.runSynthetic(ctx, conn, w)
		conn.Close()
		watch.stop()
		pw.Close()

		r.metrics.bytesRelayed.WithLabelValues(string(conn.Variant)).Add(float64(w.Written()))
		r.logEnd(ctx, conn, err, w.Written())
	}()

	c.Context().Response.SetBodyStream(&streamBody{PipeReader: pr, conn: conn}, -1)
	return nil
}

// runSynthetic writes the connected frame, then demo and keep-alive frames on
// their own tickers, until ctx ends or a write fails. Every write happens on
// the calling goroutine and both tickers are stopped before it returns.
func (r *Relay) runSynthetic(ctx context.Context, conn *Connection, w *sse.Writer) error {
	demo := degrade.NewDemoSource()

	connected, err := frame.New(frame.TypeConnected, map[string]string{
		"message":       "connected",
		"connection_id": conn.ID,
	}, time.Now())
	if err != nil {
		return err
	}
	if err := r.emit(conn, w, connected); err != nil {
		return err
	}
	conn.markOpen()

	frames := time.NewTicker(r.config.DemoInterval)
	defer frames.Stop()
	keepAlive := time.NewTicker(r.config.KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-frames.C:
			if err := r.emit(conn, w, demo.Next()); err != nil {
				return err
			}
		case <-keepAlive.C:
			if _, err := w.Write(sse.KeepAlive()); err != nil {
				return err
			}
			conn.touch(time.Now())
			r.metrics.framesRelayed.WithLabelValues(string(conn.Variant), frame.KindKeepAlive.String()).Inc()
		}
	}
}

func (r *Relay) emit(conn *Connection, w *sse.Writer, f frame.Frame) error {
	if err := w.WriteEvent(f.Event()); err != nil {
		return err
	}
	conn.touch(time.Now())
	r.metrics.framesRelayed.WithLabelValues(string(conn.Variant), f.Kind.String()).Inc()
	return nil
}

// logEnd records why a stream ended. Client disconnects are expected and
// only logged at debug level.
func (r *Relay) logEnd(ctx context.Context, conn *Connection, err error, written int64) {
	attrs := []any{
		"connection_id", conn.ID,
		"variant", string(conn.Variant),
		"bytes", written,
		"duration", time.Since(conn.OpenedAt),
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.logger.Info("stream reached max lifetime", attrs...)
	case err == nil:
		r.logger.Debug("upstream closed stream", attrs...)
	case ctx.Err() != nil, errors.Is(err, io.ErrClosedPipe):
		r.logger.Debug("client disconnected", attrs...)
	default:
		r.logger.Warn("stream ended with error", append(attrs, "error", err)...)
	}
}

// streamBody is the response body handed to fasthttp. fasthttp closes the
// body stream once the response is done, whether the client read it to the
// end or went away, which cancels the connection.
type streamBody struct {
	*io.PipeReader
	conn *Connection
}

func (b *streamBody) Close() error {
	b.conn.Close()
	return b.PipeReader.Close()
}

func (b *streamBody) CloseWithError(err error) error {
	b.conn.Close()
	return b.PipeReader.CloseWithError(err)
}
