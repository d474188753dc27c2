package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/eventstream"
	"github.com/papercomputeco/brainstream/pkg/frame"
	"github.com/papercomputeco/brainstream/pkg/logger"
	"github.com/papercomputeco/brainstream/pkg/storage/inmemory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.FrameRelayedEvent
	err    error
	block  chan struct{}
}

func (p *recordingPublisher) PublishFrame(_ context.Context, ev *eventstream.FrameRelayedEvent) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []*eventstream.FrameRelayedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.FrameRelayedEvent(nil), p.events...)
}

func testEvent(conn string, seq uint64, eventType, data string) *eventstream.FrameRelayedEvent {
	return eventstream.NewFrameRelayedEvent(
		eventstream.EventSource{Variant: "proxy"},
		eventstream.ConnectionMeta{ID: conn, Sequence: seq},
		frame.Restore(eventType, "", data, time.Now()),
	)
}

var _ = Describe("Worker Pool", func() {
	var (
		wp        *Pool
		publisher *recordingPublisher
		driver    *inmemory.Driver
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		publisher = &recordingPublisher{}
		driver = inmemory.NewDriver(100)

		var err error
		wp, err = NewPool(&Config{
			Publisher: publisher,
			Driver:    driver,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		wp.Close()
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			Expect(wp.Enqueue(Job{Event: testEvent("c1", 1, "thought", "hi")})).To(BeTrue())
		})

		It("refuses jobs without an event", func() {
			Expect(wp.Enqueue(Job{})).To(BeFalse())
		})
	})

	It("publishes and archives every frame", func() {
		for i, data := range []string{"A", "B", "C"} {
			Expect(wp.Enqueue(Job{Event: testEvent("c1", uint64(i+1), "thought", data)})).To(BeTrue())
		}
		wp.Close()

		Expect(publisher.Events()).To(HaveLen(3))

		n, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(3)))

		recs, err := driver.ByConnection(ctx, "c1", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(3))

		stats := wp.Stats()
		Expect(stats.Enqueued).To(Equal(uint64(3)))
		Expect(stats.Published).To(Equal(uint64(3)))
		Expect(stats.Archived).To(Equal(uint64(3)))
		Expect(stats.Failed).To(BeZero())
	})

	It("still archives when publishing fails", func() {
		publisher.err = errors.New("broker down")
		Expect(wp.Enqueue(Job{Event: testEvent("c1", 1, "thought", "A")})).To(BeTrue())
		wp.Close()

		n, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
		Expect(wp.Stats().Failed).To(Equal(uint64(1)))
	})

	It("counts archive failures", func() {
		Expect(wp.Enqueue(Job{Event: testEvent("c1", 1, "", "keep-alive")})).To(BeTrue())
		wp.Close()

		Expect(wp.Stats().Archived).To(BeZero())
		Expect(wp.Stats().Failed).To(Equal(uint64(1)))
	})

	It("drops jobs instead of blocking when the queue is full", func() {
		blocking := &recordingPublisher{block: make(chan struct{})}
		small, err := NewPool(&Config{
			Publisher:  blocking,
			NumWorkers: 1,
			QueueSize:  1,
		})
		Expect(err).NotTo(HaveOccurred())

		accepted := 0
		for i := range 10 {
			if small.Enqueue(Job{Event: testEvent("c1", uint64(i+1), "thought", "x")}) {
				accepted++
			}
		}

		Expect(accepted).To(BeNumerically("<=", 2))
		Expect(small.Stats().Dropped).To(Equal(uint64(10 - accepted)))

		close(blocking.block)
		small.Close()
	})

	It("tolerates Close being called twice", func() {
		wp.Close()
		wp.Close()
	})
})
