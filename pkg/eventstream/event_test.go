package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/eventstream"
	"github.com/papercomputeco/brainstream/pkg/frame"
)

var _ = Describe("Event", func() {
	var f frame.Frame

	BeforeEach(func() {
		var err error
		f, err = frame.New(frame.TypeTrinityScore, map[string]any{"score": 87.5}, time.Unix(1735689600, 0).UTC())
		Expect(err).NotTo(HaveOccurred())
	})

	It("marshals FrameRelayedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.FrameRelayedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeFrameRelayed,
			EventID:       "evt_123",
			EmittedAt:     now,
			Source: eventstream.EventSource{
				Relay:    "relay-1",
				Upstream: "http://localhost:7777/events",
				Variant:  "proxy",
			},
			Connection: eventstream.ConnectionMeta{
				ID:       "conn-1",
				OpenedAt: now.Add(-2 * time.Second),
				Sequence: 3,
			},
			Frame: f,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("connection"))
		Expect(got).To(HaveKeyWithValue("frame", HaveKeyWithValue("type", "trinity_score")))
	})

	It("stamps new events with an id and the current schema", func() {
		event := eventstream.NewFrameRelayedEvent(
			eventstream.EventSource{Variant: "synthetic"},
			eventstream.ConnectionMeta{ID: "conn-9", Sequence: 1},
			f,
		)

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeFrameRelayed))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.EmittedAt).NotTo(BeZero())
		Expect(event.Key()).To(Equal("conn-9"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeFrameRelayed).To(Equal("brainstream.frame.relayed"))
	})

	It("provides ErrNilFrameEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilFrameEvent).To(MatchError("nil frame event"))
	})
})
