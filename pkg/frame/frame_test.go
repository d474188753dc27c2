package frame_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/frame"
	"github.com/papercomputeco/brainstream/pkg/sse"
)

var _ = Describe("Kind", func() {
	DescribeTable("ParseKind",
		func(eventType string, expected frame.Kind) {
			Expect(frame.ParseKind(eventType)).To(Equal(expected))
		},
		Entry("empty is message", "", frame.KindMessage),
		Entry("message", "message", frame.KindMessage),
		Entry("thought", "thought", frame.KindThought),
		Entry("trinity_score", "trinity_score", frame.KindTrinityScore),
		Entry("active_agent", "active_agent", frame.KindActiveAgent),
		Entry("brain_state", "brain_state", frame.KindBrainState),
		Entry("connected", "connected", frame.KindConnected),
		Entry("keepalive", "keepalive", frame.KindKeepAlive),
		Entry("unrecognized", "widget_resize", frame.KindUnknown),
	)

	It("names kinds by their wire type", func() {
		Expect(frame.KindTrinityScore.String()).To(Equal("trinity_score"))
		Expect(frame.KindUnknown.String()).To(Equal("unknown"))
	})
})

var _ = Describe("Decode", func() {
	now := time.Unix(1760000000, 0)

	It("keeps JSON payloads structured", func() {
		f := frame.Decode(&sse.Event{Type: "thought", ID: "9", Data: `{"text":"A"}`}, now)
		Expect(f.Kind).To(Equal(frame.KindThought))
		Expect(f.Type).To(Equal("thought"))
		Expect(f.ID).To(Equal("9"))
		Expect(f.ReceivedAt).To(Equal(now))
		Expect(f.Payload.IsJSON()).To(BeTrue())

		var body struct{ Text string }
		Expect(f.Payload.Decode(&body)).To(Succeed())
		Expect(body.Text).To(Equal("A"))
	})

	It("carries non-JSON payloads as opaque text", func() {
		f := frame.Decode(&sse.Event{Type: "thought", Data: "A"}, now)
		Expect(f.Payload.IsJSON()).To(BeFalse())
		Expect(f.Payload.Raw).To(Equal("A"))
		Expect(f.Payload.Text()).To(Equal("A"))
		Expect(f.Payload.Decode(&struct{}{})).To(MatchError(frame.ErrNotJSON))
	})

	It("recognizes the keep-alive literal before parsing", func() {
		f := frame.Decode(&sse.Event{Data: sse.KeepAliveData}, now)
		Expect(f.IsKeepAlive()).To(BeTrue())
		Expect(f.Payload.IsJSON()).To(BeFalse())
	})

	It("treats a named event carrying the keep-alive text as that event", func() {
		f := frame.Decode(&sse.Event{Type: "thought", Data: sse.KeepAliveData}, now)
		Expect(f.IsKeepAlive()).To(BeFalse())
		Expect(f.Kind).To(Equal(frame.KindThought))
		Expect(f.Payload.Text()).To(Equal("keep-alive"))
	})

	It("defaults the event type to message", func() {
		f := frame.Decode(&sse.Event{Data: "{}"}, now)
		Expect(f.Type).To(Equal("message"))
		Expect(f.Kind).To(Equal(frame.KindMessage))
	})

	It("keeps unknown event types", func() {
		f := frame.Decode(&sse.Event{Type: "custom", Data: "1"}, now)
		Expect(f.Kind).To(Equal(frame.KindUnknown))
		Expect(f.Type).To(Equal("custom"))
	})

	It("converts back to an equivalent event", func() {
		ev := sse.Event{Type: "active_agent", ID: "3", Data: `"planner"`}
		Expect(frame.Decode(&ev, now).Event()).To(Equal(ev))
	})
})

var _ = Describe("Payload", func() {
	DescribeTable("Number",
		func(raw string, expected float64, ok bool) {
			n, found := frame.NewPayload(raw).Number("score", "value")
			Expect(found).To(Equal(ok))
			if ok {
				Expect(n).To(Equal(expected))
			}
		},
		Entry("bare number", "87.5", 87.5, true),
		Entry("quoted number", `"87.5"`, 87.5, true),
		Entry("object with score", `{"score": 91}`, 91.0, true),
		Entry("object with string value", `{"value": "12"}`, 12.0, true),
		Entry("unparseable text", "n/a", 0.0, false),
		Entry("quoted text", `"n/a"`, 0.0, false),
		Entry("object without key", `{"other": 1}`, 0.0, false),
		Entry("boolean", "true", 0.0, false),
		Entry("empty", "", 0.0, false),
	)

	DescribeTable("String",
		func(raw string, expected string, ok bool) {
			s, found := frame.NewPayload(raw).String("agent", "name")
			Expect(found).To(Equal(ok))
			Expect(s).To(Equal(expected))
		},
		Entry("quoted string", `"planner"`, "planner", true),
		Entry("bare text", "planner", "planner", true),
		Entry("object with agent", `{"agent":"critic"}`, "critic", true),
		Entry("object with name", `{"name":"critic"}`, "critic", true),
		Entry("object with empty value", `{"agent":""}`, "", false),
		Entry("number", "42", "", false),
		Entry("blank", "   ", "", false),
	)
})

var _ = Describe("New", func() {
	It("marshals structured values", func() {
		f, err := frame.New(frame.TypeTrinityScore, map[string]float64{"score": 70}, time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Kind).To(Equal(frame.KindTrinityScore))
		Expect(f.Payload.Raw).To(Equal(`{"score":70}`))
	})

	It("carries strings as raw text", func() {
		f, err := frame.New(frame.TypeThought, "thinking", time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Payload.Raw).To(Equal("thinking"))
		Expect(f.Payload.IsJSON()).To(BeFalse())
	})
})

var _ = Describe("JSON", func() {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	It("encodes JSON payloads inline and text payloads as strings", func() {
		score, err := frame.New(frame.TypeTrinityScore, map[string]float64{"score": 70}, at)
		Expect(err).NotTo(HaveOccurred())
		b, err := json.Marshal(score)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(ContainSubstring(`"payload":{"score":70}`))
		Expect(string(b)).To(ContainSubstring(`"kind":"trinity_score"`))

		thought, err := frame.New(frame.TypeThought, "plain words", at)
		Expect(err).NotTo(HaveOccurred())
		b, err = json.Marshal(thought)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(ContainSubstring(`"payload":"plain words"`))
	})

	It("decodes what it encodes", func() {
		orig, err := frame.New(frame.TypeActiveAgent, map[string]string{"agent": "critic"}, at)
		Expect(err).NotTo(HaveOccurred())
		orig.ID = "7"

		b, err := json.Marshal(orig)
		Expect(err).NotTo(HaveOccurred())

		var got frame.Frame
		Expect(json.Unmarshal(b, &got)).To(Succeed())
		Expect(got.Kind).To(Equal(frame.KindActiveAgent))
		Expect(got.ID).To(Equal("7"))
		Expect(got.ReceivedAt).To(Equal(at))
		name, ok := got.Payload.String("agent")
		Expect(ok).To(BeTrue())
		Expect(name).To(Equal("critic"))
	})

	It("decodes text payloads back to opaque text", func() {
		var got frame.Frame
		Expect(json.Unmarshal([]byte(`{"type":"thought","payload":"hmm","received_at":"2026-03-01T12:00:00Z"}`), &got)).To(Succeed())
		Expect(got.Kind).To(Equal(frame.KindThought))
		Expect(got.Payload.Raw).To(Equal("hmm"))
	})
})
