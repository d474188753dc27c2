package store_test

import (
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/frame"
	"github.com/papercomputeco/brainstream/pkg/sse"
	"github.com/papercomputeco/brainstream/pkg/store"
)

func decoded(eventType, data string) frame.Frame {
	return frame.Decode(&sse.Event{Type: eventType, Data: data}, time.Now())
}

var _ = Describe("Store", func() {
	var s *store.Store

	BeforeEach(func() {
		s = store.New()
	})

	Describe("Push", func() {
		It("keeps thoughts newest first", func() {
			s.Apply(decoded("thought", "A"))
			s.Apply(decoded("thought", "B"))

			snap := s.Snapshot()
			Expect(snap.ThoughtTexts()).To(Equal([]string{"B", "A"}))
			Expect(snap.Frames).To(HaveLen(2))
			Expect(snap.Total).To(BeNumerically("==", 2))
		})

		It("extracts thought text from object payloads", func() {
			s.Apply(decoded("thought", `{"text":"planning next step"}`))
			s.Apply(decoded("thought", `{"content":"reviewing"}`))
			s.Apply(decoded("thought", `{"other":1}`))

			Expect(s.Snapshot().ThoughtTexts()).To(Equal([]string{`{"other":1}`, "reviewing", "planning next step"}))
		})

		It("ignores keep-alive frames entirely", func() {
			s.Apply(decoded("", sse.KeepAliveData))
			s.Apply(decoded("message", sse.KeepAliveData))

			snap := s.Snapshot()
			Expect(snap.Thoughts).To(BeEmpty())
			Expect(snap.Frames).To(BeEmpty())
			Expect(snap.Total).To(BeZero())
			Expect(snap.LastFrameAt.IsZero()).To(BeTrue())
		})

		It("keeps a thought whose text reads keep-alive", func() {
			s.Apply(decoded("thought", sse.KeepAliveData))

			snap := s.Snapshot()
			Expect(snap.ThoughtTexts()).To(Equal([]string{"keep-alive"}))
			Expect(snap.Total).To(BeNumerically("==", 1))
		})

		It("logs non-thought frames only in the frame log", func() {
			s.Push(decoded("custom", "x"))

			snap := s.Snapshot()
			Expect(snap.Frames).To(HaveLen(1))
			Expect(snap.Thoughts).To(BeEmpty())
		})

		It("evicts the oldest entries past capacity", func() {
			s = store.New(store.WithCapacity(3))
			for i := range 5 {
				s.Apply(decoded("thought", fmt.Sprintf("t%d", i)))
			}

			snap := s.Snapshot()
			Expect(snap.Capacity).To(Equal(3))
			Expect(snap.ThoughtTexts()).To(Equal([]string{"t4", "t3", "t2"}))
			Expect(snap.Frames).To(HaveLen(3))
			Expect(snap.Total).To(BeNumerically("==", 5))
		})
	})

	Describe("UpdateDerived", func() {
		It("sets the score from a numeric payload", func() {
			Expect(s.UpdateDerived(decoded("trinity_score", "87.5"))).To(BeTrue())
			Expect(s.Derived().Score).To(Equal(87.5))
			Expect(s.Derived().HasScore).To(BeTrue())
		})

		It("sets the score from a quoted or object payload", func() {
			s.UpdateDerived(decoded("trinity_score", `"64"`))
			Expect(s.Derived().Score).To(Equal(64.0))

			s.UpdateDerived(decoded("trinity_score", `{"score": 72.25}`))
			Expect(s.Derived().Score).To(Equal(72.25))
		})

		It("leaves the score unchanged on an unparseable payload", func() {
			s.UpdateDerived(decoded("trinity_score", "87.5"))

			Expect(s.UpdateDerived(decoded("trinity_score", "n/a"))).To(BeFalse())
			Expect(s.Derived().Score).To(Equal(87.5))

			Expect(s.UpdateDerived(decoded("trinity_score", `{"score":"high"}`))).To(BeFalse())
			Expect(s.Derived().Score).To(Equal(87.5))
		})

		It("sets the active agent", func() {
			s.UpdateDerived(decoded("active_agent", `"planner"`))
			Expect(s.Derived().ActiveAgent).To(Equal("planner"))

			s.UpdateDerived(decoded("active_agent", `{"agent":"critic"}`))
			Expect(s.Derived().ActiveAgent).To(Equal("critic"))

			Expect(s.UpdateDerived(decoded("active_agent", `{"agent":42}`))).To(BeFalse())
			Expect(s.Derived().ActiveAgent).To(Equal("critic"))
		})

		It("sets the brain state", func() {
			s.UpdateDerived(decoded("brain_state", `{"state":"reasoning"}`))
			Expect(s.Derived().BrainState).To(Equal("reasoning"))
		})

		It("ignores kinds outside the whitelist", func() {
			Expect(s.UpdateDerived(decoded("thought", "99"))).To(BeFalse())
			Expect(s.UpdateDerived(decoded("message", `{"score":99}`))).To(BeFalse())
			Expect(s.Derived()).To(Equal(store.DerivedState{}))
		})
	})

	Describe("Reset", func() {
		It("returns to an empty store", func() {
			s.Apply(decoded("thought", "A"))
			s.Apply(decoded("trinity_score", "50"))
			s.SetConnected(true)

			s.Reset()

			snap := s.Snapshot()
			Expect(snap.Connected).To(BeFalse())
			Expect(snap.Thoughts).To(BeEmpty())
			Expect(snap.Frames).To(BeEmpty())
			Expect(snap.Derived).To(Equal(store.DerivedState{}))
			Expect(snap.Total).To(BeZero())
		})

		It("isolates separately constructed stores", func() {
			other := store.New()
			s.Apply(decoded("thought", "only here"))

			Expect(other.Snapshot().Thoughts).To(BeEmpty())
		})
	})

	It("serves snapshots to concurrent readers while a single writer pushes", func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			for i := range 500 {
				s.Apply(decoded("thought", fmt.Sprintf("%d", i)))
			}
		}()

		for range 100 {
			snap := s.Snapshot()
			Expect(len(snap.Thoughts)).To(BeNumerically("<=", store.DefaultCapacity))
		}
		wg.Wait()

		Expect(s.Snapshot().Thoughts[0].Text).To(Equal("499"))
	})
})
