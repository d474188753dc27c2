package degrade

import (
	"fmt"
	"sync"
	"time"

	"github.com/papercomputeco/brainstream/pkg/frame"
)

var demoThoughts = []string{
	"Scanning the repository graph for recent changes",
	"Cross-checking agent proposals against the trinity rubric",
	"Consolidating working memory",
	"Waiting on the planner to hand off",
	"Re-ranking candidate actions",
}

var demoAgents = []string{"planner", "critic", "executor"}

var demoStates = []string{"thinking", "idle", "acting"}

// DemoSource produces a deterministic rotation of plausible frames. It stands
// in for the brain when the synthetic stream is requested or the dashboard
// needs placeholder data.
type DemoSource struct {
	mu   sync.Mutex
	step int
	now  func() time.Time
}

// NewDemoSource returns a DemoSource starting at the first frame.
func NewDemoSource() *DemoSource {
	return &DemoSource{now: time.Now}
}

// Next returns the next demo frame. The rotation is thought, trinity_score,
// active_agent, brain_state.
func (d *DemoSource) Next() frame.Frame {
	d.mu.Lock()
	step := d.step
	d.step++
	d.mu.Unlock()

	round := step / 4
	at := d.now()

	var (
		f   frame.Frame
		err error
	)
	switch step % 4 {
	case 0:
		f, err = frame.New(frame.TypeThought, map[string]any{
			"text": demoThoughts[round%len(demoThoughts)],
		}, at)
	case 1:
		f, err = frame.New(frame.TypeTrinityScore, map[string]any{
			"score": demoScore(round),
		}, at)
	case 2:
		f, err = frame.New(frame.TypeActiveAgent, map[string]any{
			"agent": demoAgents[round%len(demoAgents)],
		}, at)
	default:
		f, err = frame.New(frame.TypeBrainState, map[string]any{
			"state": demoStates[round%len(demoStates)],
		}, at)
	}
	if err != nil {
		// Only maps of strings and numbers are marshaled above.
		panic(fmt.Sprintf("degrade: demo frame: %v", err))
	}

	f.ID = fmt.Sprintf("demo-%d", step)
	return f
}

// Placeholder returns one frame of each whitelisted kind, suitable for seeding
// an empty store.
func (d *DemoSource) Placeholder() []frame.Frame {
	out := make([]frame.Frame, 4)
	for i := range out {
		out[i] = d.Next()
	}
	return out
}

// demoScore walks between 60 and 95 so the score gauge visibly moves.
func demoScore(round int) float64 {
	return 60 + float64((round*7)%36)
}
