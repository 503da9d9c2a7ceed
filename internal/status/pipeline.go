// Package status models a fixed, linearly ordered stage pipeline and computes
// tracker views over it. It is pure: no I/O, no mutation of the orders it reads.
package status

import (
	"fmt"
	"time"
)

// Stage is one step of a pipeline. Position is its 0-based rank and never
// changes after construction.
type Stage struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Position int    `json:"position"`
}

// StageView is the tracker's verdict for a single stage.
type StageView struct {
	Stage
	Completed bool       `json:"completed"`
	Active    bool       `json:"active"`
	Pending   bool       `json:"pending"`
	ReachedAt *time.Time `json:"reached_at,omitempty"`
}

// Pipeline is an immutable ordered stage list.
type Pipeline struct {
	stages []Stage
	index  map[string]int
}

// New builds a pipeline from stages whose positions must be 0..n-1 with
// unique keys.
func New(stages ...Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline needs at least one stage")
	}
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.Position != i {
			return nil, fmt.Errorf("stage %q has position %d, want %d", s.Key, s.Position, i)
		}
		if _, dup := index[s.Key]; dup {
			return nil, fmt.Errorf("duplicate stage key %q", s.Key)
		}
		index[s.Key] = i
	}
	return &Pipeline{stages: stages, index: index}, nil
}

// MustNew is New for compile-time pipelines.
func MustNew(stages ...Stage) *Pipeline {
	p, err := New(stages...)
	if err != nil {
		panic(err)
	}
	return p
}

// Stages returns a copy of the stage list.
func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Index returns the position of key, or -1 when the backend reported a stage
// this pipeline does not know. Unknown keys are not an error: the tracker
// renders everything as pending instead of failing.
func (p *Pipeline) Index(key string) int {
	i, ok := p.index[key]
	if !ok {
		return -1
	}
	return i
}

// Allows reports whether moving from one stage to another keeps the
// non-decreasing position order. Unknown targets are never allowed; an
// unknown source allows anything known, since there is no position to regress
// from.
func (p *Pipeline) Allows(from, to string) bool {
	ti := p.Index(to)
	if ti < 0 {
		return false
	}
	fi := p.Index(from)
	return ti >= fi
}

// Progress returns the fill fraction for the progress bar: 0 at the first
// stage or for an unknown status, 1 at the last.
func (p *Pipeline) Progress(current string) float64 {
	i := p.Index(current)
	if i <= 0 || len(p.stages) < 2 {
		return 0
	}
	return float64(i) / float64(len(p.stages)-1)
}

// Track computes the per-stage view for the given current status. reachedAt
// may be nil when no timestamps are known.
func (p *Pipeline) Track(current string, reachedAt func(key string) *time.Time) []StageView {
	cur := p.Index(current)
	views := make([]StageView, len(p.stages))
	for i, s := range p.stages {
		v := StageView{
			Stage:     s,
			Completed: cur >= 0 && i < cur,
			Active:    i == cur,
			Pending:   cur < 0 || i > cur,
		}
		if reachedAt != nil {
			v.ReachedAt = reachedAt(s.Key)
		}
		views[i] = v
	}
	return views
}

// ValidateTimestamps checks the reached-at invariant: a non-nil timestamp at
// position p requires non-nil timestamps at every earlier position.
func (p *Pipeline) ValidateTimestamps(reachedAt func(key string) *time.Time) error {
	if reachedAt == nil {
		return nil
	}
	seenNil := false
	for _, s := range p.stages {
		if reachedAt(s.Key) == nil {
			seenNil = true
			continue
		}
		if seenNil {
			return fmt.Errorf("stage %q reached but an earlier stage was not", s.Key)
		}
	}
	return nil
}
