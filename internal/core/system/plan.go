package system

import (
	"fmt"
	"io"
	"strings"
)

// Batch is a set of units that may run concurrently.
type Batch struct {
	Phase Phase
	Units []*Unit
}

// Plan is the frozen execution order: batches run one after another, the
// units inside a batch run in parallel.
type Plan struct {
	Batches []Batch
}

// Position returns the batch index of every unit in the plan.
func (p *Plan) Position() map[*Unit]int {
	pos := make(map[*Unit]int)
	for i, b := range p.Batches {
		for _, u := range b.Units {
			pos[u] = i
		}
	}
	return pos
}

// Units returns every unit in batch order.
func (p *Plan) Units() []*Unit {
	var out []*Unit
	for _, b := range p.Batches {
		out = append(out, b.Units...)
	}
	return out
}

// WriteTo renders one line per batch: "Phase/n: unit, unit".
func (p *Plan) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	n := 0
	for i, b := range p.Batches {
		if i > 0 && p.Batches[i-1].Phase != b.Phase {
			n = 0
		}
		names := make([]string, len(b.Units))
		for j, u := range b.Units {
			names[j] = u.Name
		}
		fmt.Fprintf(&sb, "%s/%d: %s\n", b.Phase, n, strings.Join(names, ", "))
		n++
	}
	written, err := io.WriteString(w, sb.String())
	return int64(written), err
}

func (p *Plan) String() string {
	var sb strings.Builder
	_, _ = p.WriteTo(&sb)
	return sb.String()
}

// levelize packs phase-ordered units into batches. Within a phase a unit lands
// one batch after the latest earlier unit it conflicts with, so conflicting
// units keep their registration order and everything else runs alongside.
func levelize(units []Unit) *Plan {
	plan := &Plan{}
	for start := 0; start < len(units); {
		phase := units[start].Phase
		end := start
		for end < len(units) && units[end].Phase == phase {
			end++
		}
		group := units[start:end]
		levels := make([]int, len(group))
		var batches []Batch
		for j := range group {
			lvl := 0
			for i := 0; i < j; i++ {
				if levels[i] >= lvl && conflicts(&group[i], &group[j]) {
					lvl = levels[i] + 1
				}
			}
			levels[j] = lvl
			if lvl == len(batches) {
				batches = append(batches, Batch{Phase: phase})
			}
			batches[lvl].Units = append(batches[lvl].Units, &group[j])
		}
		plan.Batches = append(plan.Batches, batches...)
		start = end
	}
	return plan
}
