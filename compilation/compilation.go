/*
Package compilation enables distributed compilations across processes by
enabling callers to create reproducible graph edits that can be stored,
transmitted, and applied consistently across different documents.

The package provides a [Recorder] for collecting edit steps addressed by item
id, and a [Replay] function for executing these steps as a
[docgraph.Compilation]. Applied through [docgraph.Document.Apply], a replayed
compilation is atomic: if any step fails, every step before it is reverted.

The compilation package decouples between domain-specific operations and
applying graph edits, providing a clear separation of responsibilities between
the components deciding on edits and the documents holding the graphs.
*/
package compilation

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"iter"

	"github.com/go-digitaltwin/go-docgraph"
)

// Step represents a single atomic edit of a document graph. Each Step
// encapsulates a specific change that can be applied to the graph.
//
// In distributed compilation scenarios, Steps form the fundamental units of work
// that can be serialised and transmitted across process boundaries. Steps
// address items by id, so they apply to any document holding items with those
// ids.
//
// All Step implementations must be properly registered with gob to ensure
// consistent behaviour across environments.
type Step interface {
	// Do applies the edit to the graph using the provided docgraph.Editor. It
	// returns an error if the edit cannot be applied because the addressed item
	// is not reachable or the addressed index is out of range.
	Do(context.Context, docgraph.Editor) error
	// Targets return a sequence of the ids of the items this Step edits.
	Targets() iter.Seq[docgraph.ID]
}

// Encode serialises a slice of Steps into a byte array for storage or
// transmission. It transforms compilation steps into a portable format that can
// cross process boundaries while preserving their semantic meaning.
//
// The function uses gob encoding to ensure consistent serialisation across Go
// environments. Values carried by the steps must be gob-encodable; items are.
func Encode(s []Step) (data []byte, err error) {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(s); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a slice of Steps from a previously encoded byte array. It
// restores compilation steps from their portable format back into executable
// graph edits that can be replayed in any compatible document.
func Decode(data []byte) (steps []Step, err error) {
	var s []Step
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return s, nil
}

// Recorder collects a sequence of graph edits that can be applied to a graph
// via a [docgraph.Editor]. Each edit is stored as a separate [Step] in the order
// it was added.
//
// The zero value of Recorder is ready to use. Do not copy a non-zero Recorder.
type Recorder struct {
	steps []Step
}

// Reset clears all accumulated steps, returning the Recorder to its initial
// empty state. This allows the Recorder to be reused for a new compilation
// sequence without allocating a new instance.
func (r *Recorder) Reset() {
	r.steps = nil
}

// Steps returns a copy of the currently recorded steps.
//
// Modifying the returned slice does not affect the Recorder's internal state,
// ensuring the integrity of the original recording.
func (r *Recorder) Steps() []Step {
	s := make([]Step, len(r.steps))
	copy(s, r.steps)
	return s
}

// Replay creates a [docgraph.Compilation] function that sequentially applies a
// series of steps.
//
// If any step fails during execution, the process stops immediately and returns
// the error, leaving the graph in a partially modified state. Apply the
// compilation through [docgraph.Document.Apply] to revert the partial edits.
func Replay(steps []Step) docgraph.Compilation {
	return func(ctx context.Context, e docgraph.Editor) error {
		for i, step := range steps {
			if err := step.Do(ctx, e); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		return nil
	}
}

// Targets iterate over the ids of all items edited by the provided steps,
// yielding each id once.
func Targets(steps []Step) iter.Seq[docgraph.ID] {
	return func(yield func(docgraph.ID) bool) {
		var seen = make(map[docgraph.ID]struct{})
		for _, step := range steps {
			for target := range step.Targets() {
				if _, ok := seen[target]; ok {
					continue
				}
				seen[target] = struct{}{}
				if !yield(target) {
					return
				}
			}
		}
	}
}

// SetValue records a step that sets item[attr] to value; a nil value clears the
// attribute.
func (r *Recorder) SetValue(item docgraph.ID, attr string, value any) {
	r.steps = append(r.steps, setValue{Item: item, Attr: attr, Value: value})
}

// Insert records a step that inserts value into the sequence item[attr] at
// index.
func (r *Recorder) Insert(item docgraph.ID, attr string, index int, value any) {
	r.steps = append(r.steps, insertElement{Item: item, Attr: attr, Index: index, Value: value})
}

// Append records a step that appends value to the sequence item[attr], however
// long the sequence is when the step is replayed.
func (r *Recorder) Append(item docgraph.ID, attr string, value any) {
	r.steps = append(r.steps, insertElement{Item: item, Attr: attr, Index: appendIndex, Value: value})
}

// Remove records a step that removes item[attr][index].
func (r *Recorder) Remove(item docgraph.ID, attr string, index int) {
	r.steps = append(r.steps, removeElement{Item: item, Attr: attr, Index: index})
}
