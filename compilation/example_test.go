package compilation_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-digitaltwin/go-docgraph"
	"github.com/go-digitaltwin/go-docgraph/compilation"
)

// diagram returns the graph the examples in this package edit: a board holding
// a single box.
func diagram() *docgraph.Item {
	return docgraph.NewItem(1,
		docgraph.Prop("title", "Untitled"),
		docgraph.Children("shapes",
			docgraph.NewItem(2, docgraph.Prop("label", "A")),
		),
	)
}

// We demonstrate how to use the Recorder to capture, replay, and manage graph
// edits. It shows the complete workflow from recording edits to applying them
// to a document, including encoding and decoding steps for transmission across
// process boundaries, while highlighting the defensive copy behaviour of the
// Steps method.
func ExampleRecorder() {
	// Initialise a recorder to capture graph edits.
	var recorder compilation.Recorder

	// Build a sequence of graph edits. Steps address items by id; inserted items
	// carry their own ids.
	fmt.Println("Recording steps:")
	recorder.SetValue(2, "label", "A1")
	recorder.Append(1, "shapes", docgraph.NewItem(3, docgraph.Prop("label", "B")))
	recorder.Insert(1, "shapes", 0, docgraph.NewItem(4, docgraph.Prop("label", "C")))
	recorder.Remove(1, "shapes", 1)
	recorder.SetValue(1, "title", nil)

	// Retrieve the recorded steps.
	steps := recorder.Steps()
	fmt.Printf("Recorded %d steps\n", len(steps))

	encodedSteps, err := compilation.Encode(steps)
	if err != nil {
		panic(fmt.Sprintf("Failed to encode steps: %v", err))
	}

	// In a distributed scenario, the encoded bytes would be transmitted to another
	// process. Here we simulate that by simply using the encoded bytes directly.

	// Decode the steps in the "receiving" process.
	fmt.Println("\nDecoding steps in receiving process:")
	decodedSteps, err := compilation.Decode(encodedSteps)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Decoded %d steps\n", len(decodedSteps))

	// Replay the decoded steps on the receiving process' copy of the graph.
	fmt.Println("\nReplaying decoded steps:")
	doc := docgraph.New(diagram())
	defer doc.Close()
	tx, err := doc.Apply(context.Background(), "replay", compilation.Replay(decodedSteps))
	if err != nil {
		panic(err)
	}
	fmt.Printf("%d changes\n", len(tx.Changes))
	fmt.Println(doc.Root())
	fmt.Println(doc.ResolveID(4))
	fmt.Println(doc.ResolveID(2))

	// Demonstrate the defensive copy behaviour of Steps().
	steps = nil
	fmt.Printf("\nModified steps length: %d\n", len(steps))
	fmt.Printf("Original recorder steps length: %d\n", len(recorder.Steps()))

	// Clear the recorder and verify its state.
	recorder.Reset()
	fmt.Printf("\nSteps after reset: %d\n", len(recorder.Steps()))

	// Confirm the recorder remains functional after reset.
	recorder.SetValue(1, "title", "Architecture")
	fmt.Printf("Steps after recording a new step: %d\n", len(recorder.Steps()))

	// Output:
	// Recording steps:
	// Recorded 5 steps
	//
	// Decoding steps in receiving process:
	// Decoded 5 steps
	//
	// Replaying decoded steps:
	// 5 changes
	// item(1){shapes:[4 3]}
	// item(4){label:"C"}
	// <nil>
	//
	// Modified steps length: 0
	// Original recorder steps length: 5
	//
	// Steps after reset: 0
	// Steps after recording a new step: 1
}

// A replayed compilation fails on the first step that cannot be applied. Applied
// through a Document, the steps before it are reverted.
func ExampleReplay_unresolved() {
	doc := docgraph.New(diagram())
	defer doc.Close()

	var recorder compilation.Recorder
	recorder.SetValue(2, "label", "renamed")
	recorder.SetValue(9, "label", "missing") // no item 9 in this graph

	_, err := doc.Apply(context.Background(), "rename", compilation.Replay(recorder.Steps()))
	fmt.Println(err)
	fmt.Println(errors.Is(err, docgraph.ErrUnresolved))
	fmt.Println(doc.ResolveID(2))
	// Output:
	// compile "rename": step 1: item 9: unresolved item
	// true
	// item(2){label:"A"}
}

// We demonstrate how Targets extracts the unique set of items that will be
// affected by a compilation. This function is essential for pre-execution
// analysis: determining which items need to be locked, validating permissions,
// or optimising batch operations of the affected items.
func ExampleTargets() {
	// Create a recorder to capture graph edits.
	var recorder compilation.Recorder

	// Build a set of steps where items appear multiple times across different
	// kinds of edits.
	recorder.SetValue(2, "label", "A")
	recorder.SetValue(2, "label", "B") // Duplicate - but Targets yields each item only once.
	recorder.Append(1, "shapes", docgraph.NewItem(3))
	recorder.Insert(3, "points", 0, 1.5)
	recorder.Remove(1, "shapes", 0)
	recorder.SetValue(5, "targetId", docgraph.ID(3)) // Targets do not include referenced items.

	steps := recorder.Steps()
	// The Targets function provides a deduplicated view of all items that will be
	// edited by the compilation, regardless of:
	//	- How many times an item appears in the steps
	//	- What kind of edit affects the item
	//
	// This enables pre-processing capabilities, such as
	//	- Locking only the affected items before execution
	//	- Validating that all target items meet preconditions
	//	- Computing the minimal subgraph that needs to be loaded
	fmt.Println("Unique items affected by compilation steps:")
	for target := range compilation.Targets(steps) {
		fmt.Println(target)
	}

	// Unordered output:
	// Unique items affected by compilation steps:
	// 2
	// 1
	// 3
	// 5
}
