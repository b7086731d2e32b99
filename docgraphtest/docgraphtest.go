/*
Package docgraphtest provides a suite of tests designed to assess document
graphs as assembled by a caller (with its own options, loggers and handlers).

The tests operate on a [docgraph.Document] through its Apply, Undo and Redo
methods to check functional correctness: every compilation is applied, undone
and redone, and the graph is checked after each of these, together with the
consistency of the document's derived indexes (see [assert.Consistent]).

Call docgraphtest.Run in its own test to invoke the test-suite:

	func TestDocument(t *testing.T) {
		docgraphtest.Run(t, func(root *docgraph.Item) *docgraph.Document {
			return docgraph.New(root, docgraph.WithGraphName("suite"))
		})
	}

The test cases in this suite focus on the basic graph operations:

  - Changing values and editing sequences, then undoing and redoing the edits.
  - Moving and replacing children, and observing the parent index follow.
  - Removing instances of canonical entries within one transaction.
  - Reverting failed compilations.

So, callers registering handlers of their own are encouraged to perform
additional tests which are specific to those handlers.
*/
package docgraphtest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/go-digitaltwin/go-docgraph"
	"github.com/go-digitaltwin/go-docgraph/assert"
)

// Item ids shared by the fixtures of the suite.
const (
	rootID docgraph.ID = iota + 1
	canonicalID
	canonicalPartID
	instance1ID
	instance2ID
	groupAID
	groupBID
	leafID
)

type testCase struct {
	// Subtest name.
	name string
	// A path leading to the test-case's file and line in the source code.
	location string
	// A fresh graph for the case to edit.
	root func() *docgraph.Item
	// A compilation executes a single transaction on the tested document using its
	// argument [docgraph.Editor].
	compilation docgraph.Compilation
	// Whether the compilation is expected to fail, in which case only the reverted
	// checks run.
	fails bool
	// Checks to run after the compilation applied, and again after it was undone
	// and redone.
	applied []check
	// Checks to run after the compilation was undone (or canceled, when it fails).
	reverted []check
}

var errCompilation = errors.New("compilation failed on purpose")

var cases = []testCase{
	{
		name:     "undo-redo-round-trip",
		location: locateSource(),
		root: func() *docgraph.Item {
			return docgraph.NewItem(rootID,
				docgraph.Prop("prop1", "foo"),
				docgraph.Prop("array", []any{}),
			)
		},
		compilation: func(ctx context.Context, e docgraph.Editor) error {
			root := e.ResolveID(rootID)
			e.ChangeValue(root, "prop1", "bar")
			e.InsertElement(root, "array", 0, "a")
			e.InsertElement(root, "array", 1, "b")
			e.InsertElement(root, "array", 2, "c")
			e.RemoveElement(root, "array", 1)
			return nil
		},
		applied: []check{
			property(rootID, "prop1", "bar"),
			property(rootID, "array", []any{"a", "c"}),
		},
		reverted: []check{
			property(rootID, "prop1", "foo"),
			property(rootID, "array", []any{}),
		},
	},
	{
		name:     "insert-into-absent-attribute",
		location: locateSource(),
		root: func() *docgraph.Item {
			return docgraph.NewItem(rootID, docgraph.Prop("prop1", "foo"))
		},
		compilation: func(ctx context.Context, e docgraph.Editor) error {
			root := e.ResolveID(rootID)
			e.InsertElement(root, "array", 0, "a")
			e.InsertElement(root, "items", 0, docgraph.NewItem(leafID))
			return nil
		},
		applied: []check{
			property(rootID, "array", []any{"a"}),
			parentOf(leafID, rootID),
		},
		reverted: []check{
			property(rootID, "array", nil),
			property(rootID, "items", nil),
			absent(leafID),
		},
	},
	{
		name:     "clear-value",
		location: locateSource(),
		root: func() *docgraph.Item {
			return docgraph.NewItem(rootID, docgraph.Prop("label", "x"))
		},
		compilation: func(ctx context.Context, e docgraph.Editor) error {
			e.ChangeValue(e.ResolveID(rootID), "label", nil)
			return nil
		},
		applied:  []check{property(rootID, "label", nil)},
		reverted: []check{property(rootID, "label", "x")},
	},
	{
		name:     "failed-compilation",
		location: locateSource(),
		root: func() *docgraph.Item {
			return docgraph.NewItem(rootID, docgraph.Prop("prop1", "foo"), docgraph.Children("items"))
		},
		compilation: func(ctx context.Context, e docgraph.Editor) error {
			root := e.ResolveID(rootID)
			e.ChangeValue(root, "prop1", "bar")
			e.InsertElement(root, "items", 0, docgraph.NewItem(leafID))
			return errCompilation
		},
		fails: true,
		reverted: []check{
			property(rootID, "prop1", "foo"),
			absent(leafID),
		},
	},
	{
		name:     "move-child",
		location: locateSource(),
		root:     groups,
		compilation: func(ctx context.Context, e docgraph.Editor) error {
			leaf := e.RemoveElement(e.ResolveID(groupAID), "items", 0)
			e.InsertElement(e.ResolveID(groupBID), "items", 0, leaf)
			return nil
		},
		applied: []check{
			parentOf(leafID, groupBID),
			lowestCommonAncestor(leafID, groupAID, rootID),
			lowestCommonAncestor(leafID, groupBID, groupBID),
		},
		reverted: []check{
			parentOf(leafID, groupAID),
			lowestCommonAncestor(leafID, groupBID, rootID),
		},
	},
	{
		name:     "detach-subtree",
		location: locateSource(),
		root:     groups,
		compilation: func(ctx context.Context, e docgraph.Editor) error {
			e.RemoveElement(e.ResolveID(rootID), "groups", 0)
			return nil
		},
		applied: []check{
			absent(groupAID),
			absent(leafID),
		},
		reverted: []check{
			parentOf(groupAID, rootID),
			parentOf(leafID, groupAID),
		},
	},
	{
		name:     "dangling-reference",
		location: locateSource(),
		root:     groups,
		compilation: func(ctx context.Context, e docgraph.Editor) error {
			e.ChangeValue(e.ResolveID(leafID), "targetId", docgraph.ID(404))
			return nil
		},
		applied:  []check{reference(leafID, "targetId", 0)},
		reverted: []check{reference(leafID, "targetId", groupBID)},
	},
	{
		name:     "remove-one-instance",
		location: locateSource(),
		root:     instances,
		compilation: func(ctx context.Context, e docgraph.Editor) error {
			e.RemoveElement(e.ResolveID(rootID), "items", 0)
			return nil
		},
		applied: []check{
			poolSize(1),
			refCount(canonicalID, 1),
			reference(instance2ID, docgraph.DefaultCanonicalReference, canonicalID),
		},
		reverted: []check{
			poolSize(1),
			refCount(canonicalID, 2),
		},
	},
	{
		name:     "remove-both-instances",
		location: locateSource(),
		root:     instances,
		compilation: func(ctx context.Context, e docgraph.Editor) error {
			root := e.ResolveID(rootID)
			e.RemoveElement(root, "items", 0)
			e.RemoveElement(root, "items", 0)
			return nil
		},
		applied: []check{
			poolSize(0),
			absent(canonicalID),
			absent(canonicalPartID),
		},
		reverted: []check{
			poolSize(1),
			refCount(canonicalID, 2),
			reference(instance1ID, docgraph.DefaultCanonicalReference, canonicalID),
		},
	},
	{
		name:     "redirect-instance",
		location: locateSource(),
		root:     instances,
		compilation: func(ctx context.Context, e docgraph.Editor) error {
			// both instances leave the canonical entry, one by redirection
			e.ChangeValue(e.ResolveID(instance1ID), docgraph.DefaultCanonicalReference, nil)
			e.RemoveElement(e.ResolveID(rootID), "items", 1)
			return nil
		},
		applied: []check{
			poolSize(0),
		},
		reverted: []check{
			poolSize(1),
			refCount(canonicalID, 2),
		},
	},
}

// groups is a root holding two groups; the first group holds a leaf referring
// to the second group.
//
//	root
//	├── groupA
//	│   └── leaf ──targetId──> groupB
//	└── groupB
func groups() *docgraph.Item {
	leaf := docgraph.NewItem(leafID, docgraph.Ref("targetId", groupBID))
	return docgraph.NewItem(rootID,
		docgraph.Children("groups",
			docgraph.NewItem(groupAID, docgraph.Children("items", leaf)),
			docgraph.NewItem(groupBID, docgraph.Children("items")),
		),
	)
}

// instances is a root holding two instances of a single canonical entry.
func instances() *docgraph.Item {
	canonical := docgraph.NewItem(canonicalID,
		docgraph.Children("items", docgraph.NewItem(canonicalPartID, docgraph.Prop("prop", "x"))),
	)
	return docgraph.NewItem(rootID,
		docgraph.Children("items",
			docgraph.NewItem(instance1ID, docgraph.Ref(docgraph.DefaultCanonicalReference, canonicalID)),
			docgraph.NewItem(instance2ID, docgraph.Ref(docgraph.DefaultCanonicalReference, canonicalID)),
		),
		docgraph.Children(docgraph.DefaultPoolAttribute, canonical),
	)
}

// Run runs the suite against documents constructed by newDoc. Documents must
// keep the default pool and canonical reference attributes.
func Run(t *testing.T, newDoc func(root *docgraph.Item) *docgraph.Document) {
	t.Helper()

	ctx := context.Background()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Logf("Read the source for test-case %v at %v", c.name, c.location)
			doc := newDoc(c.root())
			defer doc.Close()

			tx, err := doc.Apply(ctx, c.name, c.compilation)
			if c.fails {
				if !errors.Is(err, errCompilation) {
					t.Fatalf("Apply(%v) error = %v, want %v", c.name, err, errCompilation)
				}
				verify(t, doc, "canceled", c.reverted)
				return
			}
			if err != nil {
				t.Fatalf("Apply(%v) failed: %v", c.name, err)
			}
			verify(t, doc, "applied", c.applied)

			if err := doc.Undo(tx); err != nil {
				t.Fatalf("Undo(%v) failed: %v", c.name, err)
			}
			verify(t, doc, "undone", c.reverted)

			if err := doc.Redo(tx); err != nil {
				t.Fatalf("Redo(%v) failed: %v", c.name, err)
			}
			verify(t, doc, "redone", c.applied)
		})
	}
}

func verify(t *testing.T, doc *docgraph.Document, stage string, checks []check) {
	t.Helper()
	for _, check := range checks {
		if problem := check(doc); problem != "" {
			t.Errorf("Check %v graph: %v", stage, problem)
		}
	}
	if err := assert.Consistent(doc); err != nil {
		t.Errorf("Check %v graph: %v", stage, err)
	}
}

func locateSource() (path string) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		panic("runtime.Caller failed")
	}
	return fmt.Sprintf("%v:%v", file, line)
}
