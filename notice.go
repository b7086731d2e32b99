package docgraph

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Action names what happened to the transaction a Notice reports on.
type Action string

const (
	ActionEnded  Action = "ended"
	ActionUndone Action = "undone"
	ActionRedone Action = "redone"
)

// ItemSnapshot captures the property values (references included) of one item
// a transaction touched, as they were when the Notice was taken.
//
// Detached is set for items that were not reachable from the root at that time,
// e.g. items the transaction removed; their Properties hold the last values
// they had.
type ItemSnapshot struct {
	ID         ID
	Properties map[string]any
	Detached   bool
}

// Notice reports a concluded transaction, or an undo or redo of one, to
// collaborators outside the process. It carries a snapshot of every item the
// transaction touched: every item whose attributes it changed, and every item in
// a subtree it attached or detached.
type Notice struct {
	Graph       string
	Transaction string
	Action      Action
	Items       []ItemSnapshot
	// The time, in UTC, the notice was taken. The information in this message is
	// accurate up to this timestamp, not a moment afterwards.
	Timestamp time.Time
}

// IsEmpty reports whether the notice carries no items, i.e. its transaction
// changed nothing.
func (n Notice) IsEmpty() bool { return len(n.Items) == 0 }

// NoticeOf snapshots the items tx touched, in the order the transaction first
// touched them. It must be called synchronously, from the handler of the event
// that reports the action, so that the snapshot reflects the graph right after
// the action.
func NoticeOf(doc *Document, tx *Transaction, action Action) Notice {
	seen := make(map[*Item]bool)
	var touched []*Item
	touch := func(it *Item) {
		if !seen[it] {
			seen[it] = true
			touched = append(touched, it)
		}
	}
	for _, c := range tx.Changes {
		touch(c.Item)
		for _, it := range c.Attached() {
			VisitSubtree(it, touch)
		}
		for _, it := range c.Detached() {
			VisitSubtree(it, touch)
		}
	}

	n := Notice{
		Graph:       doc.Name(),
		Transaction: tx.Name,
		Action:      action,
		Items:       make([]ItemSnapshot, 0, len(touched)),
		Timestamp:   time.Now().UTC(),
	}
	for _, it := range touched {
		n.Items = append(n.Items, snapshot(it, !doc.Contains(it)))
	}
	return n
}

func snapshot(item *Item, detached bool) ItemSnapshot {
	props := make(map[string]any)
	VisitProperties(item, func(it *Item, attr string) {
		v := it.Get(attr)
		if seq, ok := v.([]any); ok {
			v = slices.Clone(seq)
		}
		props[attr] = v
	})
	return ItemSnapshot{ID: item.ID(), Properties: props, Detached: detached}
}

// FormatNotice returns a human-readable representation of the notice.
// The indent string is prepended to each line.
func FormatNotice(n Notice, indent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, indent+"%s %q on %q at %s\n", n.Action, n.Transaction, n.Graph, n.Timestamp.Format(time.RFC3339))
	for _, s := range n.Items {
		mark := "*"
		if s.Detached {
			mark = "-"
		}
		fmt.Fprintf(&b, indent+"%s item(%d)\n", mark, s.ID)
		for _, k := range slices.Sorted(maps.Keys(s.Properties)) {
			fmt.Fprintf(&b, indent+"  %s: %v\n", k, s.Properties[k])
		}
	}
	return b.String()
}
