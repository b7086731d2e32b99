// Package docgraph provides the transactional, observable object graph behind
// an interactive document editor (e.g. a diagram tool).
//
// A document is a rooted graph of items. Each item carries an id and an ordered
// list of attributes; an attribute is a property (scalar data), a reference
// (the id of another item) or a child (an owned item or sequence of items). The
// child attributes form the containment tree of the graph, while references may
// point anywhere in it.
//
// Every edit enters through a Store, which emits a Change for it. The indexes of
// a Document follow those changes synchronously:
//
//   - the ReferenceIndex maps ids to reachable items and resolves references;
//   - the ParentIndex maps items to their owners, for lineage and lowest common
//     ancestor queries;
//   - the CanonicalPool counts the instances of each canonical entry and
//     collects entries that lose their last instance.
//
// A TransactionLog groups changes into transactions that can be canceled while
// they end, and undone and redone afterwards. Document.Apply runs a Compilation
// as one transaction, and a Publisher forwards concluded transactions to a
// pubsub topic for collaborators in other processes.
package docgraph
