package docgraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Editor defines the operations compilations may use to modify a document
// graph: the Store's mutation surface plus id resolution. A *Document is an
// Editor.
type Editor interface {
	// ChangeValue sets item[attr] to value; a nil value clears the attribute.
	ChangeValue(item *Item, attr string, value any)
	// InsertElement inserts value into the sequence item[attr] at index.
	InsertElement(item *Item, attr string, index int, value any)
	// RemoveElement removes item[attr][index] and returns it.
	RemoveElement(item *Item, attr string, index int) any
	// ResolveID returns the reachable item with the given id, or nil.
	ResolveID(id ID) *Item
}

// A Compilation is a function that applies a set of mutations to a graph using
// the given Editor and returns a non-nil error if those fail. It supports
// transactional semantics via Document.Apply.
//
// See the examples for demonstrations on how to write compilations.
type Compilation func(ctx context.Context, e Editor) error

// Apply runs c inside a new transaction named name.
//
// If c succeeds, the ended transaction is returned for the caller to keep on an
// undo stack. If c fails, the transaction is canceled while it ends, so every
// change c made (and every change ending handlers made in response) is reverted
// before Apply returns c's error. Apply fails with ErrTransactionOpen if a
// transaction is already open.
func (d *Document) Apply(ctx context.Context, name string, c Compilation) (*Transaction, error) {
	ctx, span := tracer.Start(ctx, "Document.Apply", trace.WithAttributes(
		attribute.String(docgraphGraphName, d.name),
		attribute.String("transaction", name),
	))
	defer span.End()

	tx, err := d.BeginTransaction(name)
	if err != nil {
		span.SetStatus(codes.Error, "begin")
		span.RecordError(err)
		return nil, err
	}

	cerr := c(ctx, d)
	if cerr != nil {
		canceler := d.AddTransactionHandler(EventTransactionEnding, func(ending *Transaction) {
			if ending != tx {
				return
			}
			if err := d.CancelTransaction(); err != nil {
				component.Logger(ctx).Error("Could not cancel failed compilation", slog.String("transaction", name), slog.Any("error", err))
			}
		})
		defer d.RemoveHandler(canceler)
	}

	tx, err = d.EndTransaction()
	if tx != nil {
		span.SetAttributes(attribute.Int("changes", len(tx.Changes)))
	}
	if cerr != nil {
		component.Logger(ctx).Debug("Compilation reverted", slog.String("transaction", name), slog.Any("error", cerr))
		span.SetStatus(codes.Error, "compile")
		span.RecordError(cerr)
		return nil, fmt.Errorf("compile %q: %w", name, cerr)
	}
	if err != nil {
		// an ending handler canceled a compilation that succeeded
		span.SetStatus(codes.Error, "end")
		span.RecordError(err)
		return nil, err
	}
	return tx, nil
}
