package docgraph

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/go-docgraph")
var meter = otel.Meter("github.com/go-digitaltwin/go-docgraph")

const (
	// docgraphGraphName is the attribute key used to associate each record with
	// the corresponding document graph (see WithGraphName). This enables both
	// collective examination across all documents of a process and individual
	// analysis per document.
	docgraphGraphName = "docgraph"
	// docgraphOutcome is the attribute key naming how a transaction concluded.
	docgraphOutcome = "outcome"
)

const (
	outcomeEnded    = "ended"
	outcomeCanceled = "canceled"
	outcomeUndone   = "undone"
	outcomeRedone   = "redone"
)

// ---- transaction.go ----

var (
	// transactionChanges measures the number of change records per ended
	// transaction.
	transactionChanges metric.Int64Histogram
	// transactionOutcomes counts concluded transactions and undo/redo replays,
	// labelled by docgraphOutcome.
	transactionOutcomes metric.Int64Counter
)

// ---- canonical.go ----

// canonicalCollected counts canonical entries removed from the pool because no
// reachable instance referred to them anymore.
var canonicalCollected metric.Int64Counter

// ---- publisher.go ----

var (
	// publishDuration measures the duration of publishing a single Notice,
	// including the duration it took to produce (to pubsub service) the entire
	// set of ItemChanged messages.
	publishDuration metric.Float64Histogram
	// publishFailures measures the number of failed publish processes.
	publishFailures metric.Int64Counter
)

func init() {
	var err error
	transactionChanges, err = meter.Int64Histogram(
		"docgraph.transaction.changes",
		metric.WithDescription("The number of change records in an ended transaction."),
	)
	if err != nil {
		panic("docgraph: failed to init 'docgraph.transaction.changes' instrument")
	}

	transactionOutcomes, err = meter.Int64Counter(
		"docgraph.transaction.outcomes",
		metric.WithDescription("The number of transactions ended, canceled, undone or redone."),
	)
	if err != nil {
		panic("docgraph: failed to init 'docgraph.transaction.outcomes' instrument")
	}

	canonicalCollected, err = meter.Int64Counter(
		"docgraph.canonical.collected",
		metric.WithDescription("The number of canonical entries collected for lack of referencing instances."),
	)
	if err != nil {
		panic("docgraph: failed to init 'docgraph.canonical.collected' instrument")
	}

	publishDuration, err = meter.Float64Histogram(
		"docgraph.notice.publish.duration",
		metric.WithDescription("The duration of publishing a single Notice, including the duration it took to produce (to pubsub service) the entire set of ItemChanged messages."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("docgraph: failed to init 'docgraph.notice.publish.duration' instrument")
	}

	publishFailures, err = meter.Int64Counter(
		"docgraph.notice.publish.failures",
		metric.WithDescription("The number of publish processes that have failed."),
	)
	if err != nil {
		panic("docgraph: failed to init 'docgraph.notice.publish.failures' instrument")
	}
}

// measureTransaction records how a transaction concluded. Only ended
// transactions contribute to the change histogram; the other outcomes replay
// or revert changes that were already counted.
//
// Transactions run synchronously without a context, so the records are made
// against context.Background.
func measureTransaction(graphName, outcome string, changes int) {
	ctx := context.Background()
	graph := attribute.String(docgraphGraphName, graphName)
	if outcome == outcomeEnded {
		transactionChanges.Record(ctx, int64(changes), metric.WithAttributeSet(attribute.NewSet(graph)))
	}
	transactionOutcomes.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(graph, attribute.String(docgraphOutcome, outcome))))
}

// measureCollected records n canonical entries collected from graphName's pool.
func measureCollected(graphName string, n int) {
	if n == 0 {
		return
	}
	attrs := attribute.NewSet(attribute.String(docgraphGraphName, graphName))
	canonicalCollected.Add(context.Background(), int64(n), metric.WithAttributeSet(attrs))
}

// measurePublish measures the publish process using the measurements
// publishDuration and publishFailures. If the process succeeded, we record its
// duration. If it failed, we increment the failure counter.
//
// According to [metric] documentation, [metric.WithAttributeSet] should be used
// instead of [metric.WithAttributes] for performance optimization.
func measurePublish(ctx context.Context, graphName string, succeeded bool, d time.Duration) {
	attrs := attribute.NewSet(attribute.String(docgraphGraphName, graphName))
	if succeeded {
		// We use floating-point division here for higher precision (instead of the
		// Millisecond method).
		duration := float64(d) / float64(time.Millisecond)
		publishDuration.Record(ctx, duration, metric.WithAttributeSet(attrs))
	} else {
		publishFailures.Add(ctx, 1, metric.WithAttributeSet(attrs))
	}
}
