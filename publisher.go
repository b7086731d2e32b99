package docgraph

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"
)

// ItemChanged notifies about changes to a single item of a document graph. A
// Publisher splits each Notice into one ItemChanged per item.
type ItemChanged struct {
	ItemSnapshot
	Graph       string
	Transaction string
	Action      Action
	// The time, in UTC, the entire Notice was taken.
	Timestamp time.Time
}

// itemIDMetadata is the message metadata key holding the id of the item an
// ItemChanged message is about.
const itemIDMetadata = "itemID"

// splitNotice splits the provided Notice into individual ItemChanged messages,
// one for each item snapshot.
func splitNotice(n Notice) []ItemChanged {
	changes := make([]ItemChanged, 0, len(n.Items))
	for _, s := range n.Items {
		changes = append(changes, ItemChanged{
			ItemSnapshot: s,
			Graph:        n.Graph,
			Transaction:  n.Transaction,
			Action:       n.Action,
			Timestamp:    n.Timestamp,
		})
	}
	return changes
}

// Publisher publishes the concluded transactions of a Document to a pubsub
// topic, one ItemChanged message per touched item.
//
// The Document is single-threaded while the topic is not: the Publisher takes a
// Notice synchronously, from the Document's transactionEnded, didUndo and didRedo
// handlers, and queues it; its Exec method drains the queue on its own
// goroutine.
type Publisher struct {
	doc     *Document
	sink    *pubsub.Topic
	handles []Handle

	mu    sync.Mutex
	queue []Notice
	wake  chan struct{}
}

// NewPublisher returns a [component.Procedure] that publishes notices about
// doc's transactions to sink. It starts queueing notices immediately; call
// Close, from the Document's goroutine, to stop.
func NewPublisher(doc *Document, sink *pubsub.Topic) *Publisher {
	p := &Publisher{doc: doc, sink: sink, wake: make(chan struct{}, 1)}
	p.handles = []Handle{
		doc.AddTransactionHandler(EventTransactionEnded, p.enqueuer(ActionEnded)),
		doc.AddTransactionHandler(EventDidUndo, p.enqueuer(ActionUndone)),
		doc.AddTransactionHandler(EventDidRedo, p.enqueuer(ActionRedone)),
	}
	return p
}

// Close stops queueing notices. Notices already queued are still published.
func (p *Publisher) Close() {
	for _, h := range p.handles {
		p.doc.RemoveHandler(h)
	}
}

func (p *Publisher) enqueuer(action Action) func(*Transaction) {
	return func(tx *Transaction) {
		n := NoticeOf(p.doc, tx, action)
		if n.IsEmpty() {
			return
		}
		p.mu.Lock()
		p.queue = append(p.queue, n)
		p.mu.Unlock()
		p.signal()
	}
}

func (p *Publisher) drain() []Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.queue
	p.queue = nil
	return q
}

// Pending returns the number of notices queued but not published yet.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Publisher) Exec(l *component.L) {
	logger := component.Logger(l.Context())
	for l.Continue() {
		select {
		case <-p.wake:
		case <-l.GraceContext().Done():
			return
		}
		batch := p.drain()
		for i, n := range batch {
			if err := p.publish(l.GraceContext(), logger, n); err != nil {
				// Notices are published in order; a notice is never published before
				// the one preceding it. Put back what is left so that a restarted
				// publisher resumes from the failed notice.
				p.requeue(batch[i:])
				logger.Error("Couldn't publish Notice", slog.Any("error", err))
				l.Fatal(fmt.Errorf("publish %q: %w", n.Transaction, err))
			}
		}
	}
}

func (p *Publisher) requeue(ns []Notice) {
	p.mu.Lock()
	p.queue = append(ns, p.queue...)
	p.mu.Unlock()
	p.signal()
}

func (p *Publisher) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// publish splits a Notice into ItemChanged messages and sends each message to
// the sink. It returns an error if it fails to send even a single message.
func (p *Publisher) publish(ctx context.Context, logger *slog.Logger, n Notice) (err error) {
	ctx, span := tracer.Start(ctx, "Publisher.publish", trace.WithAttributes(
		attribute.String(docgraphGraphName, n.Graph),
		attribute.String("transaction", n.Transaction),
		attribute.String("action", string(n.Action)),
	))
	defer span.End()

	defer func(start time.Time) {
		measurePublish(ctx, n.Graph, err == nil, time.Since(start))
	}(time.Now())

	logger = logger.With(slog.String("transaction", n.Transaction), slog.String("action", string(n.Action)))
	logger.Debug("Splitting Notice into item changes...", slog.Int("items", len(n.Items)))

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range splitNotice(n) {
		g.Go(func() error {
			return p.send(ctx, logger, c)
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("send item changes: %w", err)
	}
	logger.Debug("Notice published successfully")
	return nil
}

func (p *Publisher) send(ctx context.Context, logger *slog.Logger, c ItemChanged) error {
	itemID := strconv.FormatInt(int64(c.ID), 10)
	ctx, span := tracer.Start(ctx, "Publisher.send", trace.WithAttributes(
		attribute.String("item.id", itemID),
	))
	defer span.End()

	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(c); err != nil {
		err := fmt.Errorf("encode gob: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// The item id is included as metadata on the message to enable key-based
	// partitioning in brokers such as Kafka, which preserves the order of the
	// messages about one item.
	msg := &pubsub.Message{Body: b.Bytes(), Metadata: map[string]string{itemIDMetadata: itemID}}
	if err := p.sink.Send(ctx, msg); err != nil {
		err := fmt.Errorf("send: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	logger.Debug("ItemChanged message sent", slog.String("item", itemID))
	return nil
}
