package docgraph

import (
	"io"
	"log/slog"
)

// An Option configures a Document.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	poolAttr string
	refAttr  string
	graph    string
}

// WithLogger sets the logger the Document reports its transaction lifecycle
// to, at Debug level. By default the Document logs nothing.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithPoolAttribute names the child sequence of the root that holds the
// canonical pool. It defaults to DefaultPoolAttribute.
func WithPoolAttribute(name string) Option {
	return func(c *config) { c.poolAttr = name }
}

// WithCanonicalReference names the reference attribute through which an
// instance refers to its canonical entry. It defaults to
// DefaultCanonicalReference.
func WithCanonicalReference(name string) Option {
	return func(c *config) { c.refAttr = name }
}

// WithGraphName labels the Document's metrics, logs and published notices.
func WithGraphName(name string) Option {
	return func(c *config) { c.graph = name }
}

// Document is the context of one observed graph: the Store every edit goes
// through, the indexes derived from it, the transaction log, and the canonical
// pool. Independent Documents share nothing, including their id spaces.
//
// A Document is not safe for concurrent use. Its handlers run synchronously,
// within the edit that triggered them, and may edit the graph in turn.
type Document struct {
	*Store
	*ReferenceIndex
	*ParentIndex
	*TransactionLog
	*CanonicalPool

	name   string
	logger *slog.Logger
}

// New returns a Document observing the graph rooted at root.
func New(root *Item, opts ...Option) *Document {
	cfg := config{
		poolAttr: DefaultPoolAttribute,
		refAttr:  DefaultCanonicalReference,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger := cfg.logger.With(slog.String("graph", cfg.graph))

	store := NewStore(root)
	refs := NewReferenceIndex(store)
	parents := NewParentIndex(store)
	log := NewTransactionLog(store)
	log.graph, log.logger = cfg.graph, logger
	pool := NewCanonicalPool(store, refs, log, cfg.poolAttr, cfg.refAttr)
	pool.graph, pool.logger = cfg.graph, logger

	logger.Debug("Document opened", slog.Int("items", refs.Len()))
	return &Document{
		Store:          store,
		ReferenceIndex: refs,
		ParentIndex:    parents,
		TransactionLog: log,
		CanonicalPool:  pool,
		name:           cfg.graph,
		logger:         logger,
	}
}

// Name returns the graph name given by WithGraphName.
func (d *Document) Name() string { return d.name }

// Close detaches the Document's indexes and pool from the Store. Handlers
// registered by callers stay registered.
func (d *Document) Close() {
	d.CanonicalPool.Close()
	d.ParentIndex.Close()
	d.ReferenceIndex.Close()
	d.logger.Debug("Document closed")
}

// AssignID gives item an id that no item of the Document ever held, and returns
// it.
func (d *Document) AssignID(item *Item) ID {
	return d.Graph().AssignID(item)
}

// Isomorphic reports whether a and b are structurally equal, resolving
// references through the Document (see the package-level Isomorphic).
func (d *Document) Isomorphic(a, b *Item, visited Visited) bool {
	return Isomorphic(d.ReferenceIndex, a, b, visited)
}

// CloneGraph deep-clones roots with fresh ids from the Document's id space (see
// the package-level CloneGraph).
func (d *Document) CloneGraph(roots ...*Item) []*Item {
	return CloneGraph(d.Graph(), roots)
}

// AddHandler registers handler under event; the handler must be a func(Change)
// for EventChanged and a func(*Transaction) for the transaction events.
func (d *Document) AddHandler(event Event, handler any) Handle {
	return d.Hub().AddHandler(event, handler)
}

// RemoveHandler unregisters the registration identified by h.
func (d *Document) RemoveHandler(h Handle) bool {
	return d.Hub().RemoveHandler(h)
}
