package docgraph

import (
	"fmt"
	"io"
	"log/slog"
)

// A Transaction is a named, ordered list of the changes recorded between
// TransactionLog.BeginTransaction and TransactionLog.EndTransaction.
//
// An ended transaction is what callers keep on their undo stack; the log itself
// retains no history.
type Transaction struct {
	Name    string
	Changes []Change
}

type txState uint8

const (
	txIdle txState = iota
	txOpen
	txEnding
)

func (s txState) String() string {
	switch s {
	case txIdle:
		return "idle"
	case txOpen:
		return "open"
	case txEnding:
		return "ending"
	}
	return fmt.Sprintf("txState(%d)", uint8(s))
}

// TransactionLog groups the changes a Store emits into transactions, and undoes
// and redoes them.
//
// The log moves between three states. BeginTransaction moves it from idle to
// open; while open, every change the Store emits is appended to the open
// transaction. EndTransaction moves it to ending and emits
// EventTransactionEnding; a handler may call CancelTransaction at that point.
// Unless one did, the log returns to idle and emits EventTransactionEnded.
type TransactionLog struct {
	store    *Store
	state    txState
	current  *Transaction
	recorder Handle

	graph  string
	logger *slog.Logger
}

// NewTransactionLog returns an idle log recording from store.
func NewTransactionLog(store *Store) *TransactionLog {
	return &TransactionLog{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Transaction returns the open (or ending) transaction, or nil when the log is
// idle.
func (l *TransactionLog) Transaction() *Transaction { return l.current }

// AddTransactionHandler registers fn under one of the transaction events
// (EventTransactionBegan, EventTransactionEnding, EventTransactionEnded,
// EventTransactionCanceled, EventDidUndo or EventDidRedo).
func (l *TransactionLog) AddTransactionHandler(event Event, fn func(*Transaction)) Handle {
	return l.store.hub.AddHandler(event, fn)
}

// BeginTransaction opens a new transaction named name and emits
// EventTransactionBegan. It fails with ErrTransactionOpen if a transaction is
// already open or ending.
func (l *TransactionLog) BeginTransaction(name string) (*Transaction, error) {
	if l.state != txIdle {
		return nil, fmt.Errorf("begin transaction %q: %w", name, ErrTransactionOpen)
	}
	tx := &Transaction{Name: name}
	l.state = txOpen
	l.current = tx
	l.recorder = l.store.AddChangeHandler(func(c Change) {
		tx.Changes = append(tx.Changes, c)
	})
	l.logger.Debug("Transaction began", slog.String("transaction", name))
	l.emit(EventTransactionBegan, tx)
	return tx, nil
}

// EndTransaction closes the open transaction.
//
// It emits EventTransactionEnding first. Changes made by ending handlers are
// still recorded. If a handler canceled the transaction, EndTransaction returns
// it together with ErrTransactionCanceled; otherwise it emits
// EventTransactionEnded and returns the ended transaction.
func (l *TransactionLog) EndTransaction() (*Transaction, error) {
	if l.state != txOpen {
		return nil, fmt.Errorf("end transaction: %w", ErrNoTransaction)
	}
	tx := l.current
	l.state = txEnding
	l.emit(EventTransactionEnding, tx)

	if l.state != txEnding || l.current != tx {
		return tx, fmt.Errorf("end transaction %q: %w", tx.Name, ErrTransactionCanceled)
	}
	l.store.hub.RemoveHandler(l.recorder)
	l.state = txIdle
	l.current = nil
	measureTransaction(l.graph, outcomeEnded, len(tx.Changes))
	l.logger.Debug("Transaction ended", slog.String("transaction", tx.Name), slog.Int("changes", len(tx.Changes)))
	l.emit(EventTransactionEnded, tx)
	return tx, nil
}

// CancelTransaction reverts every change of the ending transaction, newest
// first, returns the log to idle and emits EventTransactionCanceled instead of
// EventTransactionEnded. It is valid only from an EventTransactionEnding
// handler; at any other time it fails with ErrNotEnding.
func (l *TransactionLog) CancelTransaction() error {
	if l.state != txEnding {
		return fmt.Errorf("cancel transaction (log is %v): %w", l.state, ErrNotEnding)
	}
	tx := l.current
	l.store.hub.RemoveHandler(l.recorder)
	l.revert(tx)
	l.state = txIdle
	l.current = nil
	measureTransaction(l.graph, outcomeCanceled, len(tx.Changes))
	l.logger.Debug("Transaction canceled", slog.String("transaction", tx.Name), slog.Int("changes", len(tx.Changes)))
	l.emit(EventTransactionCanceled, tx)
	return nil
}

// Undo reverts the changes of tx, newest first, and emits EventDidUndo. It
// fails with ErrTransactionOpen unless the log is idle.
func (l *TransactionLog) Undo(tx *Transaction) error {
	if l.state != txIdle {
		return fmt.Errorf("undo %q: %w", tx.Name, ErrTransactionOpen)
	}
	l.revert(tx)
	measureTransaction(l.graph, outcomeUndone, len(tx.Changes))
	l.logger.Debug("Transaction undone", slog.String("transaction", tx.Name))
	l.emit(EventDidUndo, tx)
	return nil
}

// Redo reapplies the changes of tx in their original order and emits
// EventDidRedo. It fails with ErrTransactionOpen unless the log is idle.
func (l *TransactionLog) Redo(tx *Transaction) error {
	if l.state != txIdle {
		return fmt.Errorf("redo %q: %w", tx.Name, ErrTransactionOpen)
	}
	for _, c := range tx.Changes {
		l.store.replay(c)
	}
	measureTransaction(l.graph, outcomeRedone, len(tx.Changes))
	l.logger.Debug("Transaction redone", slog.String("transaction", tx.Name))
	l.emit(EventDidRedo, tx)
	return nil
}

func (l *TransactionLog) revert(tx *Transaction) {
	for i := len(tx.Changes) - 1; i >= 0; i-- {
		l.store.revert(tx.Changes[i])
	}
}

func (l *TransactionLog) emit(event Event, tx *Transaction) {
	l.store.hub.OnEvent(event, func(h any) {
		if fn, ok := h.(func(*Transaction)); ok {
			fn(tx)
		}
	})
}
