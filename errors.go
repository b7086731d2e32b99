package docgraph

import "errors"

var (
	// ErrTransactionOpen is returned when beginning a transaction, undoing or
	// redoing while a transaction is open. Transactions do not nest.
	ErrTransactionOpen = errors.New("transaction already open")
	// ErrNoTransaction is returned when ending without an open transaction.
	ErrNoTransaction = errors.New("no open transaction")
	// ErrNotEnding is returned when canceling outside a transaction's ending
	// phase.
	ErrNotEnding = errors.New("transaction is not ending")
	// ErrTransactionCanceled is returned by EndTransaction when a
	// transactionEnding handler canceled the transaction.
	ErrTransactionCanceled = errors.New("transaction canceled")
	// ErrUnresolved is returned by edits addressing an item id that is not
	// reachable from the root.
	ErrUnresolved = errors.New("unresolved item")
)
