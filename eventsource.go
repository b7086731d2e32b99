package docgraph

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/danielorbach/go-component"
	"gocloud.dev/pubsub"
)

// EventSource wraps a pubsub subscription and decodes incoming messages into
// typed events.
type EventSource struct {
	subscription *pubsub.Subscription
	eventType    reflect.Type
	decoder      func(p []byte, v reflect.Value) error
}

// ItemChanges returns an EventSource decoding the gob-encoded ItemChanged
// messages a Publisher sends.
func ItemChanges(sub *pubsub.Subscription) EventSource {
	return EventSource{
		subscription: sub,
		eventType:    reflect.TypeOf(ItemChanged{}),
		decoder: func(p []byte, v reflect.Value) error {
			return gob.NewDecoder(bytes.NewReader(p)).DecodeValue(v)
		},
	}
}

// EventHandler is a function that processes a decoded event message.
type EventHandler func(ctx context.Context, msg any) error

// Stream returns a component.Proc that continuously receives messages from the
// subscription, decodes them using the configured decoder, and passes them to
// the provided EventHandler. A message that cannot be decoded or processed is
// fatal; the error names the item the message was keyed by.
func (s EventSource) Stream(h EventHandler) component.Proc {
	return func(l *component.L) {
		logger := component.Logger(l.Context())
		for l.Continue() {
			msg, err := s.subscription.Receive(l.Context())
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					// we're shutting down
					return
				}
				l.Fatal(fmt.Errorf("receive: %w", err))
			}
			// always ack, even if we fail to decode.
			// otherwise, we might get stuck processing
			// the same failed message
			msg.Ack()

			event, err := s.decode(msg)
			if err != nil {
				l.Fatal(err)
			}
			logger.Debug("Item change received", slog.String("item", msg.Metadata[itemIDMetadata]))
			if err := h(l.Context(), event); err != nil {
				l.Fatal(fmt.Errorf("process item %s: %w", msg.Metadata[itemIDMetadata], err))
			}
		}
	}
}

// decode returns the event carried by msg.
func (s EventSource) decode(msg *pubsub.Message) (any, error) {
	v := reflect.New(s.eventType)
	if err := s.decoder(msg.Body, v); err != nil {
		return nil, fmt.Errorf("decode item %s: %w", msg.Metadata[itemIDMetadata], err)
	}
	return v.Elem().Interface(), nil
}
