package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox/payloads"
)

type decoderFunc func(payload json.RawMessage) (interface{}, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

// NewDecoderRegistry builds an empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// Register stores a decoder for the given event type and version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]; ok {
		return decoder(payload)
	}
	return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
}

// NewNotificationDecoders registers v1 decoders for every dispatch event. Each
// decoded value implements payloads.Notifier.
func NewNotificationDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventBidSubmitted, 1, decodeInto(func() payloads.Notifier { return &payloads.BidSubmittedEvent{} }))
	reg.Register(enums.EventBidAccepted, 1, decodeInto(func() payloads.Notifier { return &payloads.BidAcceptedEvent{} }))
	reg.Register(enums.EventRateConfirmed, 1, decodeInto(func() payloads.Notifier { return &payloads.RateConfirmedEvent{} }))
	reg.Register(enums.EventLoadStatusChanged, 1, decodeInto(func() payloads.Notifier { return &payloads.LoadStatusChangedEvent{} }))
	reg.Register(enums.EventInvoiceIssued, 1, decodeInto(func() payloads.Notifier { return &payloads.InvoiceIssuedEvent{} }))
	return reg
}

func decodeInto(factory func() payloads.Notifier) decoderFunc {
	return func(payload json.RawMessage) (interface{}, error) {
		target := factory()
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, err
		}
		return target, nil
	}
}
