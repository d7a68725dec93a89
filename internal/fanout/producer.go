/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package fanout implements the StreamProducer / StreamConsumer fan-out:
// the distribution layer that moves samples from one sink to N dynamically
// attached sources, propagating latency updates and injecting keyframe
// requests on first delivery.
package fanout

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/auteur/internal/media"
)

// Sink is anything a StreamProducer wraps as its data source -- an appsink
// equivalent in the reference media framework, reduced here to its
// identity.
type Sink interface {
	// Name is used for equality and for log correlation.
	Name() string
}

// ConsumerSource is a destination a Producer dispatches samples to: an
// appsrc equivalent.
type ConsumerSource interface {
	Name() string
	PushSample(media.Sample) error
	PushEOS() error
	SetLatency(time.Duration) error
	// Keyframe requests do not go through the source: a consumer asks for
	// one via Producer.ForwardKeyUnitRequest, and the Producer calls the
	// requestKeyframeFn it was created with.
}

type consumerBinding struct {
	source           ConsumerSource
	forwardedLatency atomic.Bool
	firstBuffer      atomic.Bool
}

func newConsumerBinding(source ConsumerSource) *consumerBinding {
	b := &consumerBinding{source: source}
	b.firstBuffer.Store(true)
	return b
}

// Producer is the fan-out point: one sink, N consumers.
type Producer struct {
	name string
	log  zerolog.Logger

	mu                sync.Mutex
	discard           bool
	currentLatency    time.Duration
	haveLatency       bool
	latencyUpdated    bool
	consumers         map[string]*consumerBinding
	requestKeyframeFn func() error
}

// New creates a Producer for the given sink name. requestKeyframeFn, if
// non-nil, is called when a first sample is about to be pushed to some
// consumer, to forward a keyframe request back toward whatever feeds this
// producer's sink. Samples are discarded until Forward is called.
func New(name string, log zerolog.Logger, requestKeyframeFn func() error) *Producer {
	return &Producer{
		name:              name,
		log:               log.With().Str("producer", name).Logger(),
		discard:           true,
		consumers:         make(map[string]*consumerBinding),
		requestKeyframeFn: requestKeyframeFn,
	}
}

// Name implements Sink-like identity for equality checks.
func (p *Producer) Name() string { return p.name }

// Equal reports whether two producer handles wrap the same underlying sink.
func Equal(a, b *Producer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.name == b.name
}

// Attach binds a new consumer source under id. A duplicate id fails softly:
// it is logged and ignored rather than replacing the existing binding.
func (p *Producer) Attach(id string, source ConsumerSource) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.consumers[id]; exists {
		p.log.Error().Str("consumer", id).Msg("consumer already attached")
		return
	}

	p.log.Debug().Str("consumer", id).Msg("attaching consumer")
	p.consumers[id] = newConsumerBinding(source)
}

// Detach removes a consumer binding. Missing id is a no-op, logged at
// debug level.
func (p *Producer) Detach(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.consumers[id]; !ok {
		p.log.Debug().Str("consumer", id).Msg("detach: consumer not found")
		return
	}
	delete(p.consumers, id)
	p.log.Debug().Str("consumer", id).Msg("detached consumer")
}

// Forward stops discarding samples. Idempotent; subsequent calls are no-ops.
func (p *Producer) Forward() {
	p.mu.Lock()
	p.discard = false
	p.mu.Unlock()
}

// ConsumerIDs returns a snapshot of currently attached consumer ids.
func (p *Producer) ConsumerIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.consumers))
	for id := range p.consumers {
		ids = append(ids, id)
	}
	return ids
}

// NotifyLatency records an upstream latency update, to be propagated to
// consumers on the next Deliver call. This mirrors the upstream Latency
// event probe on the wrapped sink.
func (p *Producer) NotifyLatency(d time.Duration) {
	p.mu.Lock()
	p.currentLatency = d
	p.haveLatency = true
	p.latencyUpdated = true
	p.mu.Unlock()
}

// ForwardKeyUnitRequest forwards a ForceKeyUnit event raised by an attached
// consumer back toward whatever feeds this producer's sink. Attach installs
// no probe for this; the caller invokes this method directly: a consumer that needs a
// fresh keyframe mid-stream (a late joiner's decoder, say) asks through its
// producer rather than reaching around it. Unknown consumer ids are logged
// and ignored, like every other per-consumer soft failure.
func (p *Producer) ForwardKeyUnitRequest(consumerID string) error {
	p.mu.Lock()
	_, known := p.consumers[consumerID]
	fn := p.requestKeyframeFn
	p.mu.Unlock()

	if !known {
		p.log.Debug().Str("consumer", consumerID).Msg("key unit request from unknown consumer")
		return nil
	}
	if fn == nil {
		return nil
	}
	return fn()
}

// Deliver fans one newly produced sample out to every attached consumer:
// forwarding a fresh latency value to a consumer the first time it sees
// one (or whenever it changes), requesting a keyframe the first time a
// consumer receives a buffer, and pushing the sample itself.
func (p *Producer) Deliver(sample media.Sample) error {
	p.mu.Lock()
	if p.discard {
		p.mu.Unlock()
		return nil
	}

	latency := p.currentLatency
	haveLatency := p.haveLatency
	latencyUpdated := p.latencyUpdated
	p.latencyUpdated = false

	bindings := make([]*consumerBinding, 0, len(p.consumers))
	for _, b := range p.consumers {
		bindings = append(bindings, b)
	}
	p.mu.Unlock()

	requestedKeyframe := false
	for _, b := range bindings {
		if haveLatency {
			transitioned := b.forwardedLatency.CompareAndSwap(false, true)
			if transitioned || latencyUpdated {
				if err := b.source.SetLatency(latency); err != nil {
					p.log.Warn().Str("consumer", b.source.Name()).Err(err).Msg("failed to set consumer latency")
				}
			}
		}

		if b.firstBuffer.CompareAndSwap(true, false) && !requestedKeyframe {
			if p.requestKeyframeFn != nil {
				if err := p.requestKeyframeFn(); err != nil {
					p.log.Warn().Err(err).Msg("failed to request keyframe for first buffer")
				}
			}
			requestedKeyframe = true
		}
	}

	for _, b := range bindings {
		if err := b.source.PushSample(sample); err != nil {
			p.log.Warn().Str("consumer", b.source.Name()).Err(err).Msg("failed to push sample")
		}
	}

	return nil
}

// EOS signals end-of-stream to every attached consumer.
func (p *Producer) EOS() {
	p.mu.Lock()
	bindings := make([]*consumerBinding, 0, len(p.consumers))
	for _, b := range p.consumers {
		bindings = append(bindings, b)
	}
	p.mu.Unlock()

	for _, b := range bindings {
		if err := b.source.PushEOS(); err != nil {
			p.log.Warn().Str("consumer", b.source.Name()).Err(err).Msg("failed to push EOS")
		}
	}
}
