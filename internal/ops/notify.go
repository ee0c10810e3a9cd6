package ops

import (
	"context"
	stderrors "errors"
	"sync"
)

// Notification is a one-way push of a translation outcome to a target
// (a browser tab, an SSE subscriber, an MCP client).
type Notification struct {
	Target string `json:"target"`
	Action string `json:"action"`
	Result Result `json:"result"`
}

// Notifier delivers notifications. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }

// MultiNotifier fans a notification out to every notifier.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// TranslateAndNotify translates text with current settings and pushes the
// outcome to target instead of returning it to a waiting caller.
func (o *Orchestrator) TranslateAndNotify(ctx context.Context, target, text string) Result {
	result := o.Translate(ctx, text)

	n := Notification{Target: target, Action: ActionTranslationResult, Result: result}
	if !result.Success {
		n.Action = ActionTranslationError
	}
	if err := o.notifier.Notify(ctx, n); err != nil {
		o.log.Warn().Err(err).Str("target", target).Msg("notify failed")
	}
	return result
}

// brokerBuffer is the per-subscriber queue length; slower subscribers drop.
const brokerBuffer = 16

// Broker is an in-process Notifier keyed by target.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Notification]struct{}
}

// NewBroker returns an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Notification]struct{})}
}

// Subscribe registers for notifications addressed to target. The returned
// cancel func unregisters and closes the channel.
func (b *Broker) Subscribe(target string) (<-chan Notification, func()) {
	ch := make(chan Notification, brokerBuffer)

	b.mu.Lock()
	if b.subs[target] == nil {
		b.subs[target] = make(map[chan Notification]struct{})
	}
	b.subs[target][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[target], ch)
			if len(b.subs[target]) == 0 {
				delete(b.subs, target)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Notify delivers n to current subscribers of n.Target without blocking.
// A target with no subscribers drops the notification.
func (b *Broker) Notify(_ context.Context, n Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[n.Target] {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of subscribers for target.
func (b *Broker) Subscribers(target string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[target])
}
