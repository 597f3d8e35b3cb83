package uploadkit

import (
	"context"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// callbackSet holds the registered change callbacks for a token.
// Unregistering nils the slot out so other slots stay stable.
type callbackSet struct {
	mu   sync.Mutex
	list []func()
}

func (s *callbackSet) add(callback func()) (remove func()) {
	s.mu.Lock()
	s.list = append(s.list, callback)
	slot := len(s.list) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if slot < len(s.list) {
			s.list[slot] = nil
		}
	}
}

// invoke runs every live callback on a snapshot, so callbacks are free
// to register or unregister while firing.
func (s *callbackSet) invoke() {
	s.mu.Lock()
	snapshot := slices.Clone(s.list)
	s.mu.Unlock()

	for _, cb := range snapshot {
		if cb != nil {
			cb()
		}
	}
}

// CallbackChangeToken is a ChangeToken fired by whoever created it.
// Drivers with native filesystem events (local, memory) hand one out per
// Watch and call SignalChange when a matching change lands.
type CallbackChangeToken struct {
	changed   atomic.Bool
	callbacks callbackSet
}

// NewCallbackChangeToken returns an unfired token.
func NewCallbackChangeToken() *CallbackChangeToken { return &CallbackChangeToken{} }

// HasChanged reports whether SignalChange has run.
func (t *CallbackChangeToken) HasChanged() bool { return t.changed.Load() }

// ActiveChangeCallbacks reports that callbacks fire without polling.
func (t *CallbackChangeToken) ActiveChangeCallbacks() bool { return true }

// RegisterChangeCallback adds a callback and returns its unregister
// function. Callbacks registered after the token fired never run.
func (t *CallbackChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	return t.callbacks.add(callback)
}

// SignalChange fires the token. Only the first call runs the callbacks;
// a fired token is spent.
func (t *CallbackChangeToken) SignalChange() {
	if t.changed.Swap(true) {
		return
	}
	t.callbacks.invoke()
}

// pollingChangeToken drives change detection for backends without native
// events by running a check function on an interval. The poll goroutine
// ends with the context, with Stop, or when a change is detected; like
// every token, it is spent after its first change.
type pollingChangeToken struct {
	changed   atomic.Bool
	callbacks callbackSet
	cancel    context.CancelFunc
	stopped   atomic.Bool
}

// PollingConfig configures a polling change token.
type PollingConfig struct {
	// Interval between checks. Defaults to 5 seconds.
	Interval time.Duration
	// CheckFunc reports whether a change happened since the watch began.
	CheckFunc func() bool
}

// NewPollingChangeToken starts polling config.CheckFunc. Cancel the
// context or call Stop when the token is no longer needed, otherwise the
// poll goroutine runs until a change is detected.
func NewPollingChangeToken(ctx context.Context, config PollingConfig) *pollingChangeToken {
	interval := config.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &pollingChangeToken{cancel: cancel}

	// Release the derived context if the token is dropped without Stop.
	runtime.AddCleanup(t, func(c context.CancelFunc) { c() }, cancel)

	go t.poll(ctx, interval, config.CheckFunc)
	return t
}

func (t *pollingChangeToken) poll(ctx context.Context, interval time.Duration, check func() bool) {
	defer t.stopped.Store(true)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if check != nil && check() {
				t.fire()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (t *pollingChangeToken) fire() {
	if t.changed.Swap(true) {
		return
	}
	t.callbacks.invoke()
}

func (t *pollingChangeToken) HasChanged() bool { return t.changed.Load() }

func (t *pollingChangeToken) ActiveChangeCallbacks() bool { return true }

func (t *pollingChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	return t.callbacks.add(callback)
}

// Stop ends polling. Safe to call more than once.
func (t *pollingChangeToken) Stop() {
	if t.stopped.Swap(true) {
		return
	}
	t.cancel()
}

// CompositeChangeToken folds several tokens into one that has changed
// when any member has.
type CompositeChangeToken struct {
	tokens []ChangeToken
}

// NewCompositeChangeToken combines tokens.
func NewCompositeChangeToken(tokens ...ChangeToken) *CompositeChangeToken {
	return &CompositeChangeToken{tokens: tokens}
}

func (c *CompositeChangeToken) HasChanged() bool {
	return slices.ContainsFunc(c.tokens, ChangeToken.HasChanged)
}

// ActiveChangeCallbacks holds only when every member fires actively; one
// polling member degrades the whole composite.
func (c *CompositeChangeToken) ActiveChangeCallbacks() bool {
	if len(c.tokens) == 0 {
		return false
	}
	for _, t := range c.tokens {
		if !t.ActiveChangeCallbacks() {
			return false
		}
	}
	return true
}

// RegisterChangeCallback registers the callback on every member.
func (c *CompositeChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	undo := make([]func(), len(c.tokens))
	for i, t := range c.tokens {
		undo[i] = t.RegisterChangeCallback(callback)
	}
	return func() {
		for _, u := range undo {
			u()
		}
	}
}

// CancelledChangeToken is born changed. Drivers return it from Watch to
// say change notification is not available for the request.
type CancelledChangeToken struct{}

func (CancelledChangeToken) HasChanged() bool            { return true }
func (CancelledChangeToken) ActiveChangeCallbacks() bool { return false }

// RegisterChangeCallback runs the callback immediately; the change
// already happened.
func (CancelledChangeToken) RegisterChangeCallback(callback func()) func() {
	callback()
	return func() {}
}

// NeverChangeToken never fires. It suits content known to be immutable.
type NeverChangeToken struct{}

func (NeverChangeToken) HasChanged() bool            { return false }
func (NeverChangeToken) ActiveChangeCallbacks() bool { return false }

func (NeverChangeToken) RegisterChangeCallback(func()) func() { return func() {} }

// OnChange keeps a watch alive across token firings: each time the
// current token fires, action runs and produce is asked for the next
// token. The loop ends when produce fails or the returned cancel is
// called.
//
//	cancel := uploadkit.OnChange(
//	    func() (uploadkit.ChangeToken, error) {
//	        return fs.(uploadkit.CanWatch).Watch(ctx, "inbox/*.pdf")
//	    },
//	    func() {
//	        log.Println("new documents in the inbox, scheduling intake")
//	        scheduleIntake()
//	    },
//	)
//	defer cancel()
func OnChange(produce func() (ChangeToken, error), action func()) (cancel func()) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		for {
			token, err := produce()
			if err != nil {
				return
			}

			fired := make(chan struct{})
			unregister := token.RegisterChangeCallback(func() { close(fired) })

			select {
			case <-ctx.Done():
				unregister()
				return
			case <-fired:
				unregister()
				action()
			}
		}
	}()

	return cancel
}
