// internal/chain/subscription.go
package chain

import (
	"errors"
	"sync"
)

// ErrSubscription marks a reserve subscription that could not be opened
// or was lost. Fatal to the watcher that owns it.
var ErrSubscription = errors.New("reserve subscription failed")

// ReserveUpdate is one push notification from a vault account: the new
// lamport balance and the slot it was observed at.
type ReserveUpdate struct {
	Slot     uint64
	Lamports uint64
}

// ReserveSubscription is a channel-backed account subscription. Updates
// delivers notifications until Unsubscribe is called or the feed ends;
// the channel is then closed. Unsubscribe is idempotent and safe to call
// from any goroutine.
type ReserveSubscription interface {
	Updates() <-chan ReserveUpdate
	Unsubscribe()
}

type accountSubscription struct {
	updates   chan ReserveUpdate
	stop      chan struct{}
	cancel    func()
	closeOnce sync.Once
	stopOnce  sync.Once
}

func newAccountSubscription(cancel func()) *accountSubscription {
	return &accountSubscription{
		updates: make(chan ReserveUpdate, 16),
		stop:    make(chan struct{}),
		cancel:  cancel,
	}
}

func (s *accountSubscription) Updates() <-chan ReserveUpdate { return s.updates }

func (s *accountSubscription) Unsubscribe() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

func (s *accountSubscription) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// push delivers an update without blocking the receive loop. A full
// buffer drops the oldest pending update; only the latest balance
// matters to the watcher.
func (s *accountSubscription) push(u ReserveUpdate) {
	select {
	case <-s.stop:
		return
	default:
	}
	for {
		select {
		case s.updates <- u:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

func (s *accountSubscription) closeUpdates() {
	s.closeOnce.Do(func() { close(s.updates) })
}
