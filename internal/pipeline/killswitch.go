// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

package pipeline

import "sync"

// Killswitch is the cooperative cancellation signal for a publish run.
// It is set asynchronously (typically from a signal handler) and
// polled by the pipeline at its two yield points: before each chunk
// and before each timed wait. It never aborts an in-flight call.
//
// A Killswitch is an explicit token threaded into the pipeline, not
// package state, so multiple runs can be cancelled independently.
type Killswitch struct {
	once sync.Once
	done chan struct{}
}

// NewKillswitch returns an untriggered killswitch.
func NewKillswitch() *Killswitch {
	return &Killswitch{done: make(chan struct{})}
}

// Trigger sets the signal. Safe to call from any goroutine, any
// number of times.
func (k *Killswitch) Trigger() {
	k.once.Do(func() { close(k.done) })
}

// Triggered reports whether the signal has been set.
func (k *Killswitch) Triggered() bool {
	select {
	case <-k.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal is set, for use in
// select alongside timers and context cancellation.
func (k *Killswitch) Done() <-chan struct{} {
	return k.done
}
