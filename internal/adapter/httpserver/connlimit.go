package httpserver

import "sync/atomic"

// connectionLimiter caps concurrent dashboard WebSockets per instance.
type connectionLimiter struct {
	current atomic.Int64
	max     int64
}

func newConnectionLimiter(max int64) *connectionLimiter {
	return &connectionLimiter{max: max}
}

// Acquire takes a slot, or reports false at capacity.
func (l *connectionLimiter) Acquire() bool {
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *connectionLimiter) Release() {
	l.current.Add(-1)
}

func (l *connectionLimiter) Current() int64 {
	return l.current.Load()
}
