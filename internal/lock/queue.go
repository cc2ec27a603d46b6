package lock

import (
	"context"
	"fmt"
	"sync"
)

// WriteQueue runs write operations one at a time, in submission order,
// within a single process. The zero value is ready to use.
type WriteQueue struct {
	mu   sync.Mutex
	tail chan struct{}
}

// Do waits for every previously submitted operation to finish, then runs op.
// The error (or panic) of op is returned to this caller only and never blocks
// later operations. If ctx ends while waiting, Do returns ctx.Err() without
// running op.
func (q *WriteQueue) Do(ctx context.Context, op func(ctx context.Context) error) (err error) {
	done := make(chan struct{})

	q.mu.Lock()
	prev := q.tail
	q.tail = done
	q.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// Keep the chain intact: our slot is released once the
			// predecessor is done.
			go func() {
				<-prev
				close(done)
			}()
			return ctx.Err()
		}
	}

	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("write operation panicked: %v", r)
		}
	}()

	return op(ctx)
}
