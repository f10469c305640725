package audit

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Recorder appends entries in the background. Delivery of a grant never waits
// on, or fails because of, the audit trail: a failed append is logged with
// full detail server-side and counted, and the caller is not told. Revisit if
// the audit-completeness tradeoff ever flips.
type Recorder struct {
	store   Store
	logger  *log.Logger
	timeout time.Duration
	now     func() time.Time

	wg      sync.WaitGroup
	dropped atomic.Int64
}

func NewRecorder(store Store, logger *log.Logger) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// Record fills in the entry id and timestamp if unset and appends
// asynchronously.
func (r *Recorder) Record(e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.store.Append(ctx, e); err != nil {
			r.dropped.Add(1)
			r.logger.Printf("audit append failed action=%s target=%s account=%s: %v", e.Action, e.Target, e.AccountID, err)
		}
	}()
}

// Flush blocks until all in-flight appends have completed.
func (r *Recorder) Flush() { r.wg.Wait() }

// Dropped reports how many appends have failed since startup.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }
