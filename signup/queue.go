// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package signup

import (
	"context"
	"sync"

	"github.com/muster-project/muster/lib/ref"
)

// Queue serializes vote processing per notice. Votes for the same
// notice run strictly in submission order on one worker goroutine;
// votes for different notices run independently. Submit never blocks,
// so the sync loop stays responsive however slow a reconciliation is.
type Queue struct {
	process func(context.Context, Vote)

	mu      sync.Mutex
	pending map[ref.EventID][]Vote
	active  map[ref.EventID]bool
	wg      sync.WaitGroup
}

// NewQueue returns a queue dispatching to the given processor. The
// processor owns all error handling; it is called once per vote.
func NewQueue(process func(context.Context, Vote)) *Queue {
	return &Queue{
		process: process,
		pending: make(map[ref.EventID][]Vote),
		active:  make(map[ref.EventID]bool),
	}
}

// Submit enqueues a vote for its notice's worker, starting one if
// none is running.
func (q *Queue) Submit(ctx context.Context, vote Vote) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending[vote.NoticeID] = append(q.pending[vote.NoticeID], vote)
	if !q.active[vote.NoticeID] {
		q.active[vote.NoticeID] = true
		q.wg.Add(1)
		go q.run(ctx, vote.NoticeID)
	}
}

// run drains one notice's backlog in order, then retires. A vote
// submitted after the drain check starts a fresh worker.
func (q *Queue) run(ctx context.Context, noticeID ref.EventID) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		backlog := q.pending[noticeID]
		if len(backlog) == 0 {
			delete(q.pending, noticeID)
			delete(q.active, noticeID)
			q.mu.Unlock()
			return
		}
		vote := backlog[0]
		q.pending[noticeID] = backlog[1:]
		q.mu.Unlock()

		q.process(ctx, vote)
	}
}

// Wait blocks until every submitted vote has been processed. Used at
// shutdown after submissions have stopped.
func (q *Queue) Wait() {
	q.wg.Wait()
}
