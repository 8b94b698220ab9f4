// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/muster-project/muster/lib/statefile"
	"github.com/muster-project/muster/messaging"
)

// syncFilter restricts /sync to the two timeline event types the
// daemon acts on. Redactions are deliberately absent: the reconciler
// clears markers itself, and a cleared marker must never re-trigger
// reconciliation.
var syncFilter = buildSyncFilter()

func buildSyncFilter() string {
	timelineTypes := []string{
		messaging.EventTypeMessage,
		messaging.EventTypeReaction,
	}
	emptyTypes := []string{}

	filter := map[string]any{
		"room": map[string]any{
			"state": map[string]any{
				"types": emptyTypes,
			},
			"timeline": map[string]any{
				"types": timelineTypes,
				"limit": 100,
			},
			"ephemeral": map[string]any{
				"types": emptyTypes,
			},
			"account_data": map[string]any{
				"types": emptyTypes,
			},
		},
		"presence": map[string]any{
			"types": emptyTypes,
		},
		"account_data": map[string]any{
			"types": emptyTypes,
		},
	}

	data, err := json.Marshal(filter)
	if err != nil {
		panic("building sync filter: " + err.Error())
	}
	return string(data)
}

// initialSync performs the first /sync with no since token. The full
// snapshot is only used for invite acceptance; historical timeline
// events are not replayed as commands or votes.
func (s *Service) initialSync(ctx context.Context) (string, *messaging.SyncResponse, error) {
	response, err := s.session.Sync(ctx, messaging.SyncOptions{Filter: syncFilter})
	if err != nil {
		return "", nil, err
	}
	return response.NextBatch, response, nil
}

// runSyncLoop long-polls /sync until the context is cancelled. On
// transient errors it retries with exponential backoff from 1 second
// to 30 seconds. The position token is checkpointed after every
// processed batch so a restart does not replay votes.
func (s *Service) runSyncLoop(ctx context.Context, sinceToken string) {
	const (
		pollTimeout = 30000
		maxBackoff  = 30 * time.Second
	)
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		response, err := s.session.Sync(ctx, messaging.SyncOptions{
			Since:      sinceToken,
			Timeout:    pollTimeout,
			SetTimeout: true,
			Filter:     syncFilter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("sync failed, retrying", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = time.Second
		sinceToken = response.NextBatch

		s.handleSync(ctx, response)
		s.saveCheckpoint(sinceToken)
	}
}

func (s *Service) saveCheckpoint(sinceToken string) {
	err := statefile.Write(s.checkpointPth, statefile.Checkpoint{
		SyncToken: sinceToken,
		SavedAt:   s.clock.Now(),
	})
	if err != nil {
		s.logger.Warn("failed to persist sync checkpoint",
			"path", s.checkpointPth,
			"error", err,
		)
	}
}
