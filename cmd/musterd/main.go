// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/muster-project/muster/auditlog"
	"github.com/muster-project/muster/event"
	"github.com/muster-project/muster/lib/clock"
	"github.com/muster-project/muster/lib/config"
	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/lib/statefile"
	"github.com/muster-project/muster/lib/version"
	"github.com/muster-project/muster/messaging"
	"github.com/muster-project/muster/signup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)

	pflag.StringVar(&configPath, "config", "", "path to muster.yaml (default: $MUSTER_CONFIG)")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Printf("musterd %s\n", version.Info())
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zone, err := time.LoadLocation(cfg.Events.Timezone)
	if err != nil {
		return fmt.Errorf("loading display timezone: %w", err)
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Homeserver.URL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	accessToken, err := cfg.AccessToken()
	if err != nil {
		return err
	}
	botUserID, err := ref.ParseUserID(cfg.Homeserver.UserID)
	if err != nil {
		return fmt.Errorf("config homeserver.user_id: %w", err)
	}
	session := client.SessionFromToken(botUserID, accessToken)

	// Confirm the token belongs to the configured account before
	// doing anything with write access.
	if err := validateSession(ctx, session, botUserID); err != nil {
		return err
	}
	logger.Info("matrix session valid", "user_id", botUserID)

	auditAlias, err := ref.ParseRoomAlias(cfg.Audit.RoomAlias)
	if err != nil {
		return fmt.Errorf("config audit.room_alias: %w", err)
	}
	auditRoomID, err := session.ResolveAlias(ctx, auditAlias)
	if err != nil {
		return fmt.Errorf("resolving audit room: %w", err)
	}
	if _, err := session.JoinRoom(ctx, auditRoomID); err != nil {
		return fmt.Errorf("joining audit room: %w", err)
	}
	logger.Info("audit room ready", "alias", auditAlias, "room_id", auditRoomID)

	clk := clock.Real()
	emitter := auditlog.NewEmitter(session, auditRoomID, clk, logger)
	reconciler := signup.NewReconciler(session, emitter, signup.Config{
		AcceptMarker:       cfg.Events.Markers.Accepted,
		DeclineMarker:      cfg.Events.Markers.Declined,
		BotUserID:          botUserID,
		AutomationPrefixes: cfg.Automation.LocalpartPrefixes,
	}, logger)

	service := &Service{
		session:       session,
		clock:         clk,
		config:        cfg,
		botUserID:     botUserID,
		zone:          zone,
		reconciler:    reconciler,
		recorder:      event.NopRecorder{},
		checkpointPth: filepath.Join(cfg.Paths.State, "sync.cbor"),
		logger:        logger,
	}
	service.queue = signup.NewQueue(service.processVote)

	sinceToken, err := service.resumeToken(ctx)
	if err != nil {
		return err
	}

	logger.Info("musterd running",
		"user_id", botUserID,
		"command_prefix", cfg.Events.CommandPrefix,
		"timezone", cfg.Events.Timezone,
	)

	service.runSyncLoop(ctx, sinceToken)

	// Let in-flight reconciliations finish before exiting.
	logger.Info("shutting down")
	service.queue.Wait()
	return nil
}

// resumeToken returns the sync position to start from: the persisted
// checkpoint when one exists, otherwise the next_batch of a fresh
// initial sync.
func (s *Service) resumeToken(ctx context.Context) (string, error) {
	checkpoint, err := statefile.Read(s.checkpointPth)
	if err == nil && checkpoint.SyncToken != "" {
		s.logger.Info("resuming from checkpoint",
			"saved_at", checkpoint.SavedAt,
			"path", s.checkpointPth,
		)
		return checkpoint.SyncToken, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("sync checkpoint unreadable, starting fresh", "error", err)
	}

	token, response, err := s.initialSync(ctx)
	if err != nil {
		return "", fmt.Errorf("initial sync: %w", err)
	}
	s.logger.Info("initial sync complete",
		"joined_rooms", len(response.Rooms.Join),
		"pending_invites", len(response.Rooms.Invite),
	)
	s.acceptInvites(ctx, response.Rooms.Invite)
	return token, nil
}

// validateSession confirms the access token belongs to the configured
// account before the daemon does anything with write access.
func validateSession(ctx context.Context, session messaging.Session, botUserID ref.UserID) error {
	whoami, err := session.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("validating session: %w", err)
	}
	if whoami != botUserID {
		return fmt.Errorf("access token belongs to %s, config names %s", whoami, botUserID)
	}
	return nil
}
