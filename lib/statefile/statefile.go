// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package statefile provides atomic persistence for muster's sync
// checkpoint. The daemon writes a checkpoint after processing each
// sync batch; on restart it resumes from the stored token instead of
// replaying the full timeline.
//
// The checkpoint file is written atomically (write to temporary file,
// fsync, rename) so readers never see a partial or corrupt state.
package statefile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/muster-project/muster/lib/codec"
)

// Checkpoint records where the sync loop left off.
type Checkpoint struct {
	// SyncToken is the next_batch token returned by the last
	// processed /sync response.
	SyncToken string `cbor:"sync_token"`

	// SavedAt is when the checkpoint was written. Diagnostic only;
	// resumption uses the token regardless of age.
	SavedAt time.Time `cbor:"saved_at"`
}

// Write atomically writes a checkpoint file. The file is written to a
// temporary location in the same directory, fsynced for durability,
// and renamed into place. Readers never see a partial write.
//
// The file is created with mode 0600. The parent directory is created
// if it does not exist.
func Write(path string, checkpoint Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("statefile: creating state directory: %w", err)
	}

	data, err := codec.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("statefile: marshaling checkpoint: %w", err)
	}

	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("statefile: creating temporary file: %w", err)
	}

	// Write, sync, close, in that order. If any step fails, remove
	// the temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("statefile: writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("statefile: syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("statefile: closing temporary file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("statefile: renaming checkpoint into place: %w", err)
	}

	// Sync the parent directory so the rename survives power loss
	// between rename and the OS flushing directory metadata.
	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	return nil
}

// Read reads and parses a checkpoint file. When the file does not
// exist, the returned error wraps os.ErrNotExist (testable with
// errors.Is), and the caller should start a fresh sync.
func Read(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, err
	}

	var checkpoint Checkpoint
	if err := codec.Unmarshal(data, &checkpoint); err != nil {
		return Checkpoint{}, fmt.Errorf("statefile: parsing checkpoint %s: %w", path, err)
	}
	return checkpoint, nil
}
