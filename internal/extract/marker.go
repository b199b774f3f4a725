// marker.go implements the destination init guard: an exclusive-create
// lock file that makes the existing-directory check atomic with the
// writes that follow it. A plain "stat then write" pre-check would let
// two concurrent callers both observe an empty destination and both
// proceed; O_CREATE|O_EXCL guarantees exactly one winner.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// MarkerFileName is the init marker created in the destination before
// any other write.
const MarkerFileName = ".devforge-init"

// reclaimLockSuffix names the short-lived lock that serializes stale
// marker reclaims.
const reclaimLockSuffix = ".reclaim"

// StaleAfter is the age past which an init marker is considered abandoned
// (the process that created it crashed). Stale markers are reclaimable
// with force.
const StaleAfter = 1 * time.Hour

// ErrInitInProgress reports that another caller holds the destination's
// init marker. Distinct from ErrDestinationExists so callers can choose
// to wait and retry instead of hard-failing.
var ErrInitInProgress = errors.New("destination is already being initialized by another process")

// ErrDestinationExists reports that the destination already contains a
// devcontainer configuration and force was not given.
var ErrDestinationExists = errors.New("destination already contains a devcontainer configuration")

// markerPayload is the JSON content of the marker file. The owner token
// lets a process recognize its own marker; the timestamp drives staleness.
type markerPayload struct {
	Owner     string `json:"owner"`
	StartedAt string `json:"startedAt"`
}

// Guard is an acquired destination init lock. Release it when the
// destination is in its final state — success or rolled back.
type Guard struct {
	path  string
	owner string
}

// AcquireGuard takes the destination's init marker. Order of checks:
//
//  1. An existing devcontainer config fails with ErrDestinationExists
//     unless force is set.
//  2. An existing fresh marker fails with ErrInitInProgress. A stale
//     marker is reclaimed only with force.
//  3. The marker file is created with O_CREATE|O_EXCL; losing that
//     race also yields ErrInitInProgress.
func AcquireGuard(dest string, force bool) (*Guard, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("destination not writable: %w", err)
	}

	configPath := filepath.Join(dest, ".devcontainer", "devcontainer.json")
	if _, err := os.Stat(configPath); err == nil && !force {
		return nil, ErrDestinationExists
	}

	markerPath := filepath.Join(dest, MarkerFileName)
	if info, err := os.Stat(markerPath); err == nil {
		if time.Since(info.ModTime()) < StaleAfter || !force {
			return nil, ErrInitInProgress
		}
		// Stale marker plus force: the previous initialization is treated
		// as abandoned. The removal runs under its own exclusive reclaim
		// lock with the age re-checked inside it; an unguarded
		// stat-then-remove would let a second reclaimer delete the
		// marker the first one had already re-created. A marker can only
		// go from stale to fresh by being removed first, and only the
		// lock holder removes, so the holder's re-check cannot be stale.
		lockPath := markerPath + reclaimLockSuffix
		lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if os.IsExist(err) {
				return nil, ErrInitInProgress
			}
			return nil, fmt.Errorf("cannot reclaim stale init marker: %w", err)
		}
		_ = lock.Close()
		if info, err := os.Stat(markerPath); err == nil && time.Since(info.ModTime()) >= StaleAfter {
			_ = os.Remove(markerPath)
		}
		_ = os.Remove(lockPath)
	}

	f, err := os.OpenFile(markerPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrInitInProgress
		}
		return nil, fmt.Errorf("cannot create init marker: %w", err)
	}

	owner := uuid.NewString()
	payload, _ := json.Marshal(markerPayload{
		Owner:     owner,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	})
	_, writeErr := f.Write(payload)
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(markerPath)
		return nil, fmt.Errorf("cannot write init marker: %w", errors.Join(writeErr, closeErr))
	}

	return &Guard{path: markerPath, owner: owner}, nil
}

// Release removes the marker. Safe to call once per Guard.
func (g *Guard) Release() {
	_ = os.Remove(g.path)
}
