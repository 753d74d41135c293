package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-server/errors"
	"chat-server/repositories"
)

// Policy holds the archival parameters. A chat is eligible once its live
// count exceeds Threshold; within an eligible chat only messages older than
// now-Retention are candidates, and the newest KeepRecent of those stay put.
type Policy struct {
	Retention  time.Duration
	Threshold  int
	KeepRecent int
}

// Report summarizes one sweep.
type Report struct {
	ChatsScanned  int
	ChatsEligible int
	Relocated     int
	Duplicates    int
}

// ArchiveWorker periodically relocates overflow messages from the live store
// into the archive store.
//
// Relocation is insert-then-delete and not transactional across the two
// stores: a crash between the two steps leaves a duplicate, never a loss.
// Archive keys reuse the message UUID, so retrying the insert overwrites the
// previous record instead of duplicating it.
type ArchiveWorker struct {
	log      *slog.Logger
	live     repositories.IMessageRepository
	archive  repositories.IArchiveRepository
	interval time.Duration
	policy   Policy

	// Guards against overlapping sweeps: concurrent runs could race on the
	// same newest-K computation and double-relocate.
	sweepMu sync.Mutex
}

func NewArchiveWorker(log *slog.Logger, live repositories.IMessageRepository,
	archive repositories.IArchiveRepository, interval time.Duration, policy Policy) *ArchiveWorker {
	return &ArchiveWorker{
		log:      log,
		live:     live,
		archive:  archive,
		interval: interval,
		policy:   policy,
	}
}

func (w *ArchiveWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping archiver")
			return nil
		case <-ticker.C:
			report, err := w.Sweep(ctx, time.Now().UTC())
			switch {
			case err == errors.ErrSweepInProgress:
				w.log.Debug("Previous sweep still running, skipping tick")
			case err != nil:
				w.log.Error("Archival sweep failed", "error", err)
			default:
				w.log.Info("Archival sweep done",
					"chats_scanned", report.ChatsScanned,
					"chats_eligible", report.ChatsEligible,
					"relocated", report.Relocated,
					"duplicates", report.Duplicates)
			}
		}
	}
}

// Sweep runs one archival pass. Single-flight: a second caller gets
// ErrSweepInProgress instead of queueing behind the running pass.
//
// Eligibility and the candidate set are recomputed from current store state,
// so re-running after a partial failure is idempotent apart from the
// insert-then-delete duplicate window.
func (w *ArchiveWorker) Sweep(ctx context.Context, now time.Time) (Report, error) {
	if !w.sweepMu.TryLock() {
		return Report{}, errors.ErrSweepInProgress
	}
	defer w.sweepMu.Unlock()

	var report Report
	cutoff := now.Add(-w.policy.Retention)

	counts, err := w.live.CountPerChat()
	if err != nil {
		return report, fmt.Errorf("counting live messages: %w", err)
	}
	report.ChatsScanned = len(counts)

	for chatID, count := range counts {
		// Cooperative shutdown: an in-flight relocation finishes, but no new
		// chat starts processing once the context is gone.
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		// The threshold gates eligibility; the age cutoff gates which
		// messages within an eligible chat are candidates.
		if count <= w.policy.Threshold {
			continue
		}
		report.ChatsEligible++

		if err := w.relocateChat(chatID, cutoff, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (w *ArchiveWorker) relocateChat(chatID string, cutoff time.Time, report *Report) error {
	candidates, err := w.live.FindArchivable(chatID, cutoff, w.policy.KeepRecent)
	if err != nil {
		return fmt.Errorf("selecting candidates for chat %s: %w", chatID, err)
	}

	for _, message := range candidates {
		// Insert first. If the archive write fails the live record stays:
		// a message is never deleted before its archive copy exists.
		if err := w.archive.Store(message); err != nil {
			w.log.Error("Archive insert failed, keeping live record",
				"chat_id", chatID, "message_id", message.ID, "error", err)
			continue
		}
		if err := w.live.DeleteMessage(message); err != nil {
			// The record now exists in both stores. Flag it for a later
			// reconciliation pass rather than treating it as fatal.
			report.Duplicates++
			w.log.Warn("Live delete failed after archive insert, duplicate candidate",
				"chat_id", chatID, "message_id", message.ID, "error", err)
			continue
		}
		report.Relocated++
	}
	return nil
}
