package orchestrator

import "fmt"

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event without blocking. Events that do not fit
// in the buffer are dropped; per-flow events on large summaries are
// expected to overflow it.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s/%s (pending)", event.Stage, event.Section)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s/%s...", event.Stage, event.Section)
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  ✓ %s/%s complete: %s", event.Stage, event.Section, event.Message)
		}
		return fmt.Sprintf("  ✓ %s/%s complete", event.Stage, event.Section)
	case ProgressSkipped:
		return fmt.Sprintf("  - %s skipped", event.Stage)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s/%s failed: %s", event.Stage, event.Section, event.Message)
	default:
		return fmt.Sprintf("  ? %s/%s (unknown status)", event.Stage, event.Section)
	}
}

// FormatStageHeader formats a stage header for display.
// Returns: "[{name}] Stage {N}: {stage.String()}"
func FormatStageHeader(name string, stage Stage) string {
	return fmt.Sprintf("[%s] Stage %d: %s", name, int(stage), stage.String())
}
