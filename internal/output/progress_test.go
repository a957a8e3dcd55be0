package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestProgressBarNonTTYEmitsOnlyCompletion(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(3, "Removing packages")
	p.SetWriter(buf)

	p.Increment()
	p.Increment()
	if buf.Len() != 0 {
		t.Errorf("non-TTY bar emitted before completion: %q", buf.String())
	}

	p.Increment()
	output := buf.String()
	if !strings.Contains(output, "100%") {
		t.Errorf("completed bar missing 100%%: %q", output)
	}
	if !strings.Contains(output, "Removing packages") {
		t.Errorf("completed bar missing description: %q", output)
	}

	// Finish must not duplicate the completion line.
	p.Finish()
	if got := strings.Count(buf.String(), "100%"); got != 1 {
		t.Errorf("100%% emitted %d times, want 1", got)
	}
}

func TestProgressBarFinishFromPartial(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(10, "Installing")
	p.SetWriter(buf)

	p.Increment()
	p.Finish()

	if got := strings.Count(buf.String(), "100%"); got != 1 {
		t.Errorf("100%% emitted %d times after Finish, want 1", got)
	}
}

func TestProgressBarClampsAtTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(2, "Holding")
	p.SetWriter(buf)

	p.Increment()
	p.Increment()
	p.Increment()

	if strings.Contains(buf.String(), "150%") {
		t.Errorf("bar exceeded 100%%: %q", buf.String())
	}
}

func TestSpinnerNonTTYPrintsOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Syncing repositories")
	s.SetWriter(buf)

	s.Start()
	s.Start() // second Start is a no-op
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	output := buf.String()
	if got := strings.Count(output, "Syncing repositories..."); got != 1 {
		t.Errorf("message printed %d times, want 1: %q", got, output)
	}
}

func TestSpinnerStopWithMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Creating snapshot")
	s.SetWriter(buf)

	s.Start()
	s.StopWithMessage("Snapshot created")

	if !strings.Contains(buf.String(), "Snapshot created") {
		t.Errorf("final message missing: %q", buf.String())
	}
}

func TestSpinnerTimingFormat(t *testing.T) {
	s := NewSpinner("Waiting").WithTimeout(30 * time.Second)
	s.mu.Lock()
	s.startTime = time.Now().Add(-5 * time.Second)
	msg := s.formatMessage()
	s.mu.Unlock()

	if !strings.Contains(msg, "remaining)") {
		t.Errorf("formatMessage() = %q, want remaining-time format", msg)
	}
}
