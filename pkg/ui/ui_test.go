package ui

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetNoColor(true)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetQuiet(false)
		SetNoColor(false)
	})
	return &buf
}

func TestQuietKeepsErrors(t *testing.T) {
	buf := capture(t)
	SetQuiet(true)

	PrintInfo("Ledger", "3 entries")
	PrintError("Run failed", errors.New("disk full"))

	out := buf.String()
	if strings.Contains(out, "Ledger") {
		t.Error("Expected info to be suppressed in quiet mode")
	}
	if !strings.Contains(out, "Run failed: disk full") {
		t.Errorf("Expected error in output, got %q", out)
	}
}

func TestPanelPlain(t *testing.T) {
	buf := capture(t)

	PrintPanel("Archive", [][2]string{{"Files", "25"}, {"Countries", "4"}})

	out := buf.String()
	for _, want := range []string{"Archive", "Files      25", "Countries  4"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}
}

func TestNotifierForwardsToDesktop(t *testing.T) {
	capture(t)
	sender := &recordingSender{}
	n := NewNotifierWithSender(sender)

	if err := n.SendSuccess("Harvest complete", "25 files"); err != nil {
		t.Fatal(err)
	}
	if len(sender.titles) != 1 || sender.titles[0] != "Harvest complete" {
		t.Errorf("Unexpected sends: %v", sender.titles)
	}

	sender.err = errors.New("no display")
	if err := n.SendError("Harvest failed", "x"); err == nil {
		t.Error("Expected sender error to surface")
	}
}

func TestNotifierWithoutDesktop(t *testing.T) {
	buf := capture(t)
	n := NewNotifier(false)

	if n.Desktop() {
		t.Error("Expected no desktop sender")
	}
	if err := n.SendSuccess("Harvest complete", "3 files"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Harvest complete: 3 files") {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestProgress(t *testing.T) {
	buf := capture(t)
	p := NewProgress(20, 20)

	if got := p.SessionBar(10); got != "[██████████░░░░░░░░░░] 10/20" {
		t.Errorf("Unexpected bar %q", got)
	}

	p.SessionStarted(1)
	p.SessionFinished(1, 20, 0, "partial")
	p.SessionFinished(2, 5, 0, "exhausted")

	if p.TotalFetched() != 25 {
		t.Errorf("Expected 25 total, got %d", p.TotalFetched())
	}
	out := buf.String()
	if !strings.Contains(out, "session 1/20") || !strings.Contains(out, "[DONE]") {
		t.Errorf("Unexpected output %q", out)
	}
}
