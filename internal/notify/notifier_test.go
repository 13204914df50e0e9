package notify

import (
	"context"
	"testing"
	"time"

	"github.com/trainerhub/schedule-assistant/pkg/logger"
)

func TestBannerAutoClears(t *testing.T) {
	n := New(nil, 50*time.Millisecond, logger.NewNop())

	n.Notify(context.Background(), "Session moved to 15:00.")
	if got := n.Current(); got != "Session moved to 15:00." {
		t.Fatalf("current banner got=%q", got)
	}

	deadline := time.After(time.Second)
	for n.Current() != "" {
		select {
		case <-deadline:
			t.Fatal("banner did not clear")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestNewerBannerSurvivesOlderExpiry(t *testing.T) {
	n := New(nil, 50*time.Millisecond, logger.NewNop())

	n.Notify(context.Background(), "first")
	time.Sleep(20 * time.Millisecond)
	n.Notify(context.Background(), "second")

	// Past the first banner's window but inside the second's.
	time.Sleep(40 * time.Millisecond)
	if got := n.Current(); got != "second" {
		t.Fatalf("current banner got=%q want=%q", got, "second")
	}
}
