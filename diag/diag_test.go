package diag_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/devblok/raymarch/diag"
	log "github.com/sirupsen/logrus"
)

func newTestSink() (*diag.LogrusSink, *bytes.Buffer) {
	buf := bytes.NewBuffer([]byte{})
	logger := log.New()
	logger.SetOutput(buf)
	logger.SetLevel(log.DebugLevel)
	return diag.NewLogrusSink(logger), buf
}

func TestMessageSeverities(t *testing.T) {
	sink, buf := newTestSink()

	sink.Message(diag.SeverityDebug, "test", "debug line")
	sink.Message(diag.SeverityInfo, "test", "info line")
	sink.Message(diag.SeverityWarning, "test", "warning line")
	sink.Message(diag.SeverityError, "test", "error line")

	out := buf.String()
	for _, want := range []string{"debug line", "info line", "warning line", "error line"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestConcurrentWriters(t *testing.T) {
	sink, buf := newTestSink()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sink.Message(diag.SeverityInfo, "worker", "tick")
			}
		}()
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "tick"); got != 1600 {
		t.Errorf("expected 1600 messages, got %d", got)
	}
}

func TestDiscardNeverPanics(t *testing.T) {
	diag.Discard.Message(diag.SeverityError, "test", "dropped")
}
