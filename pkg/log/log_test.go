package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/log"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "warn", Format: configs.LogFormatJSON}, false, &buf)
	l.Info().Msg("hidden")
	l.Warn().Str("k", "v").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info event written at warn level: %s", out)
	}

	if !strings.Contains(out, `"message":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("warn event missing: %s", out)
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "loud", Format: configs.LogFormatJSON}, false, &buf)
	if l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %s", l.GetLevel())
	}

	if !strings.Contains(buf.String(), "unknown log level") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestGinWriterSplitsLines(t *testing.T) {
	var buf bytes.Buffer

	l := zerolog.New(&buf)
	w := log.NewGinWriter(&l, zerolog.ErrorLevel)

	in := "[GIN-debug] first\n\n[GIN-debug] second\n"

	n, err := w.Write([]byte(in))
	if err != nil || n != len(in) {
		t.Fatalf("write = %d, %v", n, err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d events: %s", len(lines), buf.String())
	}

	if !strings.Contains(lines[0], `"level":"error"`) || !strings.Contains(lines[1], "second") {
		t.Errorf("unexpected events: %v", lines)
	}
}
