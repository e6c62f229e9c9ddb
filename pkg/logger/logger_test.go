package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_AttachesServiceAndKeepsFirstLogger(t *testing.T) {
	Reset()
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() {
		Reset()
		zerolog.SetGlobalLevel(prev)
	})

	var first, second bytes.Buffer
	l := Init(Options{Level: "info", Service: "user-api", Output: &first})
	Init(Options{Level: "debug", Output: &second})

	l.Info().Msg("hello")
	g := Get()
	g.Info().Msg("again")

	if second.Len() != 0 {
		t.Fatalf("second Init must not replace the logger")
	}
	lines := bytes.Split(bytes.TrimSpace(first.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), first.String())
	}
	var event map[string]any
	if err := json.Unmarshal(lines[0], &event); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if event["service"] != "user-api" || event["message"] != "hello" {
		t.Fatalf("unexpected event: %v", event)
	}
}

func TestGet_BeforeInitIsDisabled(t *testing.T) {
	Reset()
	l := Get()
	if l.GetLevel() != zerolog.Disabled {
		t.Fatalf("expected disabled logger, got %v", l.GetLevel())
	}
}
