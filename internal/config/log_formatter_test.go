package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestNbFormatterOrdersFields(t *testing.T) {
	t.Parallel()

	entry := &log.Entry{
		Logger:  log.New(),
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   log.InfoLevel,
		Message: "settled\nok",
		Data: log.Fields{
			"request":   "r1",
			"component": "verification",
			"amount":    1.5,
			"error":     errors.New("boom"),
		},
	}
	out, err := (&NbFormatter{NoColor: true}).Format(entry)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	line := string(out)
	want := `level=INFO ts=2024-01-02 03:04:05.000 component=verification amount=1.5 error="boom" request="r1" msg="settled\nok"` + "\n"
	if line != want {
		t.Fatalf("unexpected line:\n got %q\nwant %q", line, want)
	}
	if strings.Count(line, "\n") != 1 {
		t.Fatalf("expected single line output")
	}
}
