package logger

import (
	"os"
	"path/filepath"
	"testing"

	logrus "github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestSetup_SetsLevel(t *testing.T) {
	out := Setup(filepath.Join(t.TempDir(), "app.log"), "debug")
	if out == nil {
		t.Fatal("expected a writer")
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", logrus.GetLevel())
	}
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetOutput(os.Stderr)
}
