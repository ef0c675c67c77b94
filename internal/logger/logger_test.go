package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Errorf("failed: %s", "boom")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged with debug disabled: %q", out)
	}
	if !strings.Contains(out, "[INFO] shown 2") {
		t.Errorf("missing info line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] failed: boom") {
		t.Errorf("missing error line: %q", out)
	}

	buf.Reset()
	New(&buf, true).Debugf("visible")
	if !strings.Contains(buf.String(), "[DEBUG] visible") {
		t.Errorf("missing debug line: %q", buf.String())
	}
}
