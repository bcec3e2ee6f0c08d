package progress

import (
	"bytes"
	"testing"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{Description: "Ingesting documents", Out: &buf}
	r.Start(2)
	r.Update(1, "HA_guide.pdf")
	r.Update(2, "Merkblatt.txt")
	r.Finish()

	want := "Ingesting documents: 2 files\n[1/2] HA_guide.pdf\n[2/2] Merkblatt.txt\nIngesting documents: done\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestNewReporterUnderCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("x").(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}
}

func TestTerminalReporterWithoutStart(t *testing.T) {
	r := &TerminalReporter{Out: &bytes.Buffer{}}
	r.Update(1, "ignored")
	r.Finish()
}
