package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI executes the command tree with the given arguments and returns
// everything written to its output streams. Logging is pinned to the
// error level so reports stay readable.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--log-level=error"}, args...))
	err := root.Execute()
	return buf.String(), err
}

// savedRunID extracts the run ID from a "Run saved:" line.
func savedRunID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Run saved: ") {
			return strings.Fields(line)[2]
		}
	}
	t.Fatalf("no Run saved line in output:\n%s", out)
	return ""
}

// taskRow returns the report table row for the named task, split into
// fields.
func taskRow(t *testing.T, out, name string) []string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, name+" ") {
			return strings.Fields(line)
		}
	}
	t.Fatalf("no table row for task %q in output:\n%s", name, out)
	return nil
}

// --- root tests ---

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"run", "validate", "replay", "serve"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

// --- run tests ---

func TestRun_Report(t *testing.T) {
	out, err := runCLI(t, "run", "testdata/smoke.yaml")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{
		"Scenario: smoke",
		"Mode:          MIXED_CRITICALITY",
		"Ticks:         100 (100ms simulated)",
		"Utilization:   0.400",
		"Hard misses:   0",
		"TASK",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// control releases every 5ms over 100ms and always completes.
	row := taskRow(t, out, "control")
	if row[1] != "HARD" || row[2] != "20" || row[3] != "20" {
		t.Errorf("control row = %v, want HARD 20 20", row)
	}
	row = taskRow(t, out, "sensor")
	if row[1] != "SOFT" || row[2] != "10" || row[3] != "10" {
		t.Errorf("sensor row = %v, want SOFT 10 10", row)
	}
}

func TestRun_ModeOverride(t *testing.T) {
	out, err := runCLI(t, "run", "testdata/smoke.yaml", "--mode", "EDF")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Mode:          EDF") {
		t.Errorf("output missing EDF mode line:\n%s", out)
	}
}

func TestRun_BadMode(t *testing.T) {
	_, err := runCLI(t, "run", "testdata/smoke.yaml", "--mode", "bogus")
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("error = %v, want mention of the bad mode", err)
	}
}

func TestRun_DurationOverride(t *testing.T) {
	out, err := runCLI(t, "run", "testdata/smoke.yaml", "--duration", "50ms")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Ticks:         50 (50ms simulated)") {
		t.Errorf("output missing overridden tick count:\n%s", out)
	}
}

func TestRun_DurationNotMultiple(t *testing.T) {
	_, err := runCLI(t, "run", "testdata/smoke.yaml", "--duration", "1500us")
	if err == nil {
		t.Fatal("expected error for misaligned duration")
	}
	if !strings.Contains(err.Error(), "not a multiple") {
		t.Errorf("error = %v, want multiple-of-granularity complaint", err)
	}
}

// --- validate tests ---

func TestValidate(t *testing.T) {
	out, err := runCLI(t, "validate", "testdata/smoke.yaml")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, want := range []string{
		`Scenario "smoke" is valid`,
		"Tasks:       2",
		"Duration:    100ms (100 ticks at 1ms granularity)",
		"Mode:        MIXED_CRITICALITY",
		"Utilization: 0.400",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidate_Invalid(t *testing.T) {
	_, err := runCLI(t, "validate", "testdata/bad.yaml")
	if err == nil {
		t.Fatal("expected error for invalid scenario")
	}
	if !strings.Contains(err.Error(), "invalid scenario") {
		t.Errorf("error = %v, want validation failure", err)
	}
}

func TestValidate_MissingFile(t *testing.T) {
	if _, err := runCLI(t, "validate", "testdata/absent.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// --- replay tests ---

func TestRunAndReplay_RoundTrip(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := runCLI(t, "run", "testdata/smoke.yaml", "--db", db)
	if err != nil {
		t.Fatalf("run --db: %v", err)
	}
	id := savedRunID(t, out)

	out, err = runCLI(t, "replay", id, "--db", db)
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}
	if !strings.Contains(out, "100 ticks, 100 events") {
		t.Errorf("output missing event counts:\n%s", out)
	}
	if !strings.Contains(out, "Replay matches the stored snapshot.") {
		t.Errorf("output missing match confirmation:\n%s", out)
	}
}

func TestReplay_UnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	if _, err := runCLI(t, "run", "testdata/smoke.yaml", "--db", db); err != nil {
		t.Fatalf("run --db: %v", err)
	}

	_, err := runCLI(t, "replay", "run_missing", "--db", db)
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not-found failure", err)
	}
}

func TestReplay_RequiresDB(t *testing.T) {
	if _, err := runCLI(t, "replay", "run_x"); err == nil {
		t.Fatal("expected error when --db is omitted")
	}
}
