package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drone/drone-qops/loadmetrics"
	"github.com/drone/drone-qops/report"
	"github.com/drone/drone-qops/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReportLoadAndSummary(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "qops.db")
	cfg := filepath.Join(dir, "missing.yaml")

	out, err := execute(t, "report", "../../testdata/junit-report.xml",
		"--config", cfg, "--db", db, "--project", "checkout", "--env", "staging")
	require.NoError(t, err)
	assert.Contains(t, out, "Run #1 robot-run: failed (total 4, passed 1, failed 2, skipped 1)")

	out, err = execute(t, "load", "../../testdata/load-summary.json",
		"--config", cfg, "--db", db, "--project", "checkout", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "Load run #1 checkout-load: 12000 requests")

	out, err = execute(t, "runs", "--config", cfg, "--db", db, "--project", "checkout")
	require.NoError(t, err)
	assert.Contains(t, out, "robot-run")
	assert.Contains(t, out, "staging")

	out, err = execute(t, "summary", "--config", cfg, "--db", db, "--project", "checkout")
	require.NoError(t, err)
	assert.Contains(t, out, "Project: checkout")
	assert.Contains(t, out, "Pass rate: 25.00%")
	assert.Contains(t, out, "Last load run: #1 checkout-load (12000 requests, 0.20% failed)")
}

func TestReportMalformed(t *testing.T) {
	dir := t.TempDir()
	cfg, db := filepath.Join(dir, "c.yaml"), filepath.Join(dir, "qops.db")
	_, err := execute(t, "report", "../../testdata/invalid.xml",
		"--config", cfg, "--db", db, "--project", "p")

	var malformed *report.MalformedReportError
	assert.ErrorAs(t, err, &malformed)

	// The project is only created once a report parses.
	_, err = execute(t, "summary", "--config", cfg, "--db", db, "--project", "p")
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestSummaryUnknownProject(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "summary",
		"--config", filepath.Join(dir, "c.yaml"), "--db", filepath.Join(dir, "qops.db"), "--project", "nope")
	assert.Error(t, err)
}

func TestReportRequiresProject(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "report", "../../testdata/junit-report.xml",
		"--config", filepath.Join(dir, "c.yaml"), "--db", filepath.Join(dir, "qops.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no project given")
}

func TestApplyMeta(t *testing.T) {
	p := &loadmetrics.Payload{Name: "from-file", Environment: "prod"}
	applyMeta(p, &metaFlags{name: "override", branch: "main"})

	assert.Equal(t, "override", p.Name)
	assert.Equal(t, "prod", p.Environment)
	assert.Equal(t, "main", p.Branch)
}
