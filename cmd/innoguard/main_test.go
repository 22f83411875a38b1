package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/innoguard/internal/screen/dashboard"
	fake "github.com/jwalitptl/innoguard/internal/testutil"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
)

type cli struct {
	backend     *fake.Backend
	sessionFile string
	stderr      string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	b := fake.NewBackend()
	t.Cleanup(b.Close)

	file := filepath.Join(t.TempDir(), "session.yaml")
	t.Setenv("INNOGUARD_API_URL", b.URL())
	t.Setenv("INNOGUARD_SESSION_FILE", file)
	return &cli{backend: b, sessionFile: file}
}

func (c *cli) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	c.stderr = errOut.String()
	return out.String(), err
}

func TestLoginCommand(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, "", "login", "--role", "researcher")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Researcher")
	assert.Contains(t, out, "Page 1 of 3")
	assert.Contains(t, out, "Most Common Disease: flu")

	data, err := os.ReadFile(c.sessionFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "role: researcher")
	assert.Contains(t, string(data), "token: ")

	out, err = c.run(t, "", "session")
	require.NoError(t, err)
	assert.Contains(t, out, "Role: researcher")
	assert.Contains(t, out, "(valid)")
}

func TestLoginCommand_Failure(t *testing.T) {
	c := newCLI(t)
	c.backend.FailToken(http.StatusServiceUnavailable)

	_, err := c.run(t, "", "login", "-q")
	require.Error(t, err)
	assert.Equal(t, "Login failed: 503", err.Error())
	assert.NoFileExists(t, c.sessionFile)
}

func TestLoginCommand_FirstPageFails(t *testing.T) {
	c := newCLI(t)
	c.backend.FailPatients(http.StatusInternalServerError)

	out, err := c.run(t, "", "login", "--role", "developer")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Developer")
	assert.Contains(t, c.stderr, "! Failed to load patients: 500")
	assert.FileExists(t, c.sessionFile)
}

func TestLoginCommand_InvalidRole(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t, "", "login", "--role", "admin")
	assert.Error(t, err)
	assert.Empty(t, c.backend.RequestsTo("/token"))
}

func TestPatientsCommand(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(t, "", "login", "-q")
	require.NoError(t, err)

	out, err := c.run(t, "", "patients", "--page", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 3 of 3")
	assert.Contains(t, out, "P21")
	assert.Contains(t, out, "[p]revious")

	out, err = c.run(t, "", "patients", "--json")
	require.NoError(t, err)
	var view dashboard.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 25, view.Stats.TotalPatients)
	assert.True(t, view.CanNext)
}

func TestPatientsCommand_NoSession(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t, "", "patients")
	assert.ErrorIs(t, err, apperrors.ErrSessionMissing)
	assert.Empty(t, c.backend.RequestsTo("/patients"))
}

func TestBrowseCommand(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(t, "", "login", "-q")
	require.NoError(t, err)

	out, err := c.run(t, "n\nn\nn\np\nx\nq\n", "browse")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 1 of 3")
	assert.Contains(t, out, "Page 3 of 3")
	assert.Contains(t, out, "commands: n, p, d, r, q")

	queries := []string{}
	for _, r := range c.backend.RequestsTo("/patients") {
		queries = append(queries, r.Query)
	}
	assert.Equal(t, []string{
		"limit=10&offset=0",
		"limit=10&offset=10",
		"limit=10&offset=20",
		"limit=10&offset=10",
	}, queries)
}

func TestDownloadCommand(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(t, "", "login", "-q")
	require.NoError(t, err)

	dir := t.TempDir()
	out, err := c.run(t, "", "download", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "patients.csv"))

	data, err := os.ReadFile(filepath.Join(dir, "patients.csv"))
	require.NoError(t, err)
	assert.Equal(t, c.backend.CSV(), string(data))
}

func TestDownloadCommand_Failure(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(t, "", "login", "-q")
	require.NoError(t, err)
	c.backend.FailDownload(http.StatusForbidden)

	target := filepath.Join(t.TempDir(), "out.csv")
	_, err = c.run(t, "", "download", "--out", target)
	require.Error(t, err)
	assert.Equal(t, "Failed to download", err.Error())
	assert.NoFileExists(t, target)
}
