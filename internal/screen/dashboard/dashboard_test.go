package dashboard_test

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/innoguard/internal/apiclient"
	"github.com/jwalitptl/innoguard/internal/model"
	"github.com/jwalitptl/innoguard/internal/screen/dashboard"
	"github.com/jwalitptl/innoguard/internal/session"
	fake "github.com/jwalitptl/innoguard/internal/testutil"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
	"github.com/jwalitptl/innoguard/pkg/metrics"
)

func loggedIn(t *testing.T) session.Source {
	t.Helper()
	tok, err := fake.IssueToken("clinician", time.Hour)
	require.NoError(t, err)
	return session.Static(&model.Session{Token: tok, Role: model.RoleClinician})
}

func setup(t *testing.T, opts ...dashboard.Option) (*fake.Backend, *dashboard.Screen) {
	t.Helper()
	b := fake.NewBackend()
	t.Cleanup(b.Close)
	client := apiclient.New(apiclient.Config{BaseURL: b.URL(), Timeout: 5 * time.Second})
	return b, dashboard.NewScreen(client, loggedIn(t), opts...)
}

func TestMount_LoadsFirstPage(t *testing.T) {
	b, screen := setup(t)

	require.NoError(t, screen.Mount(context.Background()))

	assert.Len(t, screen.Patients(), 10)
	assert.Equal(t, 25, screen.Total())
	assert.Equal(t, model.RoleClinician, screen.Role())
	assert.Equal(t, "limit=10&offset=0", b.RequestsTo("/patients")[0].Query)
	assert.NoError(t, screen.Err())
}

func TestPager(t *testing.T) {
	b, screen := setup(t)
	ctx := context.Background()
	require.NoError(t, screen.Mount(ctx))

	assert.Equal(t, "Page 1 of 3", screen.PageLabel())
	assert.False(t, screen.CanPrevious())
	assert.True(t, screen.CanNext())

	require.NoError(t, screen.Previous(ctx))
	assert.Equal(t, 0, screen.Page())
	assert.Len(t, b.RequestsTo("/patients"), 1)

	require.NoError(t, screen.Next(ctx))
	require.NoError(t, screen.Next(ctx))
	assert.Equal(t, 2, screen.Page())
	assert.Equal(t, "Page 3 of 3", screen.PageLabel())
	assert.False(t, screen.CanNext())
	assert.Len(t, screen.Patients(), 5)

	require.NoError(t, screen.Next(ctx))
	assert.Equal(t, 2, screen.Page())
	assert.Len(t, b.RequestsTo("/patients"), 3)

	require.NoError(t, screen.Previous(ctx))
	assert.Equal(t, 1, screen.Page())
	assert.Equal(t, "limit=10&offset=10", b.RequestsTo("/patients")[3].Query)
}

func TestPager_NoTotal(t *testing.T) {
	b, screen := setup(t)
	b.OmitTotal()
	require.NoError(t, screen.Mount(context.Background()))

	assert.Equal(t, 0, screen.Total())
	assert.Equal(t, "Page 1 of 1", screen.PageLabel())
	assert.False(t, screen.CanNext())
	assert.Equal(t, 10, screen.Stats().TotalPatients)
}

func TestTotalKeptWhenAbsent(t *testing.T) {
	b, screen := setup(t)
	ctx := context.Background()
	require.NoError(t, screen.Mount(ctx))

	b.OmitTotal()
	require.NoError(t, screen.SetPage(ctx, 1))
	assert.Equal(t, 25, screen.Total())
}

func TestTotalKeptWhenReportedZero(t *testing.T) {
	b, screen := setup(t)
	ctx := context.Background()
	require.NoError(t, screen.Mount(ctx))

	b.PatientsBody(`{"data":[{"patient_id":"P11","age":30,"disease":"flu"}],"pagination":{"limit":10,"offset":10,"total":0}}`)
	require.NoError(t, screen.SetPage(ctx, 1))
	assert.Equal(t, 25, screen.Total())
	assert.True(t, screen.CanNext())
	assert.Equal(t, "Page 2 of 3", screen.PageLabel())
}

func TestSetPage_ClampsNegative(t *testing.T) {
	b, screen := setup(t)
	require.NoError(t, screen.SetPage(context.Background(), -3))
	assert.Equal(t, 0, screen.Page())
	assert.Equal(t, "limit=10&offset=0", b.RequestsTo("/patients")[0].Query)
}

func TestFetch_NoSession(t *testing.T) {
	b := fake.NewBackend()
	defer b.Close()
	client := apiclient.New(apiclient.Config{BaseURL: b.URL()})
	screen := dashboard.NewScreen(client, session.Bind(session.NewMemoryStore(0), "nobody"))

	err := screen.Mount(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSessionMissing)
	assert.ErrorIs(t, screen.Err(), apperrors.ErrSessionMissing)
	assert.Empty(t, b.RequestsTo("/patients"))
}

func TestFetch_ErrorKeepsPriorState(t *testing.T) {
	b, screen := setup(t)
	ctx := context.Background()
	require.NoError(t, screen.Mount(ctx))
	before := screen.Patients()

	b.FailPatients(http.StatusInternalServerError)
	err := screen.Next(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrFetchPatientsFailed)
	assert.Equal(t, "Failed to load patients: 500", screen.View().Error)

	assert.Equal(t, before, screen.Patients())
	assert.Equal(t, 25, screen.Total())
	assert.False(t, screen.Loading())

	b.FailPatients(0)
	require.NoError(t, screen.Mount(ctx))
	assert.NoError(t, screen.Err())
}

func TestFetch_MalformedBody(t *testing.T) {
	b, screen := setup(t)
	b.PatientsBody(`{"rows":[]}`)

	err := screen.Mount(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrFetchPatientsFailed)
	assert.Empty(t, screen.Patients())
}

func TestFetch_StaleResponseDiscarded(t *testing.T) {
	m := metrics.NewMetrics("test", "dashboard", prometheus.NewRegistry())
	b, screen := setup(t, dashboard.WithMetrics(m))
	ctx := context.Background()

	b.Hold(0)
	first := make(chan error, 1)
	go func() { first <- screen.FetchPatients(ctx, 0) }()

	require.Eventually(t, func() bool {
		return len(b.RequestsTo("/patients")) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, screen.FetchPatients(ctx, 1))
	b.Release(0)

	assert.ErrorIs(t, <-first, dashboard.ErrSuperseded)
	assert.Equal(t, 1, screen.Page())
	assert.Equal(t, "P11", screen.Patients()[0].PatientID)
	assert.NoError(t, screen.Err())
	assert.Equal(t, float64(1), promtest.ToFloat64(m.FetchesDiscarded))
}

func TestView(t *testing.T) {
	b, screen := setup(t)
	b.SetRows(`["P1","NY",45,"flu",120.5]`, `["P2","LA",30,"cold",80]`)
	require.NoError(t, screen.Mount(context.Background()))

	v := screen.View()
	assert.Equal(t, model.RoleClinician, v.Role)
	assert.Equal(t, dashboard.PageStats{TotalPatients: 2, AvgAge: 38, MostCommonDisease: "flu"}, v.Stats)
	assert.Equal(t, []string{"patient_id", "location", "age", "disease", "purchase_amount"}, v.Table.Headers)
	assert.Equal(t, [][]string{
		{"P1", "NY", "45", "flu", "120.5"},
		{"P2", "LA", "30", "cold", "80"},
	}, v.Table.Rows)
	assert.False(t, v.CanNext)
	assert.False(t, v.CanPrevious)
	assert.Equal(t, "Page 1 of 1", v.PageLabel)
}

func TestDownloadCSV(t *testing.T) {
	b, screen := setup(t)

	var got strings.Builder
	var name string
	err := screen.DownloadCSV(context.Background(), dashboard.SaverFunc(func(_ context.Context, filename string, r io.Reader) error {
		name = filename
		_, err := io.Copy(&got, r)
		return err
	}))
	require.NoError(t, err)
	assert.Equal(t, "patients.csv", name)
	assert.Equal(t, b.CSV(), got.String())
}

func TestDownloadCSV_Failure(t *testing.T) {
	b, screen := setup(t)
	b.FailDownload(http.StatusForbidden)

	called := false
	err := screen.DownloadCSV(context.Background(), dashboard.SaverFunc(func(context.Context, string, io.Reader) error {
		called = true
		return nil
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDownloadFailed)
	assert.Equal(t, "Failed to download", apperrors.MessageOf(err))
	assert.False(t, called)
	assert.Equal(t, "Failed to download", screen.View().Error)

	b.FailDownload(0)
	require.NoError(t, screen.DownloadCSV(context.Background(), dashboard.SaverFunc(func(_ context.Context, _ string, r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		return err
	})))
	assert.NoError(t, screen.Err())
}

func TestDownloadCSV_KeepsFetchError(t *testing.T) {
	b, screen := setup(t)
	ctx := context.Background()
	b.FailPatients(http.StatusInternalServerError)
	require.Error(t, screen.Mount(ctx))

	require.NoError(t, screen.DownloadCSV(ctx, dashboard.SaverFunc(func(_ context.Context, _ string, r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		return err
	})))
	assert.ErrorIs(t, screen.Err(), apperrors.ErrFetchPatientsFailed)
}

func TestFileSaver(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, dashboard.FileSaver{Path: dir}.Save(context.Background(), "patients.csv", strings.NewReader("a,b\n")))
	data, err := os.ReadFile(filepath.Join(dir, "patients.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	target := filepath.Join(dir, "export.csv")
	require.NoError(t, dashboard.FileSaver{Path: target}.Save(context.Background(), "patients.csv", strings.NewReader("c\n")))
	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "c\n", string(data))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestFileSaver_NothingSavedOnError(t *testing.T) {
	dir := t.TempDir()

	err := dashboard.FileSaver{Path: dir}.Save(context.Background(), "patients.csv", failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
