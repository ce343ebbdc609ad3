package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/nomination-archive-crawler/internal/export"
	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
	"github.com/JakeFAU/nomination-archive-crawler/internal/pipeline"
	"github.com/JakeFAU/nomination-archive-crawler/internal/storage/sqlite"
)

func readExport(t *testing.T, path string) []export.Row {
	t.Helper()
	// #nosec G304 -- test reads from the controlled temp directory.
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := export.Read(f)
	require.NoError(t, err)
	return rows
}

func TestExportCommandReadsExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nominations.db")
	out := filepath.Join(dir, "out.csv")

	ctx := context.Background()
	store, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx))
	_, err = store.SaveSummary(ctx, nomination.Summary{ID: 42, Category: nomination.CategoryLiterature, Year: 1915})
	require.NoError(t, err)
	var attrs nomination.Attributes
	attrs.Set(nomination.FieldName, "Selma Lagerlöf")
	_, err = store.SaveDetail(ctx, 42, []nomination.Person{{
		NominationID: 42,
		Role:         "Nominator 1",
		Kind:         nomination.RoleNominator,
		Attributes:   attrs,
	}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, execute(ctx, []string{"--database", dbPath, "--output", out, "export"}))

	rows := readExport(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].ID)
	assert.Equal(t, "Nobel Prize in Literature", rows[0].Prize)
	assert.Equal(t, "Selma Lagerlöf", rows[0].Name)
}

func TestCrawlCommandAgainstArchive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/archive/list.php", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body><table>
<tr><td>Nominee(s)</td><td>Nominator(s)</td><td></td></tr>
<tr><td><a href="show_people.php?id=5">Ada</a></td><td><a href="show_people.php?id=6">Bo</a></td><td><a href="show.php?id=77">show</a></td></tr>
</table></body></html>`)
	})
	mux.HandleFunc("/archive/show.php", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body><table style="border: 1px solid #DDDDDD;">
<tr><td><b>Nominee 1:</b></td></tr>
<tr><td><span class="rubr">Name:</span></td><td>Ada</td></tr>
<tr><td><b>Nominator 1:</b></td></tr>
<tr><td><span class="rubr">Name:</span></td><td>Bo</td></tr>
</table></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	out := filepath.Join(dir, "out.csv")
	cfgYAML := fmt.Sprintf(`
crawl:
  categories: [1]
source:
  base_url: %s/archive
logging:
  development: false
  level: error
`, srv.URL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o600))

	args := []string{"--config", cfgPath, "--min-year", "1901", "--max-year", "1901", "--output", out, "crawl"}
	require.NoError(t, execute(context.Background(), args))

	rows := readExport(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, srv.URL+"/archive/show.php?id=77", rows[0].URL)
	assert.Equal(t, "Nominee 1", rows[0].Role)
	assert.Equal(t, "Ada", rows[0].Name)
	assert.Equal(t, "Nominator 1", rows[1].Role)
	assert.Equal(t, "Bo", rows[1].Name)
}

func TestInvalidFlagsFailBeforeRunning(t *testing.T) {
	err := execute(context.Background(), []string{"--min-year", "1800", "export"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl.min_year")
}

type failingFetcher struct{}

func (failingFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	return nil, &nomination.FetchError{URL: url, StatusCode: http.StatusInternalServerError, Err: errors.New("boom")}
}

type fakeApp struct {
	pipeline *pipeline.Pipeline
	closed   int
}

func (f *fakeApp) Close()                       { f.closed++ }
func (f *fakeApp) Logger() *zap.Logger          { return zap.NewNop() }
func (f *fakeApp) Pipeline() *pipeline.Pipeline { return f.pipeline }

func TestAppClosedWhenCommandFails(t *testing.T) {
	store, err := sqlite.Open("")
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	p, err := pipeline.New(pipeline.Config{
		MinYear:    1901,
		MaxYear:    1901,
		Categories: []nomination.Category{nomination.CategoryPeace},
		ExportPath: filepath.Join(t.TempDir(), "out.csv"),
	}, failingFetcher{}, store, nil)
	require.NoError(t, err)

	fake := &fakeApp{pipeline: p}
	original := newApp
	newApp = func(context.Context, string, *cobra.Command) (App, error) { return fake, nil }
	t.Cleanup(func() { newApp = original })

	err = execute(context.Background(), []string{"overview"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, nomination.ErrFetch))
	assert.Equal(t, 1, fake.closed)
}

func TestResolveAppWithoutApp(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
