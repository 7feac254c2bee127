package scraper_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/use-agent/tendercrawl/config"
	"github.com/use-agent/tendercrawl/extract"
	"github.com/use-agent/tendercrawl/scraper"
	"github.com/use-agent/tendercrawl/scraper/scrapertest"
)

const (
	listURL   = "https://example.gov/tender?type=open"
	detailURL = "https://example.gov/detail?id=1"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLayout(t *testing.T) *extract.Layout {
	t.Helper()
	l, err := extract.NewLayout(config.Load().Selectors)
	require.NoError(t, err)
	return l
}

func newFetcher(page scraper.Page, snapDir string) *scraper.Fetcher {
	var snap *scraper.Snapshotter
	if snapDir != "" {
		snap = scraper.NewSnapshotter(snapDir, discardLogger())
	}
	return scraper.NewFetcher(page, scraper.FetcherOptions{}, snap, discardLogger())
}

func TestFetch_Success(t *testing.T) {
	page := scrapertest.New().Serve(listURL, scrapertest.Blank)

	out := newFetcher(page, "").Fetch(context.Background(), listURL)
	require.True(t, out.Success)
	require.Equal(t, listURL, out.FinalURL)
}

func TestFetch_ReportsRedirect(t *testing.T) {
	page := scrapertest.New().
		Serve("https://example.gov/login", scrapertest.Blank).
		Redirect(listURL, "https://example.gov/login")

	out := newFetcher(page, "").Fetch(context.Background(), listURL)
	require.True(t, out.Success)
	require.Equal(t, "https://example.gov/login", out.FinalURL)
}

func TestFetch_NavigationFailureIsNotAnError(t *testing.T) {
	page := scrapertest.New().Fail(listURL, errors.New("net::ERR_CONNECTION_RESET"))

	out := newFetcher(page, "").Fetch(context.Background(), listURL)
	require.False(t, out.Success)
	require.Empty(t, out.FinalURL)
}

func TestFetch_MissingBody(t *testing.T) {
	page := scrapertest.New().Serve(listURL, "")
	page.WaitErr = context.DeadlineExceeded

	out := newFetcher(page, "").Fetch(context.Background(), listURL)
	require.False(t, out.Success)
}

func TestWaitForCondition_ReloadsUntilPresent(t *testing.T) {
	page := scrapertest.New().Serve(listURL,
		scrapertest.Blank,
		scrapertest.Blank,
		`<html><body><div id="printRange">ok</div></body></html>`,
	)
	f := newFetcher(page, "")
	require.True(t, f.Fetch(context.Background(), listURL).Success)

	html, ok := f.WaitForCondition(context.Background(), "div#printRange", scraper.Presence, 0, 3)
	require.True(t, ok)
	require.Contains(t, html, "printRange")
	require.Equal(t, 2, page.Reloads)
}

func TestWaitForCondition_GivesUpAfterRetries(t *testing.T) {
	page := scrapertest.New().Serve(listURL, scrapertest.Blank)
	f := newFetcher(page, "")
	require.True(t, f.Fetch(context.Background(), listURL).Success)

	_, ok := f.WaitForCondition(context.Background(), "table#tpam", scraper.Visible, 0, 3)
	require.False(t, ok)
	require.Equal(t, 2, page.Reloads, "no reload after the last attempt")
}

func TestWaitForCondition_UnexpectedErrorTakesSnapshot(t *testing.T) {
	dir := t.TempDir()
	page := scrapertest.New().Serve(listURL, scrapertest.Blank)
	f := newFetcher(page, dir)
	require.True(t, f.Fetch(context.Background(), listURL).Success)

	page.WaitErr = errors.New("target closed")
	_, ok := f.WaitForCondition(context.Background(), "table#tpam", scraper.Clickable, 0, 3)
	require.False(t, ok)
	require.Zero(t, page.Reloads)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestWaitForCondition_Cancelled(t *testing.T) {
	page := scrapertest.New().Serve(listURL, scrapertest.Blank)
	f := newFetcher(page, "")
	require.True(t, f.Fetch(context.Background(), listURL).Success)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := f.WaitForCondition(ctx, "table#tpam", scraper.Presence, 0, 3)
	require.False(t, ok)
	require.Zero(t, page.Reloads)
}

func TestListExtractor_Extract(t *testing.T) {
	html := scrapertest.Listing("?page=2",
		scrapertest.Row{Org: "機關A", Case: "A-1", Title: "工程", Type: "公開招標", Announce: "114/03/01", Deadline: "114/03/15", Budget: "100", Link: "/detail?id=1"},
		scrapertest.Row{Org: "機關B", Case: "B-2", Type: "限制性招標", Announce: "114/03/02", Deadline: "114/03/16", Budget: "200"},
	)
	page := scrapertest.New().Serve(listURL, html)
	f := newFetcher(page, "")
	require.True(t, f.Fetch(context.Background(), listURL).Success)

	list := scraper.NewListExtractor(f, testLayout(t), 0, 3, discardLogger())
	parsed, err := list.Extract(context.Background())
	require.NoError(t, err)

	records := parsed.Records()
	require.Len(t, records, 2)
	require.Equal(t, "A-1", records[0].CaseNumber)
	require.Equal(t, "工程", records[0].Title)
	require.Equal(t, detailURL, records[0].DetailLink)
	require.Empty(t, records[1].DetailLink)
	require.Equal(t, "https://example.gov/tender?page=2", parsed.Next)

	require.Len(t, list.ExtractRecords(context.Background()), 2)
	require.Equal(t, parsed.Next, list.NextPageLink(context.Background()))
}

func TestListExtractor_EmptyPage(t *testing.T) {
	page := scrapertest.New().Serve(listURL, scrapertest.Blank)
	f := newFetcher(page, "")
	require.True(t, f.Fetch(context.Background(), listURL).Success)

	list := scraper.NewListExtractor(f, testLayout(t), 0, 2, discardLogger())
	parsed, err := list.Extract(context.Background())
	require.NoError(t, err)
	require.Empty(t, parsed.Records())
	require.Empty(t, parsed.Next)
	require.Equal(t, 1, page.Reloads)
}

func newDetail(t *testing.T, page scraper.Page) *scraper.DetailExtractor {
	return scraper.NewDetailExtractor(newFetcher(page, ""), testLayout(t), scraper.DetailOptions{}, discardLogger())
}

func TestDetailExtractor_FirstAttempt(t *testing.T) {
	page := scrapertest.New().Serve(detailURL, scrapertest.Detail("採購資料", "標案案號", "A-1", "預算金額", "100"))

	doc := newDetail(t, page).Parse(context.Background(), detailURL, 3)
	require.Equal(t, map[string]string{"標案案號": "A-1", "預算金額": "100"}, doc["採購資料"])
	require.Equal(t, 1, page.Visits(detailURL))
	require.Equal(t, 1, page.Clears)
	require.Equal(t, 1, page.Scrolls)
}

func TestDetailExtractor_RetriesUntilTablesAppear(t *testing.T) {
	page := scrapertest.New().Serve(detailURL,
		scrapertest.Blank,
		scrapertest.Detail("", "機關名稱", "交通部"),
	)

	doc := newDetail(t, page).Parse(context.Background(), detailURL, 3)
	require.Equal(t, "交通部", doc["unnamed_table_0"]["機關名稱"])
	require.Equal(t, 2, page.Visits(detailURL))
	require.Equal(t, 2, page.Clears)
}

func TestDetailExtractor_ZeroTablesReturnsEmpty(t *testing.T) {
	page := scrapertest.New().Serve(detailURL, `<html><body><div id="printRange"></div></body></html>`)

	doc := newDetail(t, page).Parse(context.Background(), detailURL, 3)
	require.NotNil(t, doc)
	require.Empty(t, doc)
	require.Equal(t, 3, page.Visits(detailURL))
	require.Equal(t, 3, page.Clears)
}

func TestDetailExtractor_EmptyTablesConsumeAttempts(t *testing.T) {
	page := scrapertest.New().Serve(detailURL, scrapertest.Detail("空白表格"))

	doc := newDetail(t, page).Parse(context.Background(), detailURL, 2)
	require.Empty(t, doc)
	require.Equal(t, 2, page.Visits(detailURL))
}

func TestDetailExtractor_FetchFailureConsumesAttempt(t *testing.T) {
	page := scrapertest.New().Fail(detailURL, errors.New("net::ERR_TIMED_OUT"))

	doc := newDetail(t, page).Parse(context.Background(), detailURL, 3)
	require.Empty(t, doc)
	require.Equal(t, 3, page.Visits(detailURL))
}
