package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/yumyai/goenrich/internal/util"
	"github.com/yumyai/goenrich/logger"
	"github.com/yumyai/goenrich/pkg/dex"
	"github.com/yumyai/goenrich/pkg/goterms"
)

func TestMain(m *testing.M) {
	if err := logger.InitLogger(zapcore.ErrorLevel); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const testDE = `names,scores,logfoldchanges,pvals_adj
CD3D,10.5,2.1,0.001
CD3E,8.2,1.5,0.01
ACTB,25.0,0.2,0.0001
`

const testProfileResponse = `{
	"result": [
		{"source": "GO:BP", "native": "GO:0006955", "name": "immune response",
		 "p_value": 1.2e-8, "significant": true,
		 "term_size": 2000, "query_size": 2, "intersection_size": 2}
	],
	"meta": {}
}`

func newEnrichmentServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testProfileResponse))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func queryFixture(t *testing.T, baseURL string) QueryOptions {
	t.Helper()
	root := t.TempDir()

	deDir := filepath.Join(root, "de")
	if err := util.EnsureDir(deDir); err != nil {
		t.Fatalf("mkdir de: %v", err)
	}
	if err := os.WriteFile(filepath.Join(deDir, "DE_c1.csv"), []byte(testDE), 0o644); err != nil {
		t.Fatalf("write DE table: %v", err)
	}

	return QueryOptions{
		DEDir:     deDir,
		OutDir:    filepath.Join(root, "goterms"),
		Selection: dex.Selection{LFCCutoff: 1.0, PValCutoff: 0.05, TopN: 500},
		Organism:  "hsapiens",
		BaseURL:   baseURL,
		CachePath: filepath.Join(root, "cache", "goenrich.db"),
	}
}

func TestRunQueryWritesTermTables(t *testing.T) {
	calls := 0
	srv := newEnrichmentServer(t, &calls)
	opts := queryFixture(t, srv.URL)

	if err := RunQuery(context.Background(), opts); err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if calls != 1 {
		t.Fatalf("want 1 API call, got %d", calls)
	}

	terms, err := goterms.ReadCSV(filepath.Join(opts.OutDir, "GO_c1.csv"))
	if err != nil {
		t.Fatalf("read result table: %v", err)
	}
	if len(terms) != 1 || terms[0].Native != "GO:0006955" {
		t.Fatalf("unexpected terms: %+v", terms)
	}
}

func TestRunQueryUsesCache(t *testing.T) {
	calls := 0
	srv := newEnrichmentServer(t, &calls)
	opts := queryFixture(t, srv.URL)

	if err := RunQuery(context.Background(), opts); err != nil {
		t.Fatalf("first RunQuery: %v", err)
	}
	if err := RunQuery(context.Background(), opts); err != nil {
		t.Fatalf("second RunQuery: %v", err)
	}
	if calls != 1 {
		t.Fatalf("second run should be served from cache, got %d API calls", calls)
	}

	// -no-cache forces a fresh call
	opts.NoCache = true
	if err := RunQuery(context.Background(), opts); err != nil {
		t.Fatalf("no-cache RunQuery: %v", err)
	}
	if calls != 2 {
		t.Fatalf("no-cache run should hit the API, got %d calls", calls)
	}
}

func TestRunQuerySkipsEmptySelection(t *testing.T) {
	calls := 0
	srv := newEnrichmentServer(t, &calls)
	opts := queryFixture(t, srv.URL)
	// Thresholds nothing passes
	opts.Selection = dex.Selection{LFCCutoff: 100, PValCutoff: 1e-30, TopN: 10}

	if err := RunQuery(context.Background(), opts); err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if calls != 0 {
		t.Fatalf("empty selection must not reach the API, got %d calls", calls)
	}
	if util.FileExists(filepath.Join(opts.OutDir, "GO_c1.csv")) {
		t.Fatal("skipped cluster must not produce an output file")
	}
}

func heatmapFixture(t *testing.T) HeatmapOptions {
	t.Helper()
	root := t.TempDir()

	termsDir := filepath.Join(root, "goterms")
	if err := util.EnsureDir(termsDir); err != nil {
		t.Fatalf("mkdir terms: %v", err)
	}

	c1 := []goterms.Term{
		{Source: "GO:BP", Native: "GO:0006955", Name: "immune response", PValue: 1e-6, Significant: true},
		{Source: "GO:BP", Native: "GO:0008283", Name: "cell population proliferation", PValue: 0.01, Significant: true},
	}
	c2 := []goterms.Term{
		{Source: "GO:CC", Native: "GO:0005886", Name: "plasma membrane", PValue: 0.02, Significant: true},
		{Source: "GO:BP", Native: "GO:0006955", Name: "immune response", PValue: 1e-3, Significant: true},
	}
	if err := goterms.WriteCSV(filepath.Join(termsDir, "GO_c1.csv"), c1); err != nil {
		t.Fatalf("write c1: %v", err)
	}
	if err := goterms.WriteCSV(filepath.Join(termsDir, "GO_c2.csv"), c2); err != nil {
		t.Fatalf("write c2: %v", err)
	}

	patterns := filepath.Join(root, "patterns.txt")
	if err := os.WriteFile(patterns, []byte("immune\nplasma\ncell\n"), 0o644); err != nil {
		t.Fatalf("write patterns: %v", err)
	}

	return HeatmapOptions{
		TermsDir:     termsDir,
		Clusters:     []string{"c1", "c2"},
		PatternsFile: patterns,
		OutDir:       filepath.Join(root, "out"),
	}
}

func TestRunHeatmap(t *testing.T) {
	opts := heatmapFixture(t)
	opts.WriteHTML = true

	if err := RunHeatmap(opts); err != nil {
		t.Fatalf("RunHeatmap: %v", err)
	}

	for _, name := range []string{"GO_2.png", "GO_2.xlsx", "GO_2.html"} {
		if !util.FileExists(filepath.Join(opts.OutDir, name)) {
			t.Errorf("missing output %s", name)
		}
	}
}

func TestRunHeatmapPatternSourcesExclusive(t *testing.T) {
	opts := heatmapFixture(t)
	opts.PatternsDir = opts.OutDir // both set

	if err := RunHeatmap(opts); err == nil {
		t.Fatal("want error when both pattern sources are set")
	}

	opts.PatternsFile = ""
	opts.PatternsDir = ""
	if err := RunHeatmap(opts); err == nil {
		t.Fatal("want error when no pattern source is set")
	}
}

func TestParseGroupsSpec(t *testing.T) {
	groups, err := ParseGroupsSpec("early:c1,c2; late:c3")
	if err != nil {
		t.Fatalf("ParseGroupsSpec: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("want 2 groups, got %d", len(groups))
	}
	if groups[0].Label != "early" || len(groups[0].Clusters) != 2 {
		t.Errorf("first group mismatch: %+v", groups[0])
	}
	if groups[1].Clusters[0] != "c3" {
		t.Errorf("second group mismatch: %+v", groups[1])
	}

	if _, err := ParseGroupsSpec("nolabel"); err == nil {
		t.Fatal("want error for group without label")
	}

	groups, err = ParseGroupsSpec("")
	if err != nil || groups != nil {
		t.Fatalf("empty spec should be nil, got %v / %v", groups, err)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" c1, c2 ,,c3 ")
	if len(got) != 3 || got[0] != "c1" || got[2] != "c3" {
		t.Fatalf("SplitList mismatch: %v", got)
	}
	if SplitList("  ") != nil {
		t.Fatal("blank input should give nil")
	}
}
