// Command score-report summarizes an archived match run: a textual score
// summary on stdout, an HTML histogram (go-echarts), and a PNG histogram
// (gonum/plot) written next to each other in the output directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ridgeline-data/match.report/internal/matchdb"
)

// Config holds configuration for the report generation.
type Config struct {
	DBPath    string
	RunID     string
	OutputDir string
	Buckets   int
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.DBPath, "db", "", "sqlite archive written by bz3 -db (required)")
	flag.StringVar(&cfg.RunID, "run", "", "run id to report on (default: latest run)")
	flag.StringVar(&cfg.OutputDir, "out", ".", "directory for the generated charts")
	flag.IntVar(&cfg.Buckets, "buckets", 20, "number of histogram buckets")
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()

	if cfg.DBPath == "" {
		log.Fatal("archive path is required (-db)")
	}

	db, err := matchdb.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("cannot open archive: %v", err)
	}
	defer db.Close()

	runID := cfg.RunID
	if runID == "" {
		run, err := db.LatestRun()
		if err != nil {
			log.Fatalf("cannot find a run to report on: %v", err)
		}
		runID = run.RunID
	}

	scores, err := db.Scores(runID)
	if err != nil {
		log.Fatalf("cannot load scores for run %s: %v", runID, err)
	}
	if len(scores) == 0 {
		log.Fatalf("run %s has no scores", runID)
	}

	// Load failures (-1) describe inputs, not match quality; keep them
	// out of the distribution but report the count.
	values := make([]float64, 0, len(scores))
	failures := 0
	for _, s := range scores {
		if s.Score < 0 {
			failures++
			continue
		}
		values = append(values, float64(s.Score))
	}
	if len(values) == 0 {
		log.Fatalf("run %s has only failed comparisons", runID)
	}
	sort.Float64s(values)

	printSummary(os.Stdout, runID, values, failures)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	htmlPath := filepath.Join(cfg.OutputDir, "score-histogram.html")
	if err := writeHTMLHistogram(htmlPath, runID, values, cfg.Buckets); err != nil {
		log.Fatalf("failed to write %s: %v", htmlPath, err)
	}
	log.Printf("wrote %s", htmlPath)

	pngPath := filepath.Join(cfg.OutputDir, "score-histogram.png")
	if err := writePNGHistogram(pngPath, runID, values, cfg.Buckets); err != nil {
		log.Fatalf("failed to write %s: %v", pngPath, err)
	}
	log.Printf("wrote %s", pngPath)
}

// printSummary writes the distribution statistics of one run. values
// must be sorted ascending.
func printSummary(w *os.File, runID string, values []float64, failures int) {
	mean := stat.Mean(values, nil)
	stddev := stat.StdDev(values, nil)

	fmt.Fprintf(w, "run:        %s\n", runID)
	fmt.Fprintf(w, "scores:     %d (plus %d failed loads)\n", len(values), failures)
	fmt.Fprintf(w, "mean:       %.2f\n", mean)
	fmt.Fprintf(w, "stddev:     %.2f\n", stddev)
	fmt.Fprintf(w, "min:        %.0f\n", values[0])
	fmt.Fprintf(w, "p50:        %.0f\n", stat.Quantile(0.5, stat.Empirical, values, nil))
	fmt.Fprintf(w, "p90:        %.0f\n", stat.Quantile(0.9, stat.Empirical, values, nil))
	fmt.Fprintf(w, "p99:        %.0f\n", stat.Quantile(0.99, stat.Empirical, values, nil))
	fmt.Fprintf(w, "max:        %.0f\n", values[len(values)-1])
}

// bucketize counts sorted values into evenly sized buckets over
// [min, max].
func bucketize(values []float64, buckets int) (labels []string, counts []int) {
	low := values[0]
	high := values[len(values)-1]
	width := (high - low) / float64(buckets)
	if width == 0 {
		width = 1
	}

	labels = make([]string, buckets)
	counts = make([]int, buckets)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.0f", low+float64(i)*width)
	}
	for _, v := range values {
		bucket := int((v - low) / width)
		if bucket >= buckets {
			bucket = buckets - 1
		}
		counts[bucket]++
	}
	return labels, counts
}

func writeHTMLHistogram(path, runID string, values []float64, buckets int) error {
	labels, counts := bucketize(values, buckets)

	data := make([]opts.BarData, len(counts))
	for i, count := range counts {
		data[i] = opts.BarData{Value: count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Match Scores", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Match Score Distribution", Subtitle: fmt.Sprintf("run=%s scores=%d", runID, len(values))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "score"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)
	bar.SetXAxis(labels).AddSeries("scores", data)

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return bar.Render(file)
}

func writePNGHistogram(path, runID string, values []float64, buckets int) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Match Score Distribution (%s)", runID)
	p.X.Label.Text = "Score"
	p.Y.Label.Text = "Count"

	hist, err := plotter.NewHist(plotter.Values(values), buckets)
	if err != nil {
		return err
	}
	p.Add(hist)

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
