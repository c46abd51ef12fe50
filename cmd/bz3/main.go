// Command bz3 computes Bozorth3 match scores between fingerprint minutia
// templates (.xyt files). It supports one-to-one pair lists, full
// probe-by-gallery sweeps, and threshold-driven first-match /
// all-matches modes, with optional parallel execution and an optional
// sqlite archive of the results.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/ridgeline-data/match.report/internal/bozorth3"
	"github.com/ridgeline-data/match.report/internal/fsutil"
	"github.com/ridgeline-data/match.report/internal/matchdb"
	"github.com/ridgeline-data/match.report/internal/runner"
	"github.com/ridgeline-data/match.report/internal/version"
)

const (
	minMinutiaLimit    = 0
	maxMinutiaLimit    = bozorth3.MaxBozorthMinutiae
	defaultThreshold   = 40
	defaultMaxMinutiae = 150
)

// Config holds the parsed command line.
type Config struct {
	PairFile     string
	Probe        string
	ProbeList    string
	Gallery      string
	GalleryList  string
	ProbeRange   string
	GalleryRange string
	MatchMode    string
	Threshold    int
	UseAnsi      bool
	MaxMinutiae  int
	Threads      int
	DryRun       bool
	OutputFile   string
	OnlyScores   bool
	ShowVersion  bool
	ArchivePath  string

	Positional []string
}

func parseFlags() Config {
	var cfg Config

	flag.StringVar(&cfg.PairFile, "M", "", "file containing list of pairs to compare, one file in each line")
	flag.StringVar(&cfg.Probe, "p", "", "single probe file")
	flag.StringVar(&cfg.ProbeList, "P", "", "file containing list of probe files, or directory")
	flag.StringVar(&cfg.Gallery, "g", "", "single gallery file")
	flag.StringVar(&cfg.GalleryList, "G", "", "file containing list of gallery files, or directory")
	flag.StringVar(&cfg.ProbeRange, "probe-range", "", "subset of files in the probe list to process (1-based, inclusive, e.g. 1-100)")
	flag.StringVar(&cfg.GalleryRange, "gallery-range", "", "subset of files in the gallery list to process (1-based, inclusive)")
	flag.StringVar(&cfg.MatchMode, "m", "all", "matching mode; supported modes: all, first-match, all-matches")
	flag.IntVar(&cfg.Threshold, "t", defaultThreshold, "match score threshold")
	flag.BoolVar(&cfg.UseAnsi, "a", false, "all .xyt files use representation according to ANSI INCITS 378-2004")
	flag.IntVar(&cfg.MaxMinutiae, "n", defaultMaxMinutiae, "maximum number of minutiae to use from any file; allowed range 0-200")
	flag.IntVar(&cfg.Threads, "T", runtime.NumCPU(), "number of threads to use")
	flag.BoolVar(&cfg.DryRun, "d", false, "only print the filenames between which match scores would be computed")
	flag.StringVar(&cfg.OutputFile, "o", "", "output file (default stdout)")
	flag.BoolVar(&cfg.OnlyScores, "s", false, "print only scores without filenames (applicable only for -m all)")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")

	flag.StringVar(&cfg.ArchivePath, "db", "", "sqlite file to archive the reported scores into")

	flag.Parse()
	cfg.Positional = flag.Args()

	return cfg
}

// batch is the fully resolved work: what to compare and how.
type batch struct {
	probes      []string
	galleries   []string
	compareMode runner.CompareMode
	matchMode   runner.MatchMode
	format      bozorth3.Format
}

func validate(cfg Config) (runner.MatchMode, []string) {
	var errors []string

	if cfg.MaxMinutiae < minMinutiaLimit || cfg.MaxMinutiae > maxMinutiaLimit {
		errors = append(errors, "invalid number of computable minutiae")
	}

	if cfg.Threads < 1 {
		errors = append(errors, "invalid number of threads")
	}

	var matchMode runner.MatchMode
	switch cfg.MatchMode {
	case "all":
		matchMode = runner.MatchAll
	case "first-match":
		matchMode = runner.MatchFirst
	case "all-matches":
		matchMode = runner.MatchAllMatches
	default:
		errors = append(errors, fmt.Sprintf("unsupported match mode %q", cfg.MatchMode))
	}

	usePairList := cfg.PairFile != ""
	useProbe := cfg.Probe != ""
	useProbeList := cfg.ProbeList != ""
	useGallery := cfg.Gallery != ""
	useGalleryList := cfg.GalleryList != ""

	if usePairList && useProbeList {
		errors = append(errors, `flags "-M" and "-P" are not compatible`)
	}
	if usePairList && useGalleryList {
		errors = append(errors, `flags "-M" and "-G" are not compatible`)
	}
	if usePairList && useProbe {
		errors = append(errors, `flags "-M" and "-p" are incompatible`)
	}
	if usePairList && useGallery {
		errors = append(errors, `flags "-M" and "-g" are incompatible`)
	}
	if useProbeList && useProbe {
		errors = append(errors, `flags "-P" and "-p" are incompatible`)
	}
	if useGalleryList && useGallery {
		errors = append(errors, `flags "-G" and "-g" are incompatible`)
	}
	if usePairList && matchMode != runner.MatchAll {
		errors = append(errors, `flag "-M" is not compatible with modes other than "all"`)
	}

	return matchMode, errors
}

// resolve turns the flag combination into concrete probe and gallery
// lists plus the compare mode. It mirrors the reference tool's decision
// tree: a pair list forces one-to-one, plain positionals pair up
// odd/even, and everything else combines a probe side with a gallery
// side.
func resolve(cfg Config, matchMode runner.MatchMode, fsys fsutil.FileSystem) (batch, error) {
	b := batch{matchMode: matchMode, format: bozorth3.FormatNistInternal}
	if cfg.UseAnsi {
		b.format = bozorth3.FormatAnsi
	}

	b.compareMode = runner.CompareManyToMany
	if matchMode != runner.MatchAll {
		b.compareMode = runner.CompareOneToMany
	}

	usePairList := cfg.PairFile != ""
	useProbe := cfg.Probe != ""
	useProbeList := cfg.ProbeList != ""
	useGallery := cfg.Gallery != ""
	useGalleryList := cfg.GalleryList != ""
	usePositional := len(cfg.Positional) > 0

	var err error
	switch {
	case usePairList:
		b.compareMode = runner.CompareOneToOne
		b.probes, b.galleries, err = runner.ItemsFromPairFile(fsys, cfg.PairFile)
		if err != nil {
			return b, err
		}

	case useProbe && useGallery:
		b.probes = []string{cfg.Probe}
		b.galleries = []string{cfg.Gallery}

	case useProbe:
		b.probes = []string{cfg.Probe}
		switch {
		case useGalleryList:
			if b.galleries, err = runner.ItemsFromFileOrDirectory(fsys, cfg.GalleryList); err != nil {
				return b, err
			}
		case usePositional:
			b.galleries = cfg.Positional
		default:
			return b, fmt.Errorf("missing gallery files")
		}

	case useGallery:
		b.galleries = []string{cfg.Gallery}
		switch {
		case useProbeList:
			if b.probes, err = runner.ItemsFromFileOrDirectory(fsys, cfg.ProbeList); err != nil {
				return b, err
			}
		case usePositional:
			b.probes = cfg.Positional
		default:
			return b, fmt.Errorf("missing probe files")
		}

	case useProbeList && useGalleryList:
		if b.probes, err = runner.ItemsFromFileOrDirectory(fsys, cfg.ProbeList); err != nil {
			return b, err
		}
		if b.galleries, err = runner.ItemsFromFileOrDirectory(fsys, cfg.GalleryList); err != nil {
			return b, err
		}

	case useProbeList && usePositional:
		if b.probes, err = runner.ItemsFromFileOrDirectory(fsys, cfg.ProbeList); err != nil {
			return b, err
		}
		b.galleries = cfg.Positional

	case useGalleryList && usePositional:
		b.probes = cfg.Positional
		if b.galleries, err = runner.ItemsFromFileOrDirectory(fsys, cfg.GalleryList); err != nil {
			return b, err
		}

	case usePositional:
		if len(cfg.Positional)%2 == 1 {
			return b, fmt.Errorf("number of files to compare is odd")
		}
		b.compareMode = runner.CompareOneToOne
		for i := 0; i < len(cfg.Positional); i += 2 {
			b.probes = append(b.probes, cfg.Positional[i])
			b.galleries = append(b.galleries, cfg.Positional[i+1])
		}

	default:
		return b, fmt.Errorf("missing input data")
	}

	if cfg.ProbeRange != "" {
		r, err := runner.ParseRange(cfg.ProbeRange)
		if err != nil {
			return b, fmt.Errorf("invalid probe range format")
		}
		selected, ok := r.Slice(b.probes)
		if !ok {
			return b, fmt.Errorf("range for probes out of bounds")
		}
		b.probes = selected
	}

	if cfg.GalleryRange != "" {
		r, err := runner.ParseRange(cfg.GalleryRange)
		if err != nil {
			return b, fmt.Errorf("invalid gallery range format")
		}
		selected, ok := r.Slice(b.galleries)
		if !ok {
			return b, fmt.Errorf("range for galleries out of bounds")
		}
		b.galleries = selected
	}

	return b, nil
}

func run(cfg Config, b batch, output io.Writer) error {
	scoreCallback := func(score int, ok bool) bool {
		if b.matchMode == runner.MatchAll {
			return true
		}
		return ok && score >= cfg.Threshold
	}

	var archive *matchdb.DB
	var runID string
	if cfg.ArchivePath != "" {
		var err error
		archive, err = matchdb.Open(cfg.ArchivePath)
		if err != nil {
			return fmt.Errorf("cannot open archive %s: %w", cfg.ArchivePath, err)
		}
		defer archive.Close()

		runID, err = archive.CreateRun(
			b.format.String(), cfg.MatchMode,
			cfg.Threshold, cfg.MaxMinutiae,
			len(b.probes), len(b.galleries),
		)
		if err != nil {
			return err
		}
	}

	matchCallback := func(probe, gallery string, score int, ok bool) {
		reported := score
		if !ok {
			reported = -1
		}
		if b.matchMode == runner.MatchAll && cfg.OnlyScores {
			fmt.Fprintf(output, "%d\n", reported)
		} else {
			fmt.Fprintf(output, "%s %s %d\n", probe, gallery, reported)
		}
		if archive != nil {
			if err := archive.RecordScore(runID, probe, gallery, reported); err != nil {
				log.Printf("failed to archive score: %v", err)
			}
		}
	}

	runner.Execute(b.compareMode, runner.Options{
		MatchMode:   b.matchMode,
		Probes:      b.probes,
		Galleries:   b.galleries,
		Score:       scoreCallback,
		Match:       matchCallback,
		MaxMinutiae: cfg.MaxMinutiae,
		Format:      b.format,
		Threads:     cfg.Threads,
	})

	return nil
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Println(version.String())
		return
	}

	matchMode, errors := validate(cfg)
	if len(errors) > 0 {
		fmt.Fprintln(os.Stderr, "Parsing errors:")
		for _, e := range errors {
			fmt.Fprintf(os.Stderr, " - %s\n", e)
		}
		os.Exit(1)
	}

	b, err := resolve(cfg, matchMode, fsutil.OSFileSystem{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		runner.DryRun(os.Stdout, b.compareMode, b.probes, b.galleries)
		return
	}

	output := io.Writer(os.Stdout)
	if cfg.OutputFile != "" && cfg.OutputFile != "-" {
		file, err := os.Create(cfg.OutputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: cannot open file %q\n", cfg.OutputFile)
			os.Exit(1)
		}
		defer file.Close()
		output = file
	}

	if err := run(cfg, b, output); err != nil {
		log.Fatalf("match run failed: %v", err)
	}
}
