package main

import (
	"strings"
	"testing"

	"github.com/ridgeline-data/match.report/internal/bozorth3"
	"github.com/ridgeline-data/match.report/internal/fsutil"
	"github.com/ridgeline-data/match.report/internal/runner"
)

func baseConfig() Config {
	return Config{
		MatchMode:   "all",
		Threshold:   defaultThreshold,
		MaxMinutiae: defaultMaxMinutiae,
		Threads:     1,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	mode, errors := validate(baseConfig())
	if len(errors) != 0 {
		t.Fatalf("unexpected errors: %v", errors)
	}
	if mode != runner.MatchAll {
		t.Errorf("mode = %v, want MatchAll", mode)
	}
}

func TestValidateFlagConflicts(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"pair list with probe list", func(c *Config) { c.PairFile = "x"; c.ProbeList = "y" }, `"-M" and "-P"`},
		{"pair list with gallery list", func(c *Config) { c.PairFile = "x"; c.GalleryList = "y" }, `"-M" and "-G"`},
		{"pair list with probe", func(c *Config) { c.PairFile = "x"; c.Probe = "y" }, `"-M" and "-p"`},
		{"pair list with gallery", func(c *Config) { c.PairFile = "x"; c.Gallery = "y" }, `"-M" and "-g"`},
		{"probe list with probe", func(c *Config) { c.ProbeList = "x"; c.Probe = "y" }, `"-P" and "-p"`},
		{"gallery list with gallery", func(c *Config) { c.GalleryList = "x"; c.Gallery = "y" }, `"-G" and "-g"`},
		{"pair list with first-match", func(c *Config) { c.PairFile = "x"; c.MatchMode = "first-match" }, `"-M" is not compatible`},
		{"bad mode", func(c *Config) { c.MatchMode = "sometimes" }, "unsupported match mode"},
		{"negative minutiae", func(c *Config) { c.MaxMinutiae = -1 }, "invalid number of computable minutiae"},
		{"too many minutiae", func(c *Config) { c.MaxMinutiae = 201 }, "invalid number of computable minutiae"},
		{"zero threads", func(c *Config) { c.Threads = 0 }, "invalid number of threads"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			_, errors := validate(cfg)
			if len(errors) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range errors {
				if strings.Contains(e, tt.wantErr) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v do not mention %q", errors, tt.wantErr)
			}
		})
	}
}

func TestResolvePositionalPairs(t *testing.T) {
	cfg := baseConfig()
	cfg.Positional = []string{"p1.xyt", "g1.xyt", "p2.xyt", "g2.xyt"}

	b, err := resolve(cfg, runner.MatchAll, fsutil.NewMemoryFileSystem())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if b.compareMode != runner.CompareOneToOne {
		t.Errorf("compare mode = %v, want OneToOne", b.compareMode)
	}
	if len(b.probes) != 2 || b.probes[0] != "p1.xyt" || b.probes[1] != "p2.xyt" {
		t.Errorf("probes = %v", b.probes)
	}
	if len(b.galleries) != 2 || b.galleries[0] != "g1.xyt" || b.galleries[1] != "g2.xyt" {
		t.Errorf("galleries = %v", b.galleries)
	}
}

func TestResolveOddPositionalCount(t *testing.T) {
	cfg := baseConfig()
	cfg.Positional = []string{"p1.xyt", "g1.xyt", "p2.xyt"}

	if _, err := resolve(cfg, runner.MatchAll, fsutil.NewMemoryFileSystem()); err == nil {
		t.Error("expected an error for an odd positional count")
	}
}

func TestResolveMissingInput(t *testing.T) {
	if _, err := resolve(baseConfig(), runner.MatchAll, fsutil.NewMemoryFileSystem()); err == nil {
		t.Error("expected an error with no inputs at all")
	}
}

func TestResolveProbeAgainstGalleryDirectory(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("/gallery/b.xyt", []byte("x"))
	fsys.WriteFile("/gallery/a.xyt", []byte("x"))

	cfg := baseConfig()
	cfg.Probe = "probe.xyt"
	cfg.GalleryList = "/gallery"

	b, err := resolve(cfg, runner.MatchAll, fsys)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if b.compareMode != runner.CompareManyToMany {
		t.Errorf("compare mode = %v, want ManyToMany", b.compareMode)
	}
	if len(b.galleries) != 2 || b.galleries[0] != "/gallery/a.xyt" {
		t.Errorf("galleries = %v", b.galleries)
	}
}

func TestResolvePairList(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("/lists/pairs.txt", []byte("p1.xyt\ng1.xyt\n"))

	cfg := baseConfig()
	cfg.PairFile = "/lists/pairs.txt"

	b, err := resolve(cfg, runner.MatchAll, fsys)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.compareMode != runner.CompareOneToOne {
		t.Errorf("compare mode = %v, want OneToOne", b.compareMode)
	}
}

func TestResolveAppliesRanges(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("/lists/probes.txt", []byte("p1\np2\np3\np4\n"))
	fsys.WriteFile("/lists/galleries.txt", []byte("g1\ng2\n"))

	cfg := baseConfig()
	cfg.ProbeList = "/lists/probes.txt"
	cfg.GalleryList = "/lists/galleries.txt"
	cfg.ProbeRange = "2-3"

	b, err := resolve(cfg, runner.MatchAll, fsys)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(b.probes) != 2 || b.probes[0] != "p2" || b.probes[1] != "p3" {
		t.Errorf("probes = %v, want [p2 p3]", b.probes)
	}

	cfg.ProbeRange = "2-9"
	if _, err := resolve(cfg, runner.MatchAll, fsys); err == nil {
		t.Error("expected an out-of-bounds range error")
	}
}

func TestResolveFirstMatchUsesOneToMany(t *testing.T) {
	cfg := baseConfig()
	cfg.MatchMode = "first-match"
	cfg.Probe = "p.xyt"
	cfg.Gallery = "g.xyt"

	b, err := resolve(cfg, runner.MatchFirst, fsutil.NewMemoryFileSystem())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.compareMode != runner.CompareOneToMany {
		t.Errorf("compare mode = %v, want OneToMany", b.compareMode)
	}
}

func TestResolveAnsiFormat(t *testing.T) {
	cfg := baseConfig()
	cfg.UseAnsi = true
	cfg.Probe = "p.xyt"
	cfg.Gallery = "g.xyt"

	b, err := resolve(cfg, runner.MatchAll, fsutil.NewMemoryFileSystem())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.format != bozorth3.FormatAnsi {
		t.Errorf("format = %v, want ansi", b.format)
	}
}
