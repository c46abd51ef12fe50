package runner

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ridgeline-data/match.report/internal/bozorth3"
	"github.com/ridgeline-data/match.report/internal/minutiae"
)

// MatchMode selects which comparisons are reported.
type MatchMode int

const (
	// MatchAll reports every comparison.
	MatchAll MatchMode = iota
	// MatchFirst reports the first gallery at or above the threshold for
	// each probe, then stops that probe.
	MatchFirst
	// MatchAllMatches reports every gallery at or above the threshold.
	MatchAllMatches
)

// CompareMode selects how the probe and gallery lists combine.
type CompareMode int

const (
	// CompareOneToOne zips the two lists.
	CompareOneToOne CompareMode = iota
	// CompareManyToMany walks the full Cartesian product.
	CompareManyToMany
	// CompareOneToMany sweeps all galleries per probe; used by the
	// threshold-driven match modes.
	CompareOneToMany
)

// ScoreFunc decides whether a computed score is reported. ok is false
// when either template failed to load.
type ScoreFunc func(score int, ok bool) bool

// MatchFunc receives each reported comparison. ok mirrors ScoreFunc.
type MatchFunc func(probe, gallery string, score int, ok bool)

// DefaultChunkSize is how many comparisons are submitted to the worker
// pool before draining.
const DefaultChunkSize = 1000

// Options configures one batch execution.
type Options struct {
	MatchMode   MatchMode
	Probes      []string
	Galleries   []string
	Score       ScoreFunc
	Match       MatchFunc
	MaxMinutiae int
	Format      bozorth3.Format
	Threads     int
	ChunkSize   int
}

// Execute runs the batch. With Threads <= 1 every comparison runs on the
// calling goroutine; otherwise comparisons are fanned out in chunks over
// a worker pool, with results delivered in submission order after each
// chunk drains.
func Execute(compareMode CompareMode, opts Options) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Threads > 1 {
		executeParallel(compareMode, opts)
	} else {
		executeSequential(compareMode, opts)
	}
}

func executeSequential(compareMode CompareMode, opts Options) {
	cache := minutiae.NewCache(opts.MaxMinutiae, opts.Format)
	matcher := bozorth3.NewMatcher()

	execute := func(probe, gallery string) (int, bool) {
		galleryTemplate, galleryErr := cache.Get(gallery)
		probeTemplate, probeErr := cache.Get(probe)
		if galleryErr != nil || probeErr != nil {
			return 0, false
		}
		score := matcher.Match(
			probeTemplate.Minutiae, probeTemplate.Edges,
			galleryTemplate.Minutiae, galleryTemplate.Edges,
			opts.Format,
		)
		return score, true
	}

	switch compareMode {
	case CompareOneToOne:
		n := len(opts.Probes)
		if len(opts.Galleries) < n {
			n = len(opts.Galleries)
		}
		for i := 0; i < n; i++ {
			score, ok := execute(opts.Probes[i], opts.Galleries[i])
			if opts.Score(score, ok) {
				opts.Match(opts.Probes[i], opts.Galleries[i], score, ok)
				if opts.MatchMode == MatchFirst {
					return
				}
			}
		}

	case CompareManyToMany:
		for _, probe := range opts.Probes {
			for _, gallery := range opts.Galleries {
				score, ok := execute(probe, gallery)
				if opts.Score(score, ok) {
					opts.Match(probe, gallery, score, ok)
					if opts.MatchMode == MatchFirst {
						return
					}
				}
			}
		}

	case CompareOneToMany:
		for _, probe := range opts.Probes {
			found := false
			for _, gallery := range opts.Galleries {
				score, ok := execute(probe, gallery)
				if opts.Score(score, ok) {
					found = true
					opts.Match(probe, gallery, score, ok)
					if opts.MatchMode == MatchFirst {
						break
					}
				}
			}
			if !found && opts.MatchMode != MatchAll {
				opts.Match(probe, "-", 0, false)
			}
		}
	}
}

// task is one comparison in flight through the worker pool. The template
// pointers are read-only shares of the cache; score and ok are written by
// exactly one worker and read only after the chunk drains.
type task struct {
	probeIndex   int
	galleryIndex int
	probe        *minutiae.Template
	gallery      *minutiae.Template
	loaded       bool
	score        int
	ok           bool
}

// pool fans tasks out to a fixed set of workers, each owning its own
// matcher scratch.
type pool struct {
	work   chan *task
	wg     sync.WaitGroup
	format bozorth3.Format
}

func newPool(threads int, format bozorth3.Format) *pool {
	p := &pool{
		work:   make(chan *task),
		format: format,
	}
	for w := 0; w < threads; w++ {
		go func() {
			matcher := bozorth3.NewMatcher()
			for t := range p.work {
				if t.loaded {
					t.score = matcher.Match(
						t.probe.Minutiae, t.probe.Edges,
						t.gallery.Minutiae, t.gallery.Edges,
						p.format,
					)
					t.ok = true
				}
				p.wg.Done()
			}
		}()
	}
	return p
}

func (p *pool) submit(t *task) {
	p.wg.Add(1)
	p.work <- t
}

// wait blocks until every submitted task has finished.
func (p *pool) wait() {
	p.wg.Wait()
}

func (p *pool) close() {
	close(p.work)
}

func executeParallel(compareMode CompareMode, opts Options) {
	cache := minutiae.NewCache(opts.MaxMinutiae, opts.Format)
	workers := newPool(opts.Threads, opts.Format)
	defer workers.close()

	switch compareMode {
	case CompareOneToOne, CompareManyToMany:
		executeParallelProduct(compareMode, opts, cache, workers)
	case CompareOneToMany:
		executeParallelOneToMany(opts, cache, workers)
	}
}

// executeParallelProduct covers the zipped and Cartesian modes: both
// submit a flat stream of (probe, gallery) comparisons in chunks.
func executeParallelProduct(compareMode CompareMode, opts Options, cache *minutiae.Cache, workers *pool) {
	tasks := make([]*task, 0, opts.ChunkSize)

	newTask := func(probeIndex, galleryIndex int) *task {
		t := &task{probeIndex: probeIndex, galleryIndex: galleryIndex}
		gallery, galleryErr := cache.Get(opts.Galleries[galleryIndex])
		probe, probeErr := cache.Get(opts.Probes[probeIndex])
		if galleryErr == nil && probeErr == nil {
			t.probe = probe
			t.gallery = gallery
			t.loaded = true
		}
		return t
	}

	// drain waits out the in-flight chunk and reports its results in
	// submission order. Returns true when the batch should stop.
	drain := func() bool {
		workers.wait()
		for _, t := range tasks {
			if opts.Score(t.score, t.ok) {
				opts.Match(opts.Probes[t.probeIndex], opts.Galleries[t.galleryIndex], t.score, t.ok)
				if opts.MatchMode == MatchFirst {
					return true
				}
			}
		}
		tasks = tasks[:0]
		return false
	}

	if compareMode == CompareOneToOne {
		n := len(opts.Probes)
		if len(opts.Galleries) < n {
			n = len(opts.Galleries)
		}
		for i := 0; i < n; i++ {
			t := newTask(i, i)
			tasks = append(tasks, t)
			workers.submit(t)
			if len(tasks) == opts.ChunkSize && drain() {
				return
			}
		}
		drain()
		return
	}

	for probeIndex := range opts.Probes {
		for galleryIndex := range opts.Galleries {
			t := newTask(probeIndex, galleryIndex)
			tasks = append(tasks, t)
			workers.submit(t)
			if len(tasks) == opts.ChunkSize && drain() {
				return
			}
		}
	}
	drain()
}

func executeParallelOneToMany(opts Options, cache *minutiae.Cache, workers *pool) {
	type foundMatch struct {
		gallery string
		score   int
	}

	tasks := make([]*task, 0, opts.ChunkSize)

	for _, probe := range opts.Probes {
		probeTemplate, err := cache.Get(probe)
		if err != nil {
			log.Printf("error occurred when loading %s: %v", probe, err)
			continue
		}

		var found []foundMatch
		doneForProbe := false

		for start := 0; start < len(opts.Galleries) && !doneForProbe; start += opts.ChunkSize {
			end := start + opts.ChunkSize
			if end > len(opts.Galleries) {
				end = len(opts.Galleries)
			}

			tasks = tasks[:0]
			for galleryIndex := start; galleryIndex < end; galleryIndex++ {
				galleryTemplate, err := cache.Get(opts.Galleries[galleryIndex])
				if err != nil {
					log.Printf("error occurred when loading %s: %v", opts.Galleries[galleryIndex], err)
					continue
				}
				t := &task{
					galleryIndex: galleryIndex,
					probe:        probeTemplate,
					gallery:      galleryTemplate,
					loaded:       true,
				}
				tasks = append(tasks, t)
				workers.submit(t)
			}

			workers.wait()
			for _, t := range tasks {
				if opts.Score(t.score, t.ok) {
					found = append(found, foundMatch{gallery: opts.Galleries[t.galleryIndex], score: t.score})
					if opts.MatchMode == MatchFirst {
						// Stop submitting further chunks; in-flight work
						// for this probe has already drained.
						doneForProbe = true
						break
					}
				}
			}
		}

		switch {
		case len(found) == 0:
			opts.Match(probe, "-", 0, false)
		case opts.MatchMode == MatchFirst:
			opts.Match(probe, found[0].gallery, found[0].score, true)
		default:
			for _, f := range found {
				opts.Match(probe, f.gallery, f.score, true)
			}
		}
	}
}

// DryRun prints the comparisons a batch would perform, without loading
// any templates.
func DryRun(w io.Writer, compareMode CompareMode, probes, galleries []string) {
	if compareMode == CompareOneToOne {
		n := len(probes)
		if len(galleries) < n {
			n = len(galleries)
		}
		for i := 0; i < n; i++ {
			fmt.Fprintf(w, "%s %s\n", probes[i], galleries[i])
		}
		return
	}

	for _, probe := range probes {
		for _, gallery := range galleries {
			fmt.Fprintf(w, "%s %s\n", probe, gallery)
		}
	}
}
