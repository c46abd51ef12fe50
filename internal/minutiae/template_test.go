package minutiae

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ridgeline-data/match.report/internal/bozorth3"
)

// writeGridTemplate writes a dense, valid .xyt template and returns its
// path.
func writeGridTemplate(t *testing.T, dir, name string, count int) string {
	t.Helper()
	var builder strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&builder, "%d %d %d %d\n", (i%5)*20, (i/5)*20, (i*7)%100-50, 50+i)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(builder.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPrepare(t *testing.T) {
	dir := t.TempDir()
	path := writeGridTemplate(t, dir, "a.xyt", 20)

	template, err := Prepare(path, 150, bozorth3.FormatNistInternal)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if len(template.Minutiae) != 20 {
		t.Errorf("minutiae count = %d, want 20", len(template.Minutiae))
	}
	if len(template.Edges) == 0 {
		t.Error("expected a non-empty edge table")
	}
}

func TestPrepareAppliesMinutiaLimit(t *testing.T) {
	dir := t.TempDir()
	path := writeGridTemplate(t, dir, "a.xyt", 20)

	template, err := Prepare(path, 12, bozorth3.FormatNistInternal)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(template.Minutiae) != 12 {
		t.Errorf("minutiae count = %d, want limit 12", len(template.Minutiae))
	}
}

func TestCacheReturnsSameTemplate(t *testing.T) {
	dir := t.TempDir()
	path := writeGridTemplate(t, dir, "a.xyt", 20)

	cache := NewCache(150, bozorth3.FormatNistInternal)
	first, err := cache.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := cache.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if first != second {
		t.Error("expected the cached template pointer on the second lookup")
	}
	if cache.Len() != 1 {
		t.Errorf("cache size = %d, want 1", cache.Len())
	}
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.xyt")

	cache := NewCache(150, bozorth3.FormatNistInternal)
	if _, err := cache.Get(path); err == nil {
		t.Fatal("expected an error for a missing file")
	}

	// The file appears later; the cache must retry rather than remember
	// the failure.
	writeGridTemplate(t, dir, "late.xyt", 20)
	if _, err := cache.Get(path); err != nil {
		t.Errorf("Get after creating the file: %v", err)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeGridTemplate(t, dir, "a.xyt", 20),
		writeGridTemplate(t, dir, "b.xyt", 18),
		writeGridTemplate(t, dir, "c.xyt", 16),
	}

	cache := NewCache(150, bozorth3.FormatNistInternal)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := cache.Get(paths[i%len(paths)]); err != nil {
					t.Errorf("Get: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if cache.Len() != len(paths) {
		t.Errorf("cache size = %d, want %d", cache.Len(), len(paths))
	}
}
