// Package minutiae loads fingerprint minutia templates from disk and
// prepares them for matching: parsing, optional type annotation, quality
// pruning, and edge-table construction.
package minutiae

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ridgeline-data/match.report/internal/bozorth3"
)

// maxFileMinutiae caps how many entries are read from a single file,
// regardless of the pruning limit applied afterwards.
const maxFileMinutiae = 1000

// Raw is one minutia as read from disk, quality included.
type Raw struct {
	X, Y, T, Q int
	Kind       bozorth3.Kind
}

// ParseXYT parses the whitespace-separated `x y t q` quadruples of an
// .xyt template file. Reading stops at maxFileMinutiae entries; a
// trailing partial quadruple is dropped.
func ParseXYT(data []byte) ([]Raw, error) {
	fields := strings.Fields(string(data))

	count := len(fields) / 4
	if count > maxFileMinutiae {
		count = maxFileMinutiae
	}

	minutiae := make([]Raw, 0, count)
	for i := 0; i < count; i++ {
		var values [4]int
		for f := 0; f < 4; f++ {
			value, err := strconv.Atoi(fields[i*4+f])
			if err != nil {
				return nil, fmt.Errorf("minutia %d: %w", i, err)
			}
			values[f] = value
		}
		minutiae = append(minutiae, Raw{X: values[0], Y: values[1], T: values[2], Q: values[3]})
	}

	return minutiae, nil
}

// kindHeaderLines is the fixed header of a .min annotation file.
const kindHeaderLines = 4

// kindColumn is the 0-indexed column where the three-letter minutia type
// starts on each annotation line.
const kindColumn = 33

// ApplyKinds annotates minutiae in place from the contents of a .min
// file: after the header, line n describes minutia n. Columns 33-35 carry
// the type; anything other than BIF or RIG leaves the minutia untyped, as
// do lines too short to carry one.
func ApplyKinds(minutiae []Raw, data []byte) {
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if i < kindHeaderLines {
			continue
		}
		index := i - kindHeaderLines
		if index >= len(minutiae) {
			break
		}
		if len(line) < kindColumn+3 {
			minutiae[index].Kind = bozorth3.KindUnknown
			continue
		}
		switch line[kindColumn : kindColumn+3] {
		case "BIF":
			minutiae[index].Kind = bozorth3.KindBifurcation
		case "RIG":
			minutiae[index].Kind = bozorth3.KindRidgeEnding
		default:
			minutiae[index].Kind = bozorth3.KindUnknown
		}
	}
}

// LoadFile reads an .xyt template, optionally annotates it from a .min
// file, and prunes it to maxMinutiae entries. A missing or unreadable
// kind file is ignored; the template simply stays untyped.
func LoadFile(xytPath, kindPath string, maxMinutiae int) ([]bozorth3.Minutia, error) {
	data, err := os.ReadFile(xytPath)
	if err != nil {
		return nil, fmt.Errorf("load minutiae: %w", err)
	}

	raw, err := ParseXYT(data)
	if err != nil {
		return nil, fmt.Errorf("load minutiae from %s: %w", xytPath, err)
	}

	if kindPath != "" {
		if kindData, err := os.ReadFile(kindPath); err == nil {
			ApplyKinds(raw, kindData)
		}
	}

	return Prune(raw, maxMinutiae), nil
}
