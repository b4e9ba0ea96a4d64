package broker

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// filenameDate matches the date Fidelity embeds in positions filenames,
// e.g. Portfolio_Positions_Jan-15-2026.csv.
var filenameDate = regexp.MustCompile(`([A-Z][a-z]{2})-(\d{2})-(\d{4})`)

// FindLatest searches the given roots for files matching any pattern and
// returns the newest one. A date embedded in the filename wins over the
// file's modification time when both are available.
func FindLatest(roots []string, patterns []string) (string, error) {
	type candidate struct {
		path string
		when time.Time
	}

	var candidates []candidate
	for _, root := range roots {
		for _, pattern := range patterns {
			matches, err := filepath.Glob(filepath.Join(root, pattern))
			if err != nil {
				return "", fmt.Errorf("bad file pattern %q: %w", pattern, err)
			}
			for _, path := range matches {
				candidates = append(candidates, candidate{path: path, when: fileTime(path)})
			}
		}
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("no files matching %v under %v", patterns, roots)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.when.After(best.when) {
			best = c
		}
	}
	return best.path, nil
}

// fileTime returns the filename-embedded date if present, else the mtime.
func fileTime(path string) time.Time {
	if m := filenameDate.FindString(filepath.Base(path)); m != "" {
		if t, err := time.Parse("Jan-02-2006", m); err == nil {
			return t
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// ExportDate extracts the embedded export date from a filename, or "" when
// the name carries none.
func ExportDate(path string) string {
	if m := filenameDate.FindString(filepath.Base(path)); m != "" {
		if t, err := time.Parse("Jan-02-2006", m); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
