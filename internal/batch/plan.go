package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Job is one input container and the path its image is written to.
type Job struct {
	Input  string
	Output string
}

// Plan matches pattern inside inputDir and maps every regular file to
// outputDir/<base name without extension><ext>. Matches are sorted. No
// matches is not an error.
func Plan(inputDir, pattern, outputDir, ext string) ([]Job, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	matches, err := filepath.Glob(filepath.Join(inputDir, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	jobs := make([]Job, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			return nil, err
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		jobs = append(jobs, Job{Input: m, Output: OutputPath(m, outputDir, ext)})
	}
	return jobs, nil
}

// OutputPath swaps input's directory for outputDir and its extension for ext.
func OutputPath(input, outputDir, ext string) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, name+ext)
}
