package equivalence

import (
	"log/slog"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// SweepResult is the longest run of consecutive percent thresholds that
// produce the same classes.
type SweepResult struct {
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Classes  []Class `json:"classes"`
	Distinct int     `json:"distinct"`
}

// Sweep computes the classes at every threshold from 0 to 100 percent and
// returns the widest interval over which they do not change. Ties go to
// the lowest interval. Distinct counts the different outcomes seen.
func Sweep(s *graph.Summary, logger *slog.Logger) SweepResult {
	var (
		best     SweepResult
		bestDur  = -1
		curStart int
		curKey   string
		curCls   []Class
	)
	seen := make(map[string]bool)

	closeRun := func(end int) {
		if dur := end - curStart; dur > bestDur {
			bestDur = dur
			best = SweepResult{Start: curStart, End: end, Classes: curCls}
		}
	}

	for t := 0; t <= 100; t++ {
		classes := GeneralNECs(s, float64(t)/100, logger)
		key := Key(classes)
		seen[key] = true
		switch {
		case t == 0:
			curStart, curKey, curCls = t, key, classes
		case key != curKey:
			closeRun(t - 1)
			curStart, curKey, curCls = t, key, classes
		}
	}
	closeRun(100)

	best.Distinct = len(seen)
	return best
}
