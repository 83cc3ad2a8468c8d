package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// ErrPrerequisite is returned when an enabled stage needs a stage that is
// not enabled, or a resource the run does not have.
var ErrPrerequisite = errors.New("orchestrator: missing prerequisite")

// prerequisiteRule names a stage that must or should run first.
type prerequisiteRule struct {
	stage    Stage
	required bool // if false, the prerequisite is optional (warn on missing)
}

// prerequisites returns the prerequisite rules for the given stage.
func prerequisites(stage Stage, cfg Config) []prerequisiteRule {
	switch stage {
	case StageLoad:
		return nil
	case StageThreshold, StageEquivalence:
		return []prerequisiteRule{
			{stage: StageLoad, required: true},
		}
	case StageCluster:
		// Class ids come from the equivalence stage.
		return []prerequisiteRule{
			{stage: StageLoad, required: true},
			{stage: StageEquivalence, required: cfg.UseClasses},
		}
	case StageImplied:
		// Implication does not read threshold marks, but the resulting
		// insight filter is usually wanted together with them.
		return []prerequisiteRule{
			{stage: StageLoad, required: true},
			{stage: StageThreshold, required: false},
		}
	case StageReport:
		return []prerequisiteRule{
			{stage: StageLoad, required: true},
		}
	default:
		return nil
	}
}

// enabled reports whether cfg turns the stage on. Load and report always run.
func enabled(stage Stage, cfg Config) bool {
	switch stage {
	case StageThreshold:
		return cfg.MarkThreshold
	case StageEquivalence:
		return cfg.Equivalence
	case StageCluster:
		return cfg.Cluster
	case StageImplied:
		return cfg.Implied
	default:
		return true
	}
}

// Plan returns the stages cfg enables, in execution order. A missing
// required prerequisite is an error; a missing optional one is logged.
// hasTopology tells the planner whether the implication stage can run.
func Plan(cfg Config, hasTopology bool, logger *slog.Logger) ([]Stage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var plan []Stage
	for stage := StageLoad; stage <= StageReport; stage++ {
		if enabled(stage, cfg) {
			plan = append(plan, stage)
		}
	}

	for _, stage := range plan {
		for _, rule := range prerequisites(stage, cfg) {
			if slices.Contains(plan, rule.stage) {
				continue
			}
			if rule.required {
				return nil, fmt.Errorf("%w: stage %d (%s) needs stage %d (%s)",
					ErrPrerequisite, stage, stage, rule.stage, rule.stage)
			}
			logger.Warn("optional prerequisite stage disabled",
				"stage", stage.String(), "prerequisite", rule.stage.String())
		}
	}

	if cfg.Cluster && cfg.Clusterer == nil {
		return nil, fmt.Errorf("%w: stage %d (%s) needs a clusterer", ErrPrerequisite, StageCluster, StageCluster)
	}
	if cfg.Implied && !hasTopology {
		return nil, fmt.Errorf("%w: stage %d (%s) needs a topology", ErrPrerequisite, StageImplied, StageImplied)
	}
	return plan, nil
}
