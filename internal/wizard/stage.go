package wizard

import (
	"fmt"

	"github.com/prdforge/prdforge/internal/project"
)

// Stage is one discrete state of the generation wizard. Generating stages
// are transient: each is entered by firing exactly one gateway request and
// left when that request resolves.
type Stage string

const (
	StageInitial             Stage = "initial"
	StageGeneratingInitial   Stage = "generating-initial-prd"
	StageInitialPRD          Stage = "initial-prd"
	StageGeneratingQuestions Stage = "generating-questions"
	StageQuestioning         Stage = "questioning"
	StageGeneratingRefined   Stage = "generating-refined-prd"
	StageRefinedPRD          Stage = "refined-prd"
	StageGeneratingPages     Stage = "generating-pages-list"
	StageEditingPages        Stage = "editing-pages-list"
	StageGeneratingDetails   Stage = "generating-details"
	StagePagesComplete       Stage = "pages-complete"
	StageGeneratingFinal     Stage = "generating-final-prd"
	StageDone                Stage = "done"
)

// Step is the coarse wizard position shown to the user. Several stages share
// a step; navigation happens at step granularity.
type Step int

const (
	StepRequirement Step = iota
	StepInitialPRD
	StepQuestions
	StepRefinedPRD
	StepPages
	StepDone
)

// StepOf maps a stage to its wizard step.
func StepOf(stage Stage) Step {
	switch stage {
	case StageInitial, StageGeneratingInitial:
		return StepRequirement
	case StageInitialPRD, StageGeneratingQuestions:
		return StepInitialPRD
	case StageQuestioning, StageGeneratingRefined:
		return StepQuestions
	case StageRefinedPRD, StageGeneratingPages:
		return StepRefinedPRD
	case StageEditingPages, StageGeneratingDetails, StagePagesComplete, StageGeneratingFinal:
		return StepPages
	case StageDone:
		return StepDone
	default:
		return StepRequirement
	}
}

// stableStageFor returns the stable stage a backward navigation to the given
// step lands on.
func stableStageFor(step Step) Stage {
	switch step {
	case StepRequirement:
		return StageInitial
	case StepInitialPRD:
		return StageInitialPRD
	case StepQuestions:
		return StageQuestioning
	case StepRefinedPRD:
		return StageRefinedPRD
	case StepPages:
		return StageEditingPages
	default:
		return StageDone
	}
}

// IsGenerating reports whether the stage is a transient request-in-flight
// state.
func (s Stage) IsGenerating() bool {
	switch s {
	case StageGeneratingInitial, StageGeneratingQuestions, StageGeneratingRefined,
		StageGeneratingPages, StageGeneratingDetails, StageGeneratingFinal:
		return true
	}
	return false
}

// ErrForwardNavigation is returned when a navigation target is past the
// furthest step reached.
var ErrForwardNavigation = fmt.Errorf("cannot navigate past the furthest step reached")

// StageForProject reconstructs the wizard stage for a loaded project from
// which document fields are populated.
func StageForProject(p *project.Project) Stage {
	switch {
	case p.FinalPRD != "":
		return StageDone
	case len(p.Pages) > 0 && pagesDetailed(p.Pages):
		return StagePagesComplete
	case len(p.Pages) > 0:
		return StageEditingPages
	case p.RefinedPRD != "":
		return StageRefinedPRD
	case len(p.Questions) > 0:
		return StageQuestioning
	case p.InitialPRD != "":
		return StageInitialPRD
	default:
		return StageInitial
	}
}

func pagesDetailed(pages []project.Page) bool {
	for _, page := range pages {
		if page.Deleted {
			continue
		}
		if len(page.Features) == 0 && page.Layout == "" {
			return false
		}
	}
	return true
}
