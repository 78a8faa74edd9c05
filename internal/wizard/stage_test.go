package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prdforge/prdforge/internal/project"
)

func TestStepOfCoversEveryStage(t *testing.T) {
	cases := map[Stage]Step{
		StageInitial:             StepRequirement,
		StageGeneratingInitial:   StepRequirement,
		StageInitialPRD:          StepInitialPRD,
		StageGeneratingQuestions: StepInitialPRD,
		StageQuestioning:         StepQuestions,
		StageGeneratingRefined:   StepQuestions,
		StageRefinedPRD:          StepRefinedPRD,
		StageGeneratingPages:     StepRefinedPRD,
		StageEditingPages:        StepPages,
		StageGeneratingDetails:   StepPages,
		StagePagesComplete:       StepPages,
		StageGeneratingFinal:     StepPages,
		StageDone:                StepDone,
	}
	for stage, want := range cases {
		assert.Equal(t, want, StepOf(stage), string(stage))
	}
}

func TestIsGenerating(t *testing.T) {
	assert.True(t, StageGeneratingDetails.IsGenerating())
	assert.True(t, StageGeneratingFinal.IsGenerating())
	assert.False(t, StageQuestioning.IsGenerating())
	assert.False(t, StageDone.IsGenerating())
}

func TestStageForProject(t *testing.T) {
	t.Run("empty project starts over", func(t *testing.T) {
		assert.Equal(t, StageInitial, StageForProject(&project.Project{}))
	})

	t.Run("draft only", func(t *testing.T) {
		p := &project.Project{InitialPRD: "draft"}
		assert.Equal(t, StageInitialPRD, StageForProject(p))
	})

	t.Run("questions pending", func(t *testing.T) {
		p := &project.Project{
			InitialPRD: "draft",
			Questions:  []project.Question{{ID: "q1"}},
		}
		assert.Equal(t, StageQuestioning, StageForProject(p))
	})

	t.Run("refined", func(t *testing.T) {
		p := &project.Project{InitialPRD: "draft", RefinedPRD: "refined"}
		assert.Equal(t, StageRefinedPRD, StageForProject(p))
	})

	t.Run("pages without details", func(t *testing.T) {
		p := &project.Project{
			RefinedPRD: "refined",
			Pages:      []project.Page{{ID: "p1", Name: "Home"}},
		}
		assert.Equal(t, StageEditingPages, StageForProject(p))
	})

	t.Run("pages detailed", func(t *testing.T) {
		p := &project.Project{
			RefinedPRD: "refined",
			Pages: []project.Page{
				{ID: "p1", Name: "Home", Layout: "single column"},
				{ID: "p2", Name: "Gone", Deleted: true},
			},
		}
		assert.Equal(t, StagePagesComplete, StageForProject(p))
	})

	t.Run("final document", func(t *testing.T) {
		p := &project.Project{FinalPRD: "done"}
		assert.Equal(t, StageDone, StageForProject(p))
	})
}
