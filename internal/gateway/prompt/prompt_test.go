package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	valid := []string{
		"analyze",
		"generateInitialPRD",
		"generateRefinedPRD",
		"generatePagesList",
		"generatePageDetails",
		"generatePRD",
		"generateProjectName",
		"refinePRDChat",
	}
	for _, s := range valid {
		mode, err := ParseMode(s)
		require.NoError(t, err, s)
		assert.Equal(t, Mode(s), mode)
	}

	_, err := ParseMode("summarize")
	assert.Error(t, err)

	_, err = ParseMode("")
	assert.Error(t, err)
}

func TestSystemInstructionResolvesEveryMode(t *testing.T) {
	modes := []Mode{
		ModeAnalyze, ModeGenerateInitialPRD, ModeGenerateRefinedPRD,
		ModeGeneratePagesList, ModeGeneratePageDetails, ModeGenerateFinalPRD,
		ModeGenerateProjectName, ModeRefineChat,
	}
	for _, mode := range modes {
		instruction, err := SystemInstruction(mode, nil, PRDModeNormal)
		require.NoError(t, err, mode)
		assert.NotEmpty(t, instruction, mode)
	}
}

func TestSystemInstructionUnknownModeErrors(t *testing.T) {
	_, err := SystemInstruction(Mode("doEverything"), nil, PRDModeNormal)
	assert.Error(t, err)
}

func TestSystemInstructionTechStackConstraint(t *testing.T) {
	stack := &TechStack{
		Stack:        []string{"Next.js", "Firebase Admin SDK"},
		ExcludedTech: []string{"Firebase Client SDK"},
		Locked:       true,
	}

	instruction, err := SystemInstruction(ModeGenerateFinalPRD, stack, PRDModeNormal)
	require.NoError(t, err)
	assert.Contains(t, instruction, "Next.js")
	assert.Contains(t, instruction, "Firebase Client SDK")
	assert.Contains(t, instruction, "Tech Stack Constraint")

	// An unlocked stack is advisory only and adds no constraint block.
	stack.Locked = false
	instruction, err = SystemInstruction(ModeGenerateFinalPRD, stack, PRDModeNormal)
	require.NoError(t, err)
	assert.NotContains(t, instruction, "Tech Stack Constraint")
}

func TestSystemInstructionMVPConstraint(t *testing.T) {
	instruction, err := SystemInstruction(ModeGenerateInitialPRD, nil, PRDModeMVP)
	require.NoError(t, err)
	assert.Contains(t, instruction, "minimum viable product")

	instruction, err = SystemInstruction(ModeGenerateInitialPRD, nil, PRDModeNormal)
	require.NoError(t, err)
	assert.NotContains(t, instruction, "minimum viable product")
}
