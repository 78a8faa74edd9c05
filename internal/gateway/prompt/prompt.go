// Package prompt maps generation pipeline modes to the instruction templates
// sent to the model provider.
package prompt

import (
	"fmt"
	"strings"
)

// Mode selects the instruction template governing a generation call.
// The set is closed: an unknown mode is a caller bug and fails loudly.
type Mode string

const (
	ModeAnalyze             Mode = "analyze"
	ModeGenerateInitialPRD  Mode = "generateInitialPRD"
	ModeGenerateRefinedPRD  Mode = "generateRefinedPRD"
	ModeGeneratePagesList   Mode = "generatePagesList"
	ModeGeneratePageDetails Mode = "generatePageDetails"
	ModeGenerateFinalPRD    Mode = "generatePRD"
	ModeGenerateProjectName Mode = "generateProjectName"
	ModeRefineChat          Mode = "refinePRDChat"
)

// ParseMode validates a wire-format mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAnalyze, ModeGenerateInitialPRD, ModeGenerateRefinedPRD,
		ModeGeneratePagesList, ModeGeneratePageDetails, ModeGenerateFinalPRD,
		ModeGenerateProjectName, ModeRefineChat:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown generation mode: %q", s)
	}
}

// PRDMode alters generation verbosity and scope.
type PRDMode string

const (
	PRDModeNormal PRDMode = "normal"
	PRDModeMVP    PRDMode = "mvp"
)

// TechStack constrains the technologies a generated document may assume.
type TechStack struct {
	Name         string   `json:"name,omitempty"`
	Stack        []string `json:"stack"`
	ExcludedTech []string `json:"excludedTech,omitempty"`
	Locked       bool     `json:"locked"`
}

// SystemInstruction resolves a mode to its full system instruction,
// augmented with constraint blocks when applicable.
func SystemInstruction(mode Mode, stack *TechStack, prdMode PRDMode) (string, error) {
	base, err := baseInstruction(mode)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(base)

	if stack != nil && stack.Locked {
		sb.WriteString("\n\n")
		sb.WriteString(techStackConstraint(stack))
	}
	if prdMode == PRDModeMVP {
		sb.WriteString("\n\n")
		sb.WriteString(mvpConstraint)
	}

	return sb.String(), nil
}

func baseInstruction(mode Mode) (string, error) {
	switch mode {
	case ModeAnalyze:
		return analyzePrompt, nil
	case ModeGenerateInitialPRD:
		return initialPRDPrompt, nil
	case ModeGenerateRefinedPRD:
		return refinedPRDPrompt, nil
	case ModeGeneratePagesList:
		return pagesListPrompt, nil
	case ModeGeneratePageDetails:
		return pageDetailsPrompt, nil
	case ModeGenerateFinalPRD:
		return finalPRDPrompt, nil
	case ModeGenerateProjectName:
		return projectNamePrompt, nil
	case ModeRefineChat:
		return refineChatPrompt, nil
	default:
		return "", fmt.Errorf("unknown generation mode: %q", mode)
	}
}

// techStackConstraint renders the hard-constraint block for a locked stack.
func techStackConstraint(stack *TechStack) string {
	var sb strings.Builder
	sb.WriteString("## Tech Stack Constraint (hard requirement)\n")
	sb.WriteString("The document MUST assume exactly this technology stack:\n")
	for _, tech := range stack.Stack {
		sb.WriteString("- ")
		sb.WriteString(tech)
		sb.WriteString("\n")
	}
	if len(stack.ExcludedTech) > 0 {
		sb.WriteString("The following technologies are explicitly forbidden and must not appear:\n")
		for _, tech := range stack.ExcludedTech {
			sb.WriteString("- ")
			sb.WriteString(tech)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("Do not suggest alternatives to the required stack.")
	return sb.String()
}

const mvpConstraint = `## Scope Constraint (MVP)
Keep the scope to a minimum viable product: only the features required to
validate the core idea. Prefer fewer pages, fewer features per page, and
shorter descriptions. Explicitly defer anything that is not essential.`
