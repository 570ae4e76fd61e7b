package orchestrate

import (
	"fmt"
	"strings"
)

var stepTitles = map[string]string{
	StepBuild:  "Building branch '%s'...",
	StepTest:   "Running automated tests...",
	StepDeploy: "Deploying to '%s'...",
	StepVerify: "Verifying deployment...",
}

// Narrative renders the plan, prefixed by a readiness analysis, as the
// message returned to the caller.
func Narrative(p *Plan, analysis string) string {
	var b strings.Builder
	b.WriteString("Deployment Orchestration Complete!\n\n")
	fmt.Fprintf(&b, "Target: %s\n", p.Target)
	fmt.Fprintf(&b, "Branch: %s\n\n", p.Branch)
	fmt.Fprintf(&b, "Analysis:\n%s\n\n", strings.TrimRight(analysis, "\n"))

	b.WriteString("Deployment Result:\n")
	b.WriteString("Executing Deployment Plan:\n")
	for i, s := range p.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, stepTitle(p, s.Name))
		fmt.Fprintf(&b, "   Result: %s\n", s.Message)
	}

	if p.Success() {
		b.WriteString("\nDeployment completed successfully!")
	} else {
		b.WriteString("\nDeployment did not complete.")
	}
	return b.String()
}

func stepTitle(p *Plan, name string) string {
	switch name {
	case StepBuild:
		return fmt.Sprintf(stepTitles[name], p.Branch)
	case StepDeploy:
		return fmt.Sprintf(stepTitles[name], p.Target)
	default:
		return stepTitles[name]
	}
}
