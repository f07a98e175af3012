package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/flux-life/flux-planner/internal/planner"
)

func renderBanner(provider string, a *planner.Agent) string {
	var sb strings.Builder
	sb.WriteString(color.CyanString("Flux goal planner"))
	fmt.Fprintf(&sb, " %s\n", color.HiBlackString("(provider: %s, conversation: %s)", provider, a.ConversationID))
	if a.State == domain.StateIdle && len(a.Messages) == 0 {
		sb.WriteString("Tell me about a health or fitness goal. Type /quit to leave.")
	} else {
		fmt.Fprintf(&sb, "Resuming at %s.", color.YellowString("%s", a.State))
	}
	return sb.String()
}

func renderPrompt() string {
	return color.GreenString("you> ")
}

func renderAssistant(text string) string {
	return color.MagentaString("flux> ") + text
}

func renderTurn(turn planner.Turn) string {
	var sb strings.Builder
	sb.WriteString(renderAssistant(turn.Message))
	if len(turn.Plan) > 0 {
		sb.WriteString("\n")
		sb.WriteString(renderPlan(turn.Plan))
	}
	if turn.SuggestedAction != "" {
		fmt.Fprintf(&sb, "\n%s %s", color.HiBlackString("try:"), color.YellowString("%s", turn.SuggestedAction))
	}
	if turn.State == domain.StateConfirmed {
		fmt.Fprintf(&sb, "\n%s", color.GreenString("✓ plan confirmed"))
	}
	return sb.String()
}

func renderPlan(plan []domain.Milestone) string {
	var sb strings.Builder
	for _, m := range plan {
		fmt.Fprintf(&sb, "\n%s %s\n", color.CyanString("Week %d:", m.Week), m.Title)
		for _, task := range m.Tasks {
			fmt.Fprintf(&sb, "  • %s\n", task)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
