package pipeline

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/Pulse/internal/llm"
)

const defaultQuestion = "Provide a progress summary."

const systemPrompt = "You are a reporting layer, not an analyst. Do NOT infer trends beyond the provided context.\n" +
	"Only narrate the context; do not think aloud. If information is missing, say so plainly.\n" +
	"Do not repeat metrics across sections. Tone: senior analyst, calm, supportive.\n"

const outputFormat = "Output format (fixed):\n" +
	"Output structure (each at most 5 sentences):\n" +
	"1) Executive Summary (3-5 bullets, insight-driven)\n" +
	"2) Activity by Source (short paragraph per source)\n" +
	"3) Momentum & Phase Interpretation\n" +
	"4) What's Going Well\n" +
	"5) What Changed Recently\n" +
	"6) Strategic Options (2-3, as choices, not prescriptions)\n" +
	"7) Data Confidence & Gaps\n" +
	"Never analyze raw metrics; only narrate explicit signals. Every number must include unit and window.\n"

const progressPrompt = "Produce a concise, data-grounded progress summary.\n" +
	"Use this exact section order:\n" +
	"1) Executive Summary (5-7 bullets, no fluff)\n" +
	"2) Current Focus & Trajectory (top relevant themes only; label lifecycle: Active/Consolidated/Paused/Abandoned; trajectory: Rising/Stable/Fading)\n" +
	"3) What's Going Well (stable, low-friction patterns worth protecting)\n" +
	"4) Recent Reality vs Baseline (recency-weighted; highlight divergence or say no strong divergence)\n" +
	"5) Signals Worth Watching (emerging/declining; only if real growth; else say no strong signal)\n" +
	"6) Strategic Options (2-3 choices tied to themes/trends; frame as options, not advice)\n" +
	"7) Data Confidence & Caveats (what was strong, what was thin, what was omitted as low relevance)\n" +
	"Rules: do NOT hallucinate. Cite sources (Asana, Toggl, Habitica, Google Fit). " +
	"Inactivity is not failure; paused/abandoned are neutral. Do not highlight noise. " +
	"Analyst tone; short, precise sentences; no prescriptions."

// Messages builds the two-message conversation for a context and question.
func Messages(contextText, question string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\n%sQuestion: %s", contextText, outputFormat, question)},
	}
}

func focusPrompt(topic string, themes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Give a focused cross-platform summary for the topic %q.\n", topic)
	if len(themes) > 0 {
		fmt.Fprintf(&b, "Related themes in the context: %s.\n", strings.Join(themes, "; "))
	} else {
		b.WriteString("No theme in the context matches this topic; say so and summarize only what is explicitly present.\n")
	}
	b.WriteString("Restrict the answer to activity related to this topic; cite the source of every signal.")
	return b.String()
}
