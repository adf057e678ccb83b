package usecase

import (
	"fmt"
	"strings"
)

const (
	primaryTemperature = 0.2
	primaryMaxTokens   = 512
	relaxedMaxTokens   = 768
)

func buildPrompt(knowledgeBase, question string) string {
	return strings.Join([]string{
		"You are a friendly and professional assistant for a software engineer's portfolio website.",
		"Answer questions from recruiters and potential employers using ONLY the context below.",
		"Do not make up information. If the context does not contain the answer, say you don't have that information and suggest using the contact form.",
		"Keep answers concise and to the point.",
		"",
		contextBlock(knowledgeBase),
		"",
		fmt.Sprintf("Question: %s", strings.TrimSpace(question)),
		"",
		"Answer using only the information in the context above.",
	}, "\n")
}

// buildRelaxedPrompt is used for the single retry after an empty answer. It
// drops the refusal wording, which is the usual trigger for empty candidates.
func buildRelaxedPrompt(knowledgeBase, question string) string {
	return strings.Join([]string{
		"Using the profile below, write a short, helpful answer to the visitor's question.",
		"If the profile only partly covers the question, answer the part it covers.",
		"",
		contextBlock(knowledgeBase),
		"",
		fmt.Sprintf("Question: %s", strings.TrimSpace(question)),
		"",
		"Answer:",
	}, "\n")
}

func contextBlock(knowledgeBase string) string {
	return "--- CONTEXT START ---\n" + strings.TrimSpace(knowledgeBase) + "\n--- CONTEXT END ---"
}
