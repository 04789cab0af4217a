package llm

import (
	"strings"
	"unicode/utf8"
)

const maxPromptChars = 3000

// BuildSystemPrompt composes the fixed instruction template. It is static per
// process: each extraction call is stateless and single-turn, never built from
// conversation history.
func BuildSystemPrompt(categories []string) string {
	catLine := "The category should be a short, sensible label; if uncertain, use 'Other'."
	if len(categories) > 0 {
		catLine = "The category should be one of: " + strings.Join(categories, ", ") +
			". If uncertain, use 'Other'."
	}

	parts := []string{
		"You are an expert accountant's assistant. The user gives you the text of an expense email or a scanned receipt.",
		"Return ONLY a valid JSON object with exactly the keys: vendor, amount, category, date.",
		"amount is the total paid, as a decimal number without currency symbols.",
		catLine,
		"date is the purchase date in ISO-8601 (YYYY-MM-DD); omit it if no date is visible.",
		"If the vendor isn't clear, infer a generic one from the item (e.g., 'coffee' -> 'Coffee Shop', 'gas' -> 'Gas Station').",
		"If the text is not an expense at all, return {\"vendor\": null, \"amount\": null, \"category\": null}.",
		"Never add keys, prose, or markdown around the JSON.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the combined text, truncated so oversized HTML
// receipts don't blow the context window.
func BuildUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Email/receipt text:\n")
	if len(text) > maxPromptChars {
		// cut on a rune boundary so a multi-byte character isn't split
		cut := maxPromptChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		b.WriteString(text[:cut])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}
