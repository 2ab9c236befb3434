// Package transform routes block edit requests to the local text and image
// generators.
package transform

import "fmt"

// Action keywords with a dedicated instruction template.
const (
	ActionGrammar          = "grammar"
	ActionRephrase         = "rephrase"
	ActionExpand           = "expand"
	ActionToneProfessional = "tone_professional"
	ActionToneSad          = "tone_sad"
	ActionToneFun          = "tone_fun"
)

var templates = map[string]string{
	ActionGrammar:          `Correct the grammar: "%s"`,
	ActionRephrase:         `Rephrase this: "%s"`,
	ActionExpand:           `Expand this paragraph with more detail: "%s"`,
	ActionToneProfessional: `Rewrite this in a professional tone: "%s"`,
	ActionToneSad:          `Rewrite this in a sad tone: "%s"`,
	ActionToneFun:          `Rewrite this in a fun and playful tone: "%s"`,
}

// Actions lists the known action keywords in display order.
var Actions = []string{
	ActionGrammar,
	ActionRephrase,
	ActionExpand,
	ActionToneProfessional,
	ActionToneSad,
	ActionToneFun,
}

// KnownAction reports whether action has its own template.
func KnownAction(action string) bool {
	_, ok := templates[action]
	return ok
}

// Prompt builds the instruction sent to the text generator.
// Unknown actions fall back to a generic instruction and never fail.
func Prompt(action, text string) string {
	if tmpl, ok := templates[action]; ok {
		return fmt.Sprintf(tmpl, text)
	}
	return fmt.Sprintf("Perform '%s' on: %s", action, text)
}
