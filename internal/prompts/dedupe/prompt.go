// Package dedupe builds the duplicate unit detection prompt run during
// document finalization.
package dedupe

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/jackzampolin/primer/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// Prompt keys
const (
	SystemPromptKey = "pipeline.dedupe.system"
	UserPromptKey   = "pipeline.dedupe.user"
)

// UnitData is one candidate unit shown to the model.
type UnitData struct {
	TopicKey        string
	SubtopicKey     string
	SubtopicTitle   string
	SourcePageStart int
	SourcePageEnd   int
	Evidence        string
}

// UserPromptData fills the user prompt template.
type UserPromptData struct {
	Title string
	Units []UnitData
}

// SystemPrompt returns the dedupe system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt for one document's unit list.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}

// RegisterPrompts registers the dedupe prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Duplicate unit detection system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Duplicate unit detection user prompt template",
	})
}
