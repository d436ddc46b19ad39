// Package synthesize builds the teaching description prompt for a
// completed unit.
package synthesize

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
	SystemPromptKey = "pipeline.synthesize.system"
	UserPromptKey   = "pipeline.synthesize.user"
)

// AssessmentData is one assessment item shown to the model.
type AssessmentData struct {
	Prompt     string
	Difficulty string
}

// UserPromptData fills the user prompt template.
type UserPromptData struct {
	TopicTitle      string
	SubtopicTitle   string
	SourcePageStart int
	SourcePageEnd   int
	Objectives      []string
	Examples        []string
	Misconceptions  []string
	Assessments     []AssessmentData
}

// SystemPrompt returns the synthesis system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt for one unit.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}

// RegisterPrompts registers the synthesis prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Teaching description synthesis system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Teaching description synthesis user prompt template",
	})
}
