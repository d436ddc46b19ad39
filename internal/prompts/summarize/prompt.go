// Package summarize builds the per-page digest prompt: compress one page's
// full text into a short extractive summary for the context composer.
package summarize

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
	SystemPromptKey = "pipeline.summarize.system"
	UserPromptKey   = "pipeline.summarize.user"
)

// UserPromptData fills the user prompt template.
type UserPromptData struct {
	Title      string
	Subject    string
	GradeLevel string
	PageNumber int
	PageText   string
}

// SystemPrompt returns the digest system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt for one page.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}

// RegisterPrompts registers the summarize prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Page digest system prompt - compresses one page into a short extractive summary",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Page digest user prompt template",
	})
}
