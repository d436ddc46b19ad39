// Package boundary builds the boundary classification prompt: given a
// bounded context pack and the current page, decide continue-vs-new and
// extract the page's content delta.
package boundary

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
	SystemPromptKey = "pipeline.boundary.system"
	UserPromptKey   = "pipeline.boundary.user"
)

// OpenUnitData describes one open unit in the context pack. Evidence is the
// unit's size summary; full content never enters the prompt.
type OpenUnitData struct {
	TopicKey      string
	SubtopicKey   string
	SubtopicTitle string
	Evidence      string
}

// DigestData is one recent page digest in the context pack.
type DigestData struct {
	PageNumber int
	Digest     string
}

// UserPromptData fills the user prompt template.
type UserPromptData struct {
	Title         string
	Subject       string
	GradeLevel    string
	OpenUnits     []OpenUnitData
	RecentDigests []DigestData
	PageNumber    int
	PageText      string
}

// SystemPrompt returns the boundary classification system prompt.
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

// RegisterPrompts registers the boundary prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Boundary classification system prompt - continue vs new unit plus content extraction",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Boundary classification user prompt template",
	})
}
