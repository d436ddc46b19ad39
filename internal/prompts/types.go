// Package prompts provides prompt management with embedded defaults.
//
// Embedded .tmpl files in code are the source of truth. Each pipeline stage
// registers its prompts at init so the server can list every prompt in use
// and trace LLM call records back to a prompt key.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // hierarchical key: pipeline.boundary.system
	Text        string   // the prompt text (Go template)
	Description string   // human-readable description
	Variables   []string // extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}
