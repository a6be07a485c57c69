package prompts

import (
	"github.com/cloudwego/eino/components/prompt"
)

// SystemPrompts holds the chat templates used by the thumbnail pipeline.
type SystemPrompts struct {
	// Image prompt built from a vision analysis of the source photo
	Recreation prompt.ChatTemplate
	// Article category classification
	Categorize prompt.ChatTemplate
}

// NewSystemPrompts creates and initializes all prompt templates
func NewSystemPrompts() *SystemPrompts {
	return &SystemPrompts{
		Recreation: createRecreationTemplate(),
		Categorize: createCategorizeTemplate(),
	}
}
