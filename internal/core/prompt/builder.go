package prompt

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	einoprompt "github.com/cloudwego/eino/components/prompt"

	"newslk/internal/core/category"
	"newslk/internal/logger"
	"newslk/internal/platform/eino"
	"newslk/prompts"
)

// Analyzer describes a source image.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, imageURL string) (*eino.ImageAnalysis, error)
}

// Builder turns an article's source image into a generation prompt.
type Builder struct {
	analyzer Analyzer
	template einoprompt.ChatTemplate
	log      *logger.Logger
}

// NewBuilder uses analyzer when non-nil; otherwise every prompt is the
// deterministic fallback.
func NewBuilder(analyzer Analyzer) *Builder {
	return &Builder{
		analyzer: analyzer,
		template: prompts.NewSystemPrompts().Recreation,
		log:      logger.New("PromptBuilder"),
	}
}

// Build never fails: analysis or templating errors degrade to Fallback.
func (b *Builder) Build(ctx context.Context, imageURL, title, cat string) string {
	if b.analyzer == nil || imageURL == "" || strings.HasPrefix(imageURL, "data:") {
		return Fallback(title, cat)
	}
	analysis, err := b.analyzer.AnalyzeImage(ctx, imageURL)
	if err != nil || analysis == nil {
		b.log.LogWarnf("Image analysis unavailable for %q, using template prompt: %v", truncate(title, 50), err)
		return Fallback(title, cat)
	}
	text, err := b.render(ctx, analysis, title, cat)
	if err != nil {
		b.log.LogWarnf("Prompt template failed, using template prompt: %v", err)
		return Fallback(title, cat)
	}
	return text
}

func (b *Builder) render(ctx context.Context, a *eino.ImageAnalysis, title, cat string) (string, error) {
	style := category.StyleFor(cat)
	colors := a.Colors
	if len(colors) == 0 {
		colors = style.Colors
	}
	messages, err := b.template.Format(ctx, map[string]any{
		"scene":       orDefault(a.SceneDescription, "A news scene related to the article"),
		"subjects":    orDefault(strings.Join(a.Subjects, ", "), "news-related content"),
		"composition": orDefault(a.Composition, "professional news photography framing"),
		"lighting":    orDefault(a.Lighting, "natural, well-lit"),
		"mood":        orDefault(a.Mood, "professional and informative"),
		"colors":      strings.Join(colors, ", "),
		"title":       title,
		"category":    cat,
		"style":       orDefault(style.Style, "clean and professional"),
	})
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("template produced no messages")
	}
	return messages[len(messages)-1].Content, nil
}

// Fallback is the prompt used when no image analysis is available.
func Fallback(title, cat string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Professional news photograph for %q in %s category. ", title, cat)
	b.WriteString("High-quality photojournalism style, 16:9 aspect ratio, no watermarks or logos. ")
	if colors := category.StyleFor(cat).Colors; len(colors) > 0 {
		fmt.Fprintf(&b, "Color palette: %s. ", strings.Join(colors, ", "))
	}
	b.WriteString("Realistic, professional news media quality.")
	return b.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// truncate caps s at n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
