package prompt

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"newslk/internal/platform/eino"

	"github.com/stretchr/testify/assert"
)

type stubAnalyzer struct {
	analysis *eino.ImageAnalysis
	err      error
	calls    int
}

func (s *stubAnalyzer) AnalyzeImage(context.Context, string) (*eino.ImageAnalysis, error) {
	s.calls++
	return s.analysis, s.err
}

func TestFallbackIsDeterministic(t *testing.T) {
	a := Fallback("Floods in Ratnapura", "Breaking News")
	assert.Equal(t, a, Fallback("Floods in Ratnapura", "Breaking News"))
	assert.Equal(t,
		`Professional news photograph for "Floods in Ratnapura" in Breaking News category. `+
			`High-quality photojournalism style, 16:9 aspect ratio, no watermarks or logos. `+
			`Color palette: #FF4444, #CC0000, #8B0000. Realistic, professional news media quality.`,
		a)
}

func TestBuildWithoutAnalyzerUsesFallback(t *testing.T) {
	b := NewBuilder(nil)
	assert.Equal(t, Fallback("t", "Sports"), b.Build(context.Background(), "http://x/img.jpg", "t", "Sports"))
}

func TestBuildAnalyzerErrorUsesFallback(t *testing.T) {
	an := &stubAnalyzer{err: errors.New("quota exceeded")}
	b := NewBuilder(an)

	assert.Equal(t, Fallback("t", "Politics"), b.Build(context.Background(), "http://x/img.jpg", "t", "Politics"))
	assert.Equal(t, 1, an.calls)
}

func TestBuildSkipsAnalysisForInlineImages(t *testing.T) {
	an := &stubAnalyzer{analysis: &eino.ImageAnalysis{SceneDescription: "x"}}
	b := NewBuilder(an)

	b.Build(context.Background(), "data:image/png;base64,AAAA", "t", "Sports")
	assert.Equal(t, 0, an.calls)
}

func TestBuildFromAnalysis(t *testing.T) {
	an := &stubAnalyzer{analysis: &eino.ImageAnalysis{
		SceneDescription: "Fishermen hauling nets on Negombo beach at sunrise",
		Subjects:         []string{"fishermen", "nets", "boats"},
		Lighting:         "golden morning light",
	}}
	b := NewBuilder(an)

	out := b.Build(context.Background(), "http://x/img.jpg", "Fishing season opens", "Local News")
	assert.Contains(t, out, "Fishermen hauling nets on Negombo beach at sunrise")
	assert.Contains(t, out, "Main subjects: fishermen, nets, boats")
	assert.Contains(t, out, "Lighting: golden morning light")
	assert.Contains(t, out, "Composition: professional news photography framing")
	// no colors in the analysis, so the category palette is used
	assert.Contains(t, out, "Color palette: #00897B, #00695C, #004D40")
	assert.Contains(t, out, `Title: "Fishing season opens"`)
	assert.Contains(t, out, "Category: Local News")
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	title := "கொழும்பு துறைமுகம்"
	for n := 0; n <= len(title); n++ {
		got := truncate(title, n)
		assert.True(t, utf8.ValidString(got), "n=%d", n)
		assert.LessOrEqual(t, len(got), n)
	}
	assert.Equal(t, "Colombo", truncate("Colombo port", 7))
}
