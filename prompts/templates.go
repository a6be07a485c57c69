package prompts

import (
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// ImageAnalysis is sent to the vision model together with the source image.
// The reply must be a single JSON object.
const ImageAnalysis = `Analyze this news image in detail so that a similar photograph can be produced without copying it.

Return ONLY a JSON object with these fields:
{
  "sceneDescription": "the main scene, subject and what is happening, 2-3 sentences, ignoring any logos or watermarks",
  "subjects": ["key people, objects or elements"],
  "composition": "framing, layout and positioning of elements",
  "lighting": "natural or artificial, direction, quality",
  "mood": "overall atmosphere and emotional tone",
  "colors": ["3-5 dominant colors"],
  "hasWatermark": true or false,
  "watermarkLocation": "where logos, watermarks or branding appear, e.g. bottom-right, or empty"
}

**IMPORTANT**: No markdown fences, no commentary.`

// createRecreationTemplate renders the generation prompt. Every variable is
// pre-resolved by the caller, including the defaults for missing analysis
// fields.
func createRecreationTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.UserMessage(`Create a professional news photograph for a Sri Lankan news website.

SCENE TO RECREATE:
{scene}

KEY ELEMENTS:
- Main subjects: {subjects}
- Composition: {composition}
- Lighting: {lighting}
- Mood: {mood}
- Color palette: {colors}

ARTICLE CONTEXT:
- Title: "{title}"
- Category: {category}
- Category style: {style}

REQUIREMENTS:
- Style: Professional photojournalism, high-quality news media
- NO logos, watermarks, or text overlays
- Clean, professional composition
- Sharp focus, high detail
- Aspect ratio: 16:9 (landscape)
- Maintain the same subject matter and scene as described above

Create a realistic, professional news photograph that captures the essence of the scene described above.`),
	)
}

func createCategorizeTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(`# Your Role
You are a news categorization expert for a Sri Lankan news website.

# Your Task
Pick the single category that best fits the article from this list:
{categories}

# Output
Return ONLY a JSON object: {{"category": "<one of the listed categories>"}}
**IMPORTANT**: Use the category name exactly as listed. No explanations.`),
		schema.UserMessage(`Title: {title}
Description: {description}`),
	)
}
