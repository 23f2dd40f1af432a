package generation

import (
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/intent"
)

const generalInstructions = `You are a helpful AI assistant that provides detailed, well-structured responses.

When providing answers:
1. Start with a clear explanation or introduction
2. Include practical examples or code snippets
3. Use clear section headers for different parts
4. If code is involved, provide multiple approaches or explain the concept thoroughly
5. Format responses with good readability
6. Do NOT include the question as the first line - go straight to the answer

For code requests:
- Provide complete, working code
- Add comments explaining the logic
- Include usage examples
- Explain the approach

For explanations:
- Start with a simple definition
- Provide detailed explanation
- Include practical examples
- Add key points or benefits

Make responses informative, well-organized, and easy to understand.`

// Prompt is a built prompt plus what was detected about the request.
type Prompt struct {
	Text     string
	IsCode   bool
	Language string
}

// BuildPrompt embeds the raw user message in the instruction template. Code
// requests keep the same template; only the detected language is reported.
func BuildPrompt(raw string) Prompt {
	p := Prompt{Text: GeneralPrompt(raw)}
	if intent.IsCodeRequest(raw) {
		p.IsCode = true
		p.Language = intent.ExtractLanguage(raw)
	}
	return p
}

// GeneralPrompt is the explanatory template around raw.
func GeneralPrompt(raw string) string {
	return generalInstructions + "\n\nUser question/request: " + raw
}
