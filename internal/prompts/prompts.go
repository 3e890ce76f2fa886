// Package prompts builds the meta-prompts sent to the single-provider
// workflow steps. Pure string substitution; the templates carry the JSON
// contract the clarifier parser enforces.
package prompts

import (
	"strings"

	json "github.com/goccy/go-json"

	"github.com/finprompt/refinery/internal/packs"
)

const clarifierGenerationTemplate = `You are designing exactly 5–6 clarifying questions to improve a user's prompt for an enterprise LLM.

Context:
- The user works in/with investment firms.
- The raw prompt is provided below.
- If a Use-Case Pack is provided, prefer finance-relevant phrasing and hints.

Return JSON only with this exact structure:
{
  "questions": [
    {
      "id": "unique_id",
      "label": "Question text",
      "type": "text|textarea|dropdown|checkbox|multiselect",
      "options": ["option1", "option2"] // only for dropdown/multiselect
      "required": true|false
    }
  ]
}

Types to use:
- text: Short single-line input
- textarea: Multi-line text input
- dropdown: Single selection from options
- checkbox: Yes/no or enable/disable
- multiselect: Multiple selections from options

Guidelines:
- Pick types that minimize typing while improving specificity
- Use dropdown for tone, multiselect for audience
- Avoid hype and jargon
- Be concise and precise
- Focus on information that would materially improve the prompt's effectiveness
- Prefer finance-relevant terminology
- Return exactly 5-6 questions

RAW_PROMPT:
"""
{{rawPrompt}}
"""

USE_CASE_PACK:
{{packJSON}}`

const optimizationTemplate = `You are optimizing a user's prompt to be more specific, actionable, and effective for enterprise LLM use.

Context:
- The user works in investment/finance
- You have their raw prompt and their answers to clarifying questions
- Create a single, copy-ready optimized prompt

Requirements:
- Include clear task definition
- Specify audience when provided
- Include constraints verbatim
- Add style/tone guidance (minimal but concrete)
- Include any provided facts; do not fabricate
- End with: "If any detail is unclear, ask 1–2 clarifying questions before answering."

Structure the optimized prompt clearly with:
1. Task/objective
2. Context and audience (if provided)
3. Specific requirements from answers
4. Tone/style guidance
5. Constraints
6. The clarification clause

RAW_PROMPT:
"""
{{rawPrompt}}
"""

USER_ANSWERS:
{{answers}}

USE_CASE_PACK:
{{packKey}}

Return only the optimized prompt text, nothing else.`

// BuildClarifierPrompt combines the raw prompt with an optional pack's seed
// hints. A nil pack substitutes "None".
func BuildClarifierPrompt(rawPrompt string, pack *packs.Pack) string {
	packJSON := "None"
	if pack != nil {
		if data, err := json.MarshalIndent(pack, "", "  "); err == nil {
			packJSON = string(data)
		}
	}

	return strings.NewReplacer(
		"{{rawPrompt}}", rawPrompt,
		"{{packJSON}}", packJSON,
	).Replace(clarifierGenerationTemplate)
}

// BuildOptimizationPrompt combines the raw prompt, the user's clarifier
// answers (already JSON), and the pack key.
func BuildOptimizationPrompt(rawPrompt, answersJSON, packKey string) string {
	if packKey == "" {
		packKey = "None"
	}
	return strings.NewReplacer(
		"{{rawPrompt}}", rawPrompt,
		"{{answers}}", answersJSON,
		"{{packKey}}", packKey,
	).Replace(optimizationTemplate)
}
