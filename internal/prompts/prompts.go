package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Audit prompt battery
// ============================================================================

// auditTemplates is the fixed battery of category-templated questions put to
// the model provider. The count is deterministic for a given category; a
// session's totalPrompts depends on it.
var auditTemplates = []string{
	"What are the best %s options available today?",
	"Which %s would you recommend for a small business?",
	"Compare the leading %s solutions on the market.",
	"What should I look for when choosing %s?",
	"Which %s offers the best value for money?",
	"What are the most popular %s tools among professionals?",
	"Which %s is easiest to get started with for a beginner?",
	"What are the main alternatives in the %s space?",
	"Which %s do enterprise teams typically use, and why?",
	"What are the current trends in %s and which providers lead them?",
}

// GeneratedPrompt is one question produced for a category.
type GeneratedPrompt struct {
	Text string
}

// Generate builds the prompt battery for a category. Deterministic in count;
// order is significant and drives processing order downstream.
func Generate(category string) []GeneratedPrompt {
	prompts := make([]GeneratedPrompt, 0, len(auditTemplates))
	for _, tpl := range auditTemplates {
		prompts = append(prompts, GeneratedPrompt{Text: fmt.Sprintf(tpl, category)})
	}
	return prompts
}

// ============================================================================
// Analysis prompts (structured extraction)
// ============================================================================

// AnalysisUserPrompt frames the raw response text for the extraction model.
const AnalysisUserPrompt = "Analyze the following AI-generated response for brand visibility:\n\n"

// BuildAnalysisSystemPrompt produces the system instruction for mention and
// citation extraction, constrained to the supplied brand list.
func BuildAnalysisSystemPrompt(brands []string) string {
	var list strings.Builder
	for i, b := range brands {
		fmt.Fprintf(&list, "%d. %s\n", i+1, b)
	}

	return `You are an AI Visibility Analyst specializing in brand monitoring and competitive intelligence.

## YOUR ROLE
Analyze AI-generated content to extract brand visibility metrics for competitive analysis dashboards.

## TARGET BRANDS TO TRACK
` + list.String() + `
## ANALYSIS TASKS

### Task 1: Brand Mention Detection
For EACH brand in the target list, identify:
- **count**: Total number of times this brand appears in the text (include variations like "Nike", "Nike's", "by Nike", "@Nike")
- **context**: The most relevant sentence (max 150 chars) showing how the brand is mentioned or positioned

### Task 2: Citation Extraction
Extract all URLs mentioned as sources or references. Only include valid http/https URLs.

## OUTPUT JSON STRUCTURE
Your response MUST be a valid JSON object following this structure:

{
  "mentions": [
    {
      "brand": "<exact brand name from TARGET BRANDS list>",
      "count": <integer: total occurrences of this brand>,
      "context": "<string: most relevant sentence showing the brand>"
    }
  ],
  "citations": ["<url1>", "<url2>"]
}

IMPORTANT: The above is the STRUCTURE template. Analyze the user's input text and extract REAL data from it.

## RULES
1. ONLY include brands from the TARGET BRANDS list above.
2. If a brand is NOT mentioned at all, do NOT include it in the mentions array.
3. For count: Count ALL occurrences including variations (Nike, Nike's, by Nike, @Nike = all count as Nike).
4. For context: Choose the sentence that best shows the brand's positioning (positive, negative, or neutral).
5. For citations: Return empty array [] if no URLs found. Do not invent URLs.
6. Be precise. This data feeds into business dashboards.

## EXAMPLE (FOR UNDERSTANDING ONLY - DO NOT COPY THIS DATA)

If the input text is:
"For CRM software, Salesforce leads the market with 23% share. Salesforce's pricing is competitive. HubSpot is known for ease of use. Check reviews at https://g2.com/crm"

Then the correct output would be:
{
  "mentions": [
    {"brand": "Salesforce", "count": 2, "context": "Salesforce leads the market with 23% share."},
    {"brand": "HubSpot", "count": 1, "context": "HubSpot is known for ease of use."}
  ],
  "citations": ["https://g2.com/crm"]
}

Note: Salesforce has count=2 because it appears twice ("Salesforce leads..." and "Salesforce's pricing...").`
}
