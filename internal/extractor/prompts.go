package extractor

import "fmt"

func keyPointPrompt(content string) string {
	return fmt.Sprintf(`Analyze the following content and extract the key insights.

%s

Respond with a JSON array where every element has:
- "title": a short headline for the insight
- "description": two or three sentences explaining it
- "confidence": a number between 0 and 1

Return only the JSON array.`, content)
}

func sentimentPrompt(content string) string {
	return fmt.Sprintf(`Assess the overall sentiment of the following content.

%s

Respond with a single JSON object with:
- "sentiment": positive, negative, neutral or mixed
- "description": one sentence explaining the assessment
- "confidence": a number between 0 and 1
- "score": a number between -1 (very negative) and 1 (very positive)

Return only the JSON object.`, content)
}
