package arxiv

import (
	"regexp"
	"strings"
)

// trackedKeywords is the fixed list of terms extracted from paper titles
// and abstracts. Matches are word-bounded and case-insensitive.
var trackedKeywords = []string{
	"LLM", "Large Language Model", "Transformer", "Attention", "Generative AI",
	"GPT", "BERT", "T5", "Llama", "Mixtral", "Mistral", "Gemini", "Claude",
	"RAG", "Retrieval Augmented Generation", "Fine-tuning", "Prompt Engineering",
	"Reinforcement Learning from Human Feedback", "RLHF", "Multimodal",
	"Neural Network", "Deep Learning", "Machine Learning", "AI", "Artificial Intelligence",
}

var keywordPatterns = buildKeywordPatterns()

func buildKeywordPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(trackedKeywords))
	for _, kw := range trackedKeywords {
		patterns[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(kw)) + `\b`)
	}
	return patterns
}

// ExtractKeywords returns the tracked keywords present in the text, each
// at most once, in the tracked list's order.
func ExtractKeywords(text string) []string {
	lower := strings.ToLower(text)

	var found []string
	for _, kw := range trackedKeywords {
		if keywordPatterns[kw].MatchString(lower) {
			found = append(found, kw)
		}
	}
	return found
}
