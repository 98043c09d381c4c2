package knowledge

import (
	"fmt"
	"strings"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

const rerankSystemPrompt = `You are a Korea travel expert answering from a curated travel knowledge base.
Answer only from the numbered passages. Respond with JSON only.`

func getRerankPrompt(query string, chunks []types.KnowledgeChunk, topN int) string {
	var passages strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&passages, "[%d] %s\n\n", i, strings.TrimSpace(c.Text))
	}
	return fmt.Sprintf(`
Question: %s

Passages:
%s
Pick at most %d passages that answer the question, most relevant first, and
write a concise answer grounded in them. Suggest up to 3 follow-up questions.

Return exactly this JSON structure:
{
  "answer": "answer text in the language of the question",
  "cited": [0, 2],
  "suggested_queries": ["follow-up question"]
}
`, query, passages.String(), topN)
}
