package answer

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/paper-rag/internal/retrieval"
)

// AssemblePrompt renders the contexts as numbered sources followed by the
// question. Source numbers are 1-based positions in contexts, which is
// what ExtractCitations resolves against.
func AssemblePrompt(question string, contexts []retrieval.Context) string {
	blocks := make([]string, len(contexts))
	for i, c := range contexts {
		title := c.PaperTitle
		if title == "" {
			title = c.PaperFilename
		}
		blocks[i] = fmt.Sprintf("Source %d: %s | Section: %s | Pages: %d-%d\n%s",
			i+1, title, c.Section, c.PageStart, c.PageEnd, c.Text)
	}

	var b strings.Builder
	b.WriteString("You are a research assistant answering questions about academic papers.\n")
	b.WriteString("Use only the sources below. If they do not contain the answer, say so.\n\n")
	b.WriteString("Sources:\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer strictly from the sources above. Cite every claim as (Source N), ")
	b.WriteString("where N is the number of the source it comes from.\n\nAnswer:")
	return b.String()
}
