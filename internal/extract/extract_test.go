package extract

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/paper-rag/internal/chunker"
)

func TestDetectHeading(t *testing.T) {
	tests := []struct {
		line    string
		want    string
		heading bool
	}{
		{"Abstract", "Abstract", true},
		{"1. Introduction", "Introduction", true},
		{"2) Materials and Methods", "Methods", true},
		{"3 Methodology", "Methods", true},
		{"RESULTS", "Results", true},
		{"4. Experiments", "Results", true},
		{"Discussion:", "Discussion", true},
		{"6 Conclusions and Future Work", "Conclusion", true},
		{"References", "References", true},
		{"Results show that the proposed model outperforms every baseline we tried.", "", false},
		{"Abstractions over hardware are common.", "", false},
		{"We describe our approach below.", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := DetectHeading(tt.line)
			assert.Equal(t, tt.heading, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Transformers use attention. They scale well! Do they? (Yes.) [1] shows it. e.g. this stays.")
	assert.Equal(t, []string{
		"Transformers use attention.",
		"They scale well!",
		"Do they?",
		"(Yes.) [1] shows it. e.g. this stays.",
	}, got)

	assert.Empty(t, SplitSentences("   "))
	assert.Equal(t, []string{"No terminator"}, SplitSentences("No terminator"))
}

func TestIsValidTitle(t *testing.T) {
	valid := []string{
		"Attention is All You Need",
		"A Survey of Deep Learning Techniques",
		"Blockchain Applications in Healthcare",
	}
	for _, s := range valid {
		assert.True(t, IsValidTitle(s), s)
	}

	invalid := []string{"abc", "", "123 456 789", "253 255..260", "Page 1", "page 5", "Figure 1", "Table 3"}
	for _, s := range invalid {
		assert.False(t, IsValidTitle(s), s)
	}
}

func TestFromPages(t *testing.T) {
	pages := []string{
		"Attention Is All You Need\nAshish Vaswani\nNoam Shazeer\nNeurIPS 2017\nAbstract\nThe dominant sequence transduction models are recurrent. We propose the Trans-\nformer architecture.",
		"1 Introduction\nRecurrent networks are slow. Attention helps.\n2 Methods\nWe stack six layers.",
	}

	doc := FromPages("attention.pdf", pages, Metadata{})

	assert.Equal(t, "attention.pdf", doc.Filename)
	assert.Equal(t, "Attention Is All You Need", doc.Metadata.Title)
	assert.Equal(t, "Ashish Vaswani, Noam Shazeer, NeurIPS 2017", doc.Metadata.Authors)
	assert.Equal(t, "2017", doc.Metadata.Year)
	assert.Equal(t, 2, doc.Metadata.Pages)

	require.NotEmpty(t, doc.Sentences)
	assert.Equal(t, chunker.Sentence{Text: "Attention Is All You Need Ashish Vaswani Noam Shazeer NeurIPS 2017", Page: 1, Section: chunker.UnknownSection}, doc.Sentences[0])

	var abstract, intro, methods []string
	for _, s := range doc.Sentences {
		switch s.Section {
		case "Abstract":
			abstract = append(abstract, s.Text)
			assert.Equal(t, 1, s.Page)
		case "Introduction":
			intro = append(intro, s.Text)
			assert.Equal(t, 2, s.Page)
		case "Methods":
			methods = append(methods, s.Text)
		}
	}
	assert.Equal(t, []string{
		"The dominant sequence transduction models are recurrent.",
		"We propose the Transformer architecture.",
	}, abstract)
	assert.Equal(t, []string{"Recurrent networks are slow.", "Attention helps."}, intro)
	assert.Equal(t, []string{"We stack six layers."}, methods)
}

func TestFromPagesKeepsInfoTitle(t *testing.T) {
	doc := FromPages("x.pdf", []string{"Some Other Heading Line\nBody text."}, Metadata{Title: "Deep Residual Learning", Authors: "He et al."})
	assert.Equal(t, "Deep Residual Learning", doc.Metadata.Title)
	assert.Equal(t, "He et al.", doc.Metadata.Authors)
}

func TestFromPagesRejectsBadInfoTitle(t *testing.T) {
	doc := FromPages("x.pdf", []string{"Graph Neural Networks Revisited\nBody text."}, Metadata{Title: "abc"})
	assert.Equal(t, "Graph Neural Networks Revisited", doc.Metadata.Title)
}

func TestExtractMissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
