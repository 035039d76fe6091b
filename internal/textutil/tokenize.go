package textutil

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/registry"
)

var analyzer analysis.Analyzer

func init() {
	cache := registry.NewCache()
	var err error
	analyzer, err = en.AnalyzerConstructor(nil, cache)
	if err != nil {
		panic(err)
	}
}

// Tokens runs the English analyzer (lowercase, stop words, stemming)
// over text.
func Tokens(text string) []string {
	if text == "" {
		return nil
	}

	tokenStream := analyzer.Analyze([]byte(text))

	tokens := make([]string, 0, len(tokenStream))
	for _, token := range tokenStream {
		tokens = append(tokens, string(token.Term))
	}

	return tokens
}

// WordSet returns the set of lower-cased raw words in text. Unlike Tokens
// it keeps stop words, so trivially similar sentences still overlap.
func WordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
