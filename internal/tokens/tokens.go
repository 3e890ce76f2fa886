// Package tokens estimates token counts for finalized prompts so records
// carry a size figure without an extra provider round-trip.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	once  sync.Once
	codec tokenizer.Codec
	initE error
)

func getCodec() (tokenizer.Codec, error) {
	once.Do(func() {
		codec, initE = tokenizer.ForModel(tokenizer.GPT4o)
		if initE != nil {
			codec, initE = tokenizer.Get(tokenizer.Cl100kBase)
		}
	})
	return codec, initE
}

// Count returns the token count of text under the GPT-4o encoding. A
// tokenizer failure yields 0; counts are advisory, never load-bearing.
func Count(text string) int {
	if text == "" {
		return 0
	}
	c, err := getCodec()
	if err != nil {
		return 0
	}
	n, err := c.Count(text)
	if err != nil {
		return 0
	}
	return n
}
