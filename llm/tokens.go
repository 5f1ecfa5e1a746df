package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

func getEncoder() *tiktoken.Tiktoken {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
		// On error the encoder stays nil and counting falls back to
		// a character heuristic.
	})
	return encoder
}

// CountTokens estimates the token count of text using the cl100k_base
// encoding, falling back to len(text)/4 when the encoding data is
// unavailable.
func CountTokens(text string) int {
	enc := getEncoder()
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// CountMessagesTokens estimates the prompt size of a conversation,
// including a fixed per-message overhead for role framing.
func CountMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += CountTokens(m.Content) + 10
		for _, tc := range m.ToolCalls {
			total += CountTokens(tc.Function.Name) + CountTokens(tc.Function.Arguments)
		}
	}
	return total
}
