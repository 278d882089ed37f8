package runtime

import (
	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/pkg/utils/json"
)

// TokenEstimator estimates token counts for messages.
//
// The exact count comes from the provider's usage report; this heuristic
// only backstops providers that report none, so the shared budget still
// moves. ~4 characters per token for English, ~2 for CJK, blended to
// ~3.5 chars/token.
type TokenEstimator struct {
	charsPerToken float64
}

const (
	// DefaultCharsPerToken is a reasonable default for mixed-language content.
	DefaultCharsPerToken = 3.5

	// PerMessageOverhead accounts for message framing overhead
	// (role tokens, delimiters, etc.) per message.
	PerMessageOverhead = 4
)

// NewTokenEstimator creates a new estimator with the given chars-per-token
// ratio. If ratio <= 0, DefaultCharsPerToken is used.
func NewTokenEstimator(charsPerToken float64) *TokenEstimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &TokenEstimator{charsPerToken: charsPerToken}
}

// EstimateString estimates tokens for a raw string.
func (te *TokenEstimator) EstimateString(s string) int {
	if len(s) == 0 {
		return 0
	}
	// Use rune count for Unicode awareness.
	runeCount := 0
	for range s {
		runeCount++
	}
	return int(float64(runeCount)/te.charsPerToken) + 1
}

// EstimateMessage estimates tokens for a single message.
func (te *TokenEstimator) EstimateMessage(msg *entity.Message) int {
	if msg == nil {
		return 0
	}
	tokens := PerMessageOverhead
	tokens += te.EstimateString(msg.Content)
	tokens += te.EstimateString(msg.Name)

	for _, tc := range msg.ToolCalls {
		tokens += te.EstimateString(tc.Name)
		if args, err := json.MarshalString(tc.Arguments); err == nil {
			tokens += te.EstimateString(args)
		}
		tokens += 4 // tool call framing
	}
	return tokens
}

// EstimateMessages estimates total tokens for a slice of messages.
func (te *TokenEstimator) EstimateMessages(msgs []*entity.Message) int {
	total := 0
	for _, msg := range msgs {
		total += te.EstimateMessage(msg)
	}
	return total
}
