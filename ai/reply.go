package ai

import (
	"context"
	"fmt"
)

// Replier produces auto-reply text for a comment in the context of its post.
type Replier struct {
	gen TextGenerator
}

// NewReplier wraps a TextGenerator for reply generation.
func NewReplier(gen TextGenerator) *Replier {
	return &Replier{gen: gen}
}

// GenerateReply asks the model for a reply to commentContent left on postContent.
func (r *Replier) GenerateReply(ctx context.Context, postContent, commentContent string) (string, error) {
	prompt := fmt.Sprintf("Generate a relevant reply for a comment '%s' on the post '%s'.", commentContent, postContent)
	return r.gen.GenerateContent(ctx, prompt)
}
