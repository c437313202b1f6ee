// Package prompt assembles the augmented prompt sent to the generation
// backend: system instructions, retrieved context chunks, and the user's
// question, in that order, with a stable template so the rendered text is
// reproducible from the same inputs. The UI displays the rendered prompt
// verbatim, so formatting here is part of the product, not an internal
// detail.
package prompt

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/ragviz/internal/rag"
)

// DefaultSystemPrompt is used when the caller supplies no system prompt.
const DefaultSystemPrompt = `You are a helpful assistant that answers questions about the provided text.
You are given a question and a context.
Answer the question based only on the context.`

// contextSeparator visually fences the retrieved context in the rendered
// user message.
const contextSeparator = "================================================================================"

// Context is the fully composed prompt for one generation call. It is a pure
// function of the retrieval results and current settings, and immutable once
// built.
type Context struct {
	// SystemPrompt is the system instruction text.
	SystemPrompt string

	// Retrieved is the ordered sequence of chunks used as context.
	Retrieved []rag.Result

	// UserQuery is the user's question.
	UserQuery string

	// userMessage is the rendered user-role message (context + question).
	userMessage string
}

// Compose builds a Context from the system prompt, the retrieved chunks in
// retrieval order, and the user query. An empty systemPrompt selects
// DefaultSystemPrompt.
func Compose(systemPrompt string, retrieved []rag.Result, userQuery string) *Context {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}

	var ctx strings.Builder
	for i, r := range retrieved {
		if i > 0 {
			ctx.WriteString("\n\n")
		}
		fmt.Fprintf(&ctx, "[Context %d] (similarity %.3f):\n%s", i+1, r.Score, r.Chunk.Text)
	}

	userMessage := fmt.Sprintf(`Context Information:
%s
%s
%s

User Question: %s

Please answer the question based on the context provided above.`,
		contextSeparator, ctx.String(), contextSeparator, userQuery)

	return &Context{
		SystemPrompt: strings.TrimSpace(systemPrompt),
		Retrieved:    retrieved,
		UserQuery:    userQuery,
		userMessage:  userMessage,
	}
}

// Render returns the full prompt text as displayed to the user: system
// prompt first, then the context-bearing user message.
func (c *Context) Render() string {
	return c.SystemPrompt + "\n\n" + c.userMessage
}

// Messages returns the prompt as chat messages for the generation backend.
func (c *Context) Messages() []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(c.SystemPrompt),
		schema.UserMessage(c.userMessage),
	}
}

// Token estimation uses a conservative character heuristic: 1 token ≈ 4
// characters of English prose. The true count depends on the backend's
// tokenizer; the authoritative numbers come back with the generation
// response and override this estimate.
const charsPerToken = 4

// EstimateTokens returns the approximate prompt token count for c. It is an
// estimate only — display it as such.
func EstimateTokens(c *Context) int {
	total := 0
	for _, m := range c.Messages() {
		// Each message carries a small per-message overhead (~4 tokens in
		// most chat APIs).
		total += 4
		total += estimate(string(m.Role))
		total += estimate(m.Content)
	}
	return total
}

// estimate returns a rough token count for s using the character heuristic.
func estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}
