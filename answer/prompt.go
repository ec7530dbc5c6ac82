package answer

import (
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hazyhaar/docqa/docpipe"
)

const systemPreamble = "You analyze contract documentation. Answer strictly from the provided context."

const improveSystemPrompt = "You help phrase checks for contract documentation. " +
	"Make the prompt more precise, structured and verifiable. " +
	"Return only the improved wording, without explanations."

var modeInstructions = map[Mode]string{
	ModeShort:    "Answer in 1–2 sentences.",
	ModeExtended: "Answer with brief justification.",
	ModeFull:     "Answer in detail, include direct quotes and page references using the PAGE markers from context.",
}

// BuildSystemPrompt returns the system message for a role and mode. The
// mode must come from ParseMode.
func BuildSystemPrompt(role string, mode Mode) string {
	detail, ok := modeInstructions[mode]
	if !ok {
		detail = modeInstructions[ModeFull]
	}
	return systemPreamble + " User role: " + role + ". " + detail
}

// BuildDocumentBlock renders documents as "Document: <name>\n<text>" blocks
// separated by blank lines, in input order. It does not truncate.
func BuildDocumentBlock(docs []docpipe.ParsedDocument) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = "Document: " + d.Name + "\n" + d.Text
	}
	return strings.Join(parts, "\n\n")
}

// BuildUserContent is the user message of an Ask call.
func BuildUserContent(docs []docpipe.ParsedDocument, question string) string {
	return BuildDocumentBlock(docs) + "\n\nQuestion: " + question
}

func buildImproveUserContent(role, prompt string) string {
	return "Role: " + role + "\nPrompt: " + prompt
}

func askMessages(req Request) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(req.Role, req.Mode)},
		{Role: openai.ChatMessageRoleUser, Content: BuildUserContent(req.Documents, req.Question)},
	}
}

func improveMessages(role, prompt string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: improveSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildImproveUserContent(role, prompt)},
	}
}
