package answer

import "context"

// Stub is an offline Answerer that echoes its inputs.
type Stub struct{}

func (Stub) Ask(_ context.Context, req Request) (string, error) {
	return "Test answer. Role: " + req.Role + ". Mode: " + string(req.Mode) + ". Question: " + req.Question, nil
}

func (Stub) ImprovePrompt(_ context.Context, role, prompt string) (string, error) {
	return "Improved prompt for role " + role + ": " + prompt, nil
}

func (Stub) Model() string { return "stub" }
