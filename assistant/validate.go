package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const chatSchema = `{
  "type": "object",
  "properties": {
    "session_id": {"type": "string", "minLength": 8},
    "message":    {"type": "string", "minLength": 1, "maxLength": 4000},
    "role":       {"type": "string", "minLength": 2},
    "mode":       {"type": "string", "enum": ["short", "extended", "full"]}
  },
  "required": ["session_id", "message", "role", "mode"]
}`

const improveSchema = `{
  "type": "object",
  "properties": {
    "prompt": {"type": "string", "minLength": 3, "maxLength": 4000},
    "role":   {"type": "string", "minLength": 2}
  },
  "required": ["prompt", "role"]
}`

const ratingSchema = `{
  "type": "object",
  "properties": {
    "session_id": {"type": "string"},
    "message_id": {"type": "string"},
    "rating":     {"type": "string", "enum": ["up", "down"]},
    "role":       {"type": "string"},
    "mode":       {"type": "string"},
    "question":   {"type": "string"}
  },
  "required": ["session_id", "message_id", "rating", "role", "mode", "question"]
}`

// validator holds the request schemas, compiled once.
type validator struct {
	chat    *jsonschema.Schema
	improve *jsonschema.Schema
	rating  *jsonschema.Schema
}

func newValidator() (*validator, error) {
	compile := func(name, src string) (*jsonschema.Schema, error) {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		return schema, nil
	}

	var v validator
	var err error
	if v.chat, err = compile("chat.json", chatSchema); err != nil {
		return nil, err
	}
	if v.improve, err = compile("improve.json", improveSchema); err != nil {
		return nil, err
	}
	if v.rating, err = compile("rating.json", ratingSchema); err != nil {
		return nil, err
	}
	return &v, nil
}

// check validates req, a request struct, against schema. Failures wrap
// ErrValidation.
func check(schema *jsonschema.Schema, req any) error {
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, describe(err))
	}
	return nil
}

// describe flattens a schema error to "field: message" pairs.
func describe(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.TrimPrefix(e.InstanceLocation, "/")
			if field == "" {
				msgs = append(msgs, e.Message)
			} else {
				msgs = append(msgs, field+": "+e.Message)
			}
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
