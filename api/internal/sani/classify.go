package sani

import (
	"context"
	"errors"
	"fmt"

	"sani-bot/api/internal/llm"
)

// ErrUpstream marks a failed generator call. It is the only error the
// classification path returns.
var ErrUpstream = errors.New("upstream generator failed")

// ErrNoGenerator is wrapped into an UpstreamError when a Classifier without
// a Generator has to call the model.
var ErrNoGenerator = errors.New("classifier has no generator")

type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Decision is the full trace of one classification.
type Decision struct {
	Result IntentParseResult `json:"result"`
	Gated  bool              `json:"gated"` // true when the gate short-circuited
	Stage  ParseStage        `json:"stage,omitempty"`
	Raw    string            `json:"raw,omitempty"` // classifier output, empty when gated
}

// Classifier runs gate → generator → NLU parser → mapper.
type Classifier struct {
	Generator llm.Generator
	Prompt    string
	Params    llm.Params
	Gate      *Gate
	Mapper    *Mapper
}

// Classify returns the canonical intent for message.
func (c *Classifier) Classify(ctx context.Context, message string) (IntentParseResult, error) {
	d, err := c.Decide(ctx, message)
	if err != nil {
		return IntentParseResult{}, err
	}
	return d.Result, nil
}

func (c *Classifier) Decide(ctx context.Context, message string) (Decision, error) {
	gate := c.Gate
	if gate == nil {
		gate = defaultGate
	}
	if !gate.Pass(message) {
		return Decision{Result: otherResult(), Gated: true}, nil
	}

	msgs := make([]llm.Message, 0, 2)
	if c.Prompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: c.Prompt})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	if c.Generator == nil {
		return Decision{}, &UpstreamError{Op: "classify", Err: ErrNoGenerator}
	}
	raw, err := c.Generator.Generate(ctx, msgs, c.Params)
	if err != nil {
		return Decision{}, &UpstreamError{Op: "classify", Err: err}
	}
	return c.decideFromRaw(message, raw), nil
}

// MapOutput classifies message against a known classifier output without
// calling any generator. The gate still applies.
func (c *Classifier) MapOutput(message, raw string) Decision {
	gate := c.Gate
	if gate == nil {
		gate = defaultGate
	}
	if !gate.Pass(message) {
		return Decision{Result: otherResult(), Gated: true}
	}
	return c.decideFromRaw(message, raw)
}

func (c *Classifier) decideFromRaw(message, raw string) Decision {
	nlu, stage := ParseNLU(raw)
	if stage == StageFailed {
		return Decision{Result: otherResult(), Stage: stage, Raw: raw}
	}
	mapper := c.Mapper
	if mapper == nil {
		mapper = defaultMapper
	}
	return Decision{Result: mapper.Map(message, nlu.IntentRaw, nlu.Slots), Stage: stage, Raw: raw}
}

var defaultGate = NewGate()

// ClassifyIntent classifies with the default tables and no system prompt.
func ClassifyIntent(ctx context.Context, message string, gen llm.Generator) (IntentParseResult, error) {
	c := &Classifier{Generator: gen}
	return c.Classify(ctx, message)
}
