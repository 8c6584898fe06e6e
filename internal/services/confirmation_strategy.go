// Package services provides business logic and orchestration services.
//
// This file implements the strategies that decide how many confirmation steps
// a cash-out needs and what each step tells the user.

package services

import (
	"fmt"
	"strings"
)

// ConfirmationStrategy decides the number of confirmation steps before a
// cash-out commits and the message shown at each step.
type ConfirmationStrategy interface {
	// Steps returns K, the number of confirmations. Always at least 1.
	Steps() int
	// Message returns the prompt for step, counted from 1.
	Message(step int) string
}

// DefaultConfirmationMessages are the escalating prompts used when none are configured.
var DefaultConfirmationMessages = []string{
	"Are you sure you want to cash out?",
	"Really sure? Cashing out locks in today's price forever.",
	"This cannot be undone. The box stays cashed out for good.",
	"Last chance. Confirm to cash out now.",
}

// SingleStepConfirmation commits on the first confirmation.
type SingleStepConfirmation struct {
	Text string
}

func (SingleStepConfirmation) Steps() int { return 1 }

func (s SingleStepConfirmation) Message(int) string {
	if s.Text != "" {
		return s.Text
	}
	return DefaultConfirmationMessages[0]
}

// EscalatingConfirmation asks StepCount times, one message per step.
// Steps beyond the last message reuse the last message.
type EscalatingConfirmation struct {
	Messages  []string
	StepCount int
}

// NewEscalatingConfirmation returns a strategy with one step per message.
func NewEscalatingConfirmation(messages []string) EscalatingConfirmation {
	messages = cleanMessages(messages)
	if len(messages) == 0 {
		messages = DefaultConfirmationMessages
	}
	return EscalatingConfirmation{Messages: messages, StepCount: len(messages)}
}

func (e EscalatingConfirmation) Steps() int {
	if e.StepCount > 0 {
		return e.StepCount
	}
	if len(e.Messages) > 0 {
		return len(e.Messages)
	}
	return 1
}

func (e EscalatingConfirmation) Message(step int) string {
	msgs := e.Messages
	if len(msgs) == 0 {
		msgs = DefaultConfirmationMessages
	}
	if step < 1 {
		step = 1
	}
	if step > len(msgs) {
		step = len(msgs)
	}
	return msgs[step-1]
}

// ConfirmationFactory builds a strategy from the configured messages.
type ConfirmationFactory func(messages []string) ConfirmationStrategy

var confirmationStrategies = map[string]ConfirmationFactory{
	"single": func(messages []string) ConfirmationStrategy {
		messages = cleanMessages(messages)
		if len(messages) == 0 {
			return SingleStepConfirmation{}
		}
		return SingleStepConfirmation{Text: messages[0]}
	},
	"escalating": func(messages []string) ConfirmationStrategy {
		return NewEscalatingConfirmation(messages)
	},
}

// GetConfirmationStrategy returns the strategy registered under name.
func GetConfirmationStrategy(name string, messages []string) (ConfirmationStrategy, error) {
	factory, ok := confirmationStrategies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown confirmation strategy: %s", name)
	}
	return factory(messages), nil
}

// RegisterConfirmationStrategy adds or replaces a named strategy.
func RegisterConfirmationStrategy(name string, factory ConfirmationFactory) {
	confirmationStrategies[strings.ToLower(name)] = factory
}

func cleanMessages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
