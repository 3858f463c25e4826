// Package prompt collects model values interactively for the CLI.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted signals the user aborted input (e.g., Ctrl+C).
var ErrAborted = errors.New("prompt: aborted")

// InputConfig configures a basic text input prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// ConfirmConfig configures a yes/no style prompt.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// Driver abstracts the terminal so callers can be tested without one.
type Driver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
}

type surveyDriver struct{}

// NewSurveyDriver returns a Driver backed by survey.
func NewSurveyDriver() Driver {
	return &surveyDriver{}
}

func (d *surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	var opts []survey.AskOpt
	if cfg.Validator != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return cfg.Validator(s)
		}))
	}
	if err := survey.AskOne(prompt, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	prompt := &survey.Confirm{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// Fill asks for each key in order and stores the answers in values, which is
// created when nil. A key of the form "name?" is asked as a yes/no question
// and stored as a bool. Existing values become the prompt defaults.
func Fill(ctx context.Context, d Driver, values map[string]any, keys []string) (map[string]any, error) {
	if values == nil {
		values = make(map[string]any, len(keys))
	}
	for _, raw := range keys {
		key := strings.TrimSpace(raw)
		if key == "" {
			continue
		}

		if name, ok := strings.CutSuffix(key, "?"); ok {
			current, _ := values[name].(bool)
			answer, err := d.Confirm(ctx, ConfirmConfig{
				Message: name + "?",
				Default: current,
			})
			if err != nil {
				return nil, fmt.Errorf("prompt: %s: %w", name, err)
			}
			values[name] = answer
			continue
		}

		var current string
		if existing, ok := values[key]; ok && existing != nil {
			current = fmt.Sprint(existing)
		}
		answer, err := d.Input(ctx, InputConfig{
			Message: key + ":",
			Default: current,
		})
		if err != nil {
			return nil, fmt.Errorf("prompt: %s: %w", key, err)
		}
		values[key] = answer
	}
	return values, nil
}
