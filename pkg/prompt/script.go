package prompt

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrScriptExhausted is returned by Script when a prompt has no scripted
// answer left.
var ErrScriptExhausted = errors.New("prompt: script exhausted")

// Script is a Driver that replays canned answers in order. It backs
// non-interactive runs and tests.
type Script struct {
	mu       sync.Mutex
	Inputs   []string
	Confirms []bool
	Selects  []int
	Messages []string
}

func (s *Script) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Inputs) == 0 {
		return "", fmt.Errorf("%w: input %q", ErrScriptExhausted, cfg.Message)
	}
	value := s.Inputs[0]
	s.Inputs = s.Inputs[1:]
	if value == "" {
		value = cfg.Default
	}
	if cfg.Validator != nil {
		if err := cfg.Validator(value); err != nil {
			return "", err
		}
	}
	return value, nil
}

func (s *Script) TextArea(ctx context.Context, cfg InputConfig) (string, error) {
	return s.Input(ctx, cfg)
}

func (s *Script) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Confirms) == 0 {
		return false, fmt.Errorf("%w: confirm %q", ErrScriptExhausted, cfg.Message)
	}
	value := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return value, nil
}

func (s *Script) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(cfg.Options) == 0 {
		return -1, ErrNoOptions
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Selects) == 0 {
		return -1, fmt.Errorf("%w: select %q", ErrScriptExhausted, cfg.Message)
	}
	idx := s.Selects[0]
	s.Selects = s.Selects[1:]
	if idx < 0 || idx >= len(cfg.Options) {
		return -1, fmt.Errorf("prompt: scripted index %d out of range for %q", idx, cfg.Message)
	}
	return idx, nil
}

func (s *Script) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.Messages = append(s.Messages, msg)
	s.mu.Unlock()
	return nil
}
