package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/flux-life/flux-planner/internal/llm"
	"github.com/flux-life/flux-planner/internal/planner"
)

const quitCommand = "/quit"

// session drives one planner agent from a line-oriented reader.
type session struct {
	agent *planner.Agent
	path  string
}

// openSession restores the agent saved at path, or starts a new one when
// path is empty or does not exist yet.
func openSession(path, userID string, gateway llm.Gateway, logger *slog.Logger) (*session, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			a, err := planner.Restore(data, gateway, logger)
			if err != nil {
				return nil, fmt.Errorf("resume %s: %w", path, err)
			}
			return &session{agent: a, path: path}, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
	}
	return &session{agent: planner.New(uuid.NewString(), userID, gateway, logger), path: path}, nil
}

func (s *session) run(ctx context.Context, in io.Reader, out io.Writer, provider string) error {
	fmt.Fprintln(out, renderBanner(provider, s.agent))
	if n := len(s.agent.Messages); n > 0 {
		fmt.Fprintln(out, renderAssistant(s.agent.Messages[n-1].Content))
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, renderPrompt())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == quitCommand {
			return nil
		}

		turn, err := s.step(ctx, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderTurn(turn))

		if err := s.save(); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *session) step(ctx context.Context, line string) (planner.Turn, error) {
	if len(s.agent.Messages) == 0 && s.agent.State == domain.StateIdle {
		return s.agent.Start(ctx, line)
	}
	return s.agent.ProcessMessage(ctx, line)
}

func (s *session) save() error {
	if s.path == "" {
		return nil
	}
	data, err := s.agent.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
