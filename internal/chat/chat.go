package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"newslens/internal/core"
	"newslens/internal/retrieval"
)

// Generator produces a free-text answer from a context window and question.
// It is the external generation collaborator; the loop below never calls it
// without an explicit window.
type Generator interface {
	Answer(ctx context.Context, window core.ContextWindow, question string) (string, error)
}

// Options bounds the context window handed to the generator.
type Options struct {
	RetrievalK      int
	MaxContextItems int
	MaxHistoryTurns int
}

// Handler manages the interactive question loop over the day's indexed news.
type Handler struct {
	retriever *retrieval.Retriever
	generator Generator
	opts      Options
	in        *bufio.Scanner
	out       io.Writer
	history   []core.ChatTurn
}

// NewHandler creates a chat handler reading questions from in and writing
// responses to out.
func NewHandler(retriever *retrieval.Retriever, generator Generator, opts Options, in io.Reader, out io.Writer) *Handler {
	return &Handler{
		retriever: retriever,
		generator: generator,
		opts:      opts,
		in:        bufio.NewScanner(in),
		out:       out,
		history:   make([]core.ChatTurn, 0),
	}
}

// Ask answers a single question: retrieve, build a bounded window, generate.
// The completed turn is appended to the handler's history.
func (h *Handler) Ask(ctx context.Context, question string) (string, error) {
	items, err := h.retriever.Retrieve(ctx, question, h.opts.RetrievalK)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	window := BuildContext(items, h.history, h.opts.MaxContextItems, h.opts.MaxHistoryTurns)

	answer, err := h.generator.Answer(ctx, window, question)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	h.history = append(h.history, core.ChatTurn{
		Question: question,
		Answer:   answer,
		AskedAt:  time.Now().UTC(),
	})
	return answer, nil
}

// History returns the completed turns so far.
func (h *Handler) History() []core.ChatTurn {
	return h.history
}

// Run drives the interactive loop until EOF or an exit command.
func (h *Handler) Run(ctx context.Context) error {
	fmt.Fprintln(h.out, "Ask about today's news. Commands: /help /history /exit")

	for {
		fmt.Fprint(h.out, "You: ")
		if !h.in.Scan() {
			break
		}

		input := strings.TrimSpace(h.in.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if done := h.handleCommand(input); done {
				break
			}
			continue
		}
		if strings.EqualFold(input, "quit") || strings.EqualFold(input, "exit") {
			break
		}

		answer, err := h.Ask(ctx, input)
		if err != nil {
			fmt.Fprintf(h.out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(h.out, "\nAssistant: %s\n\n", answer)
	}

	return h.in.Err()
}

func (h *Handler) handleCommand(command string) (done bool) {
	switch strings.Fields(command)[0] {
	case "/help":
		fmt.Fprintln(h.out, "  /help     - show this help")
		fmt.Fprintln(h.out, "  /history  - show the conversation so far")
		fmt.Fprintln(h.out, "  /exit     - end the session")
	case "/history":
		if len(h.history) == 0 {
			fmt.Fprintln(h.out, "No questions asked yet.")
			return false
		}
		for _, turn := range h.history {
			fmt.Fprintf(h.out, "You: %s\nAssistant: %s\n", turn.Question, turn.Answer)
		}
	case "/exit":
		return true
	default:
		fmt.Fprintf(h.out, "Unknown command: %s. Type /help for available commands.\n", command)
	}
	return false
}
