// ABOUTME: CLI command to chat with a project's data
// ABOUTME: One-shot question or interactive REPL with live streaming output
package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/harper/querychat/internal/core"
	"github.com/harper/querychat/internal/models"
	"github.com/spf13/cobra"
)

var (
	chatConversation string
)

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask questions about a project's data",
		Long: `Ask questions about a project's data.

With a question, runs one turn and exits. Without one, starts an
interactive session; type /new for a fresh conversation and /quit
to leave.

The model answers in text and may propose SQL queries, which are
run against the project and shown as tables.

Examples:
  querychat chat -p sales "which region sold the most?"
  querychat chat -p sales --conversation 3f2a...
  querychat chat -p sales --format json "count the orders"`,
		RunE: runChat,
	}

	cmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "Continue an existing conversation")

	return cmd
}

// streamPrinter writes the display text of a streaming reply as it grows
type streamPrinter struct {
	core.NopObserver

	mu      sync.Mutex
	out     io.Writer
	printed string
}

func (p *streamPrinter) OnStreamUpdate(state models.StreamingState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emit(core.StripCommands(state.StreamingContent))
}

// emit prints the part of text not yet shown; rewrites of shown text are skipped
func (p *streamPrinter) emit(text string) {
	if !strings.HasPrefix(text, p.printed) {
		return
	}
	fmt.Fprint(p.out, text[len(p.printed):])
	p.printed = text
}

func (p *streamPrinter) reset() {
	p.mu.Lock()
	p.printed = ""
	p.mu.Unlock()
}

func (p *streamPrinter) finish(clean string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emit(clean)
	fmt.Fprintln(p.out)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := &streamPrinter{out: cmd.OutOrStdout()}
	var observer core.TurnObserver
	if !wantJSON() {
		observer = printer
	}

	orch := a.NewOrchestrator(observer)
	orch.SelectProject(ctx, p.ID)
	if chatConversation != "" {
		conv, err := orch.LoadConversation(ctx, chatConversation)
		if err != nil {
			return err
		}
		if !quiet && !wantJSON() {
			fmt.Fprintf(cmd.OutOrStdout(), "Continuing %q (%d messages)\n", conv.Title, len(conv.Messages))
		}
	}

	if len(args) > 0 {
		return askOnce(ctx, cmd, orch, printer, strings.Join(args, " "))
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Chatting with %s. /new starts a new conversation, /quit exits.\n", p.Name)
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.OutOrStdout(), "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(cmd.OutOrStdout())
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			orch.NewConversation()
			fmt.Fprintln(cmd.OutOrStdout(), "Started a new conversation")
			continue
		}

		if err := askOnce(ctx, cmd, orch, printer, line); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, core.ErrTurnAbandoned) {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
}

func askOnce(ctx context.Context, cmd *cobra.Command, orch *core.Orchestrator, printer *streamPrinter, question string) error {
	printer.reset()
	res, err := orch.Submit(ctx, question)
	if err != nil {
		return err
	}

	if wantJSON() {
		return printJSON(cmd, map[string]any{
			"conversationId": res.ConversationID,
			"messageId":      res.AssistantMessage.ID,
			"intent":         res.Intent,
			"answer":         res.CleanText,
			"results":        res.Results,
		})
	}

	printer.finish(res.CleanText)
	for _, v := range res.Results {
		renderVisualization(cmd.OutOrStdout(), v)
	}
	return nil
}
