package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/killallgit/chatkit/pkg/chat"
	"github.com/killallgit/chatkit/pkg/runtime"
	"github.com/killallgit/chatkit/pkg/session"
)

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	toolStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	followUpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// runApp drives a line-oriented chat loop over the session manager.
func runApp(ctx context.Context, manager *session.Manager) error {
	manager.Initialize(ctx)

	state := manager.State()
	if state.Err != "" {
		fmt.Println(errorStyle.Render("warning: " + state.Err))
	}
	printHistory(state.Messages)

	// Print streamed content incrementally: token events carry the full
	// accumulated text, so only the unseen suffix is written.
	var printed int
	manager.Subscribe(func(s runtime.State) {
		if !s.IsGenerating || s.CurrentAssistantID == "" {
			return
		}
		idx := chat.FindMessage(s.Messages, s.CurrentAssistantID)
		if idx < 0 {
			return
		}
		content := s.Messages[idx].Content
		if len(content) > printed {
			fmt.Print(content[printed:])
			printed = len(content)
		}
	})

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, manager, line); quit {
				return nil
			}
			continue
		}

		printed = 0
		if err := manager.SendMessage(ctx, line); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			continue
		}
		fmt.Println()

		final := manager.State()
		printToolInvocations(final.Messages)
		for _, prompt := range final.FollowUpPrompts {
			fmt.Println(followUpStyle.Render("suggested: " + prompt))
		}
	}
}

func runCommand(ctx context.Context, manager *session.Manager, line string) bool {
	switch {
	case line == "/quit" || line == "/exit":
		return true

	case line == "/clear":
		manager.ClearChat(session.ClearOptions{KeepStarter: true, CreateNewThread: true})
		fmt.Println("conversation cleared")

	case line == "/agents":
		state := manager.State()
		if state.Metadata == nil {
			fmt.Println(errorStyle.Render("no metadata loaded"))
			break
		}
		for _, agent := range state.Metadata.Agents {
			fmt.Printf("%s\t%s\n", agent.Key, agent.Description)
		}

	case strings.HasPrefix(line, "/agent "):
		manager.SetAgent(strings.TrimSpace(strings.TrimPrefix(line, "/agent ")))
		fmt.Println("switched agent, new thread started")

	case line == "/threads":
		page := manager.GetThreads(ctx, 20, 0, "")
		for _, thread := range page.Threads {
			fmt.Printf("%s\t%s\n", thread.ThreadID, thread.Preview)
		}

	case strings.HasPrefix(line, "/load "):
		manager.LoadThread(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/load ")))
		printHistory(manager.State().Messages)

	default:
		fmt.Println("commands: /agents /agent <key> /threads /load <id> /clear /quit")
	}
	return false
}

func printHistory(messages []chat.Message) {
	for _, msg := range messages {
		if msg.IsUser() {
			fmt.Println(promptStyle.Render("> ") + msg.Content)
			continue
		}
		if msg.Content != "" {
			fmt.Println(msg.Content)
		}
		for _, inv := range msg.ToolInvocations {
			fmt.Println(toolStyle.Render(fmt.Sprintf("[%s] %v", inv.ToolName, inv.Result)))
		}
	}
}

func printToolInvocations(messages []chat.Message) {
	if len(messages) == 0 {
		return
	}
	last := messages[len(messages)-1]
	for _, inv := range last.ToolInvocations {
		fmt.Println(toolStyle.Render(fmt.Sprintf("[%s] %v", inv.ToolName, inv.Result)))
	}
}
