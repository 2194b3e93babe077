package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"personachat/internal/usecase"
)

// sendCmd dispatches text to the conversation in a background command. The
// engine's own pending guard rejects double submissions; the TUI additionally
// disables the input while waiting.
func sendCmd(conv *usecase.Conversation, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := conv.SendMessage(context.Background(), text)
		return sendDoneMsg{
			conversation: conv.ID().String(),
			reply:        reply,
			err:          err,
		}
	}
}

// clearCmd resets the conversation history.
func clearCmd(conv *usecase.Conversation) tea.Cmd {
	return func() tea.Msg {
		return clearedMsg{err: conv.ClearHistory()}
	}
}
