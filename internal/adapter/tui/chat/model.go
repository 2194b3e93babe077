package chat

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"personachat/internal/adapter/catalog"
	"personachat/internal/adapter/tui/theme"
	"personachat/internal/domain"
	"personachat/internal/usecase"
)

const sidebarWidth = 28

// Deps are the collaborators injected into the chat model.
type Deps struct {
	Registry     *usecase.Registry
	Catalog      *catalog.Catalog
	ProviderType domain.ProviderType
	Model        string
	Logger       *slog.Logger
}

// Model is the root Bubble Tea model: persona sidebar, message viewport,
// input area, and a token-stats footer. All context-management invariants
// live in the usecase layer; this is rendering glue only.
type Model struct {
	deps Deps

	personas []domain.PersonaConfig
	cursor   int // sidebar cursor, indexes visiblePersonas()

	viewport  viewport.Model
	input     textarea.Model
	filter    textinput.Model
	filtering bool
	spinner   spinner.Model
	renderer  *glamour.TermRenderer

	sending  bool
	errText  string
	width    int
	height   int
	ready    bool
	quitting bool
}

// New creates the root chat model.
func New(deps Deps) Model {
	theme.InitSymbols()

	ta := textarea.New()
	ta.Placeholder = "Start a new message"
	ta.SetHeight(3)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	filter := textinput.New()
	filter.Placeholder = "filter personas"
	filter.CharLimit = 40

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return Model{
		deps:     deps,
		personas: deps.Catalog.Personas(),
		input:    ta,
		filter:   filter,
		spinner:  sp,
		renderer: renderer,
	}
}

// visiblePersonas applies the sidebar filter (case-insensitive substring
// match on name or handle).
func (m Model) visiblePersonas() []domain.PersonaConfig {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if query == "" {
		return m.personas
	}
	out := make([]domain.PersonaConfig, 0, len(m.personas))
	for _, p := range m.personas {
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Handle()), query) {
			out = append(out, p)
		}
	}
	return out
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chatWidth := m.width - sidebarWidth - 2
		if !m.ready {
			m.viewport = viewport.New(chatWidth, m.height-8)
			m.ready = true
		} else {
			m.viewport.Width = chatWidth
			m.viewport.Height = m.height - 8
		}
		m.input.SetWidth(chatWidth)
		m.refreshViewport()

	case tea.KeyMsg:
		if m.filtering {
			switch msg.String() {
			case "enter", "esc":
				m.filtering = false
				m.filter.Blur()
				m.input.Focus()
			case "ctrl+c":
				m.quitting = true
				return m, tea.Quit
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				if n := len(m.visiblePersonas()); m.cursor >= n && n > 0 {
					m.cursor = n - 1
				} else if n == 0 {
					m.cursor = 0
				}
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "ctrl+f":
			m.filtering = true
			m.input.Blur()
			m.filter.Focus()
			return m, textinput.Blink

		case "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
		case "ctrl+n":
			if m.cursor < len(m.visiblePersonas())-1 {
				m.cursor++
			}

		case "ctrl+s":
			// Switch to (or start) the conversation under the cursor.
			visible := m.visiblePersonas()
			if m.sending || len(visible) == 0 || m.cursor >= len(visible) {
				break
			}
			persona := visible[m.cursor]
			if _, err := m.deps.Registry.Start(persona, m.deps.ProviderType, m.deps.Model); err != nil {
				m.errText = domain.UserMessage(err)
				m.deps.Logger.Error("start conversation failed", "error", err)
				break
			}
			m.errText = ""
			m.refreshViewport()

		case "ctrl+l":
			if conv := m.deps.Registry.Selected(); conv != nil && !m.sending {
				return m, clearCmd(conv)
			}

		case "enter":
			conv := m.deps.Registry.Selected()
			if conv == nil || m.sending {
				break
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				break
			}
			m.sending = true
			m.errText = ""
			m.input.Reset()
			m.input.Blur()
			cmds = append(cmds, sendCmd(conv, text), m.spinner.Tick)
			m.refreshViewport()
		}

	case sendDoneMsg:
		m.sending = false
		m.input.Focus()
		if msg.err != nil {
			m.errText = domain.UserMessage(msg.err)
		}
		m.refreshViewport()

	case clearedMsg:
		if msg.err != nil {
			m.errText = domain.UserMessage(msg.err)
		}
		m.refreshViewport()

	case spinner.TickMsg:
		if m.sending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
			m.refreshViewport()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// refreshViewport re-renders the selected conversation into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	conv := m.deps.Registry.Selected()
	if conv == nil {
		m.viewport.SetContent("Select a persona (ctrl+p/ctrl+n) and press ctrl+s to start chatting.")
		return
	}

	var b strings.Builder
	for _, msg := range conv.Messages() {
		if msg.Role == domain.RoleSystem {
			continue
		}
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(theme.UserLabel.Render("you"))
			b.WriteString("  " + msg.Content + "\n\n")
		case domain.RoleAssistant:
			rendered := msg.Content
			if m.renderer != nil {
				if out, err := m.renderer.Render(msg.Content); err == nil {
					rendered = strings.TrimSpace(out)
				}
			}
			b.WriteString(rendered + "\n\n")
		}
	}
	if m.sending {
		b.WriteString(m.spinner.View() + " Sending message...\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading..."
	}

	sidebar := m.renderSidebar()
	chat := m.renderChat()

	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, chat)
}

func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString("Personas\n")
	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View() + "\n\n")
	} else {
		b.WriteString(theme.Muted.Render("ctrl+f to filter") + "\n\n")
	}
	selected := m.deps.Registry.Selected()
	for i, p := range m.visiblePersonas() {
		line := p.Name + " " + theme.Muted.Render("@"+p.Handle())
		if selected != nil && selected.ID().Persona == p.Handle() {
			line = theme.SymbolSelected + " " + line
		}
		if i == m.cursor {
			line = theme.ActiveItem.Render(theme.SymbolCursor + " " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return theme.Sidebar.Width(sidebarWidth).Height(m.height - 2).Render(b.String())
}

func (m Model) renderChat() string {
	var footer string
	if conv := m.deps.Registry.Selected(); conv != nil {
		stats := conv.ContextStats()
		footer = theme.Muted.Render(fmt.Sprintf(
			"Used: %d tokens %s Remaining: %d tokens %s ctrl+l clear %s esc quit",
			stats.TotalTokens, theme.SymbolBullet, stats.RemainingCapacity, theme.SymbolBullet, theme.SymbolBullet,
		))
	} else {
		footer = theme.Muted.Render(fmt.Sprintf(
			"ctrl+p/ctrl+n select %s ctrl+s start %s esc quit",
			theme.SymbolBullet, theme.SymbolBullet,
		))
	}

	parts := []string{m.viewport.View(), m.input.View(), footer}
	if m.errText != "" {
		parts = append(parts, theme.ErrorText.Render(m.errText))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
