// Package chat is the interactive terminal front end: a scrollback of
// messages, an input line and a spinner while an answer is prepared.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"medikacom/kgrag/internal/answer"
)

const (
	Title    = "Chatbot Informasi SMK MedikaCom"
	Welcome  = "Selamat datang! Saya adalah chatbot yang dapat membantu Anda menemukan informasi seputar SMK Medikacom Bandung. Silakan ajukan pertanyaan Anda mengenai jurusan, biaya, sejarah, visi misi, atau informasi lainnya."
	Greeting = "Halo! Ada yang bisa saya bantu terkait SMK Medikacom?"
	NoMatch  = "Hmm, sepertinya saya tidak menemukan informasi yang sangat cocok di database."
	Thinking = "Mencari informasi dan menyiapkan jawaban..."
)

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleInfo      Role = "info"
)

// Message is one scrollback entry.
type Message struct {
	Role    Role
	Content string
}

// Asker answers a question; answer.Pipeline is the production one.
type Asker interface {
	Ask(ctx context.Context, question string) answer.Result
}

// answerMsg delivers a finished answer. Session ties it to the
// conversation it was asked in, so answers arriving after a reset are dropped.
type answerMsg struct {
	session int
	result  answer.Result
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	ctx      context.Context
	asker    Asker
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	messages []Message
	session  int
	busy     bool
	ready    bool
	width    int
}

// New creates a chat model starting with the greeting.
func New(ctx context.Context, asker Asker) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Tulis pertanyaanmu di sini..."
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:      ctx,
		asker:    asker,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		messages: greeting(),
	}
}

func greeting() []Message {
	return []Message{{Role: RoleAssistant, Content: Greeting}}
}

// Messages returns the scrollback.
func (m Model) Messages() []Message { return m.messages }

// Busy reports whether an answer is pending.
func (m Model) Busy() bool { return m.busy }

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles keys, window size, spinner ticks and answers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, fh := historyStyle.GetFrameSize()
		// title, welcome, status and input lines plus spacing
		vh := msg.Height - fh - 8
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, vh)
		m.input.Width = max(10, msg.Width-4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlR:
			m.session++
			m.busy = false
			m.messages = greeting()
			m.input.Reset()
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.messages = append(m.messages, Message{Role: RoleUser, Content: q})
			m.input.Reset()
			m.busy = true
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		if msg.session != m.session {
			return m, nil
		}
		m.busy = false
		if len(msg.result.Blocks) == 0 {
			m.messages = append(m.messages, Message{Role: RoleInfo, Content: NoMatch})
		}
		m.messages = append(m.messages, Message{Role: RoleAssistant, Content: msg.result.Answer})
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		return answerMsg{session: session, result: m.asker.Ask(m.ctx, question)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// View renders the chat.
func (m Model) View() string {
	if !m.ready {
		return "Memuat..."
	}
	status := helpStyle.Render("enter kirim · ctrl+r mulai ulang · pgup/pgdn gulir · esc keluar")
	if m.busy {
		status = m.spinner.View() + " " + statusStyle.Render(Thinking)
	}
	return strings.Join([]string{
		titleStyle.Render(Title),
		welcomeStyle.Width(max(20, m.width-2)).Render(Welcome),
		historyStyle.Render(m.viewport.View()),
		inputStyle.Render(m.input.View()),
		status,
	}, "\n")
}

func (m Model) renderHistory() string {
	wrap := lipgloss.NewStyle().Width(max(16, m.viewport.Width-2))
	parts := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		switch msg.Role {
		case RoleUser:
			parts = append(parts, userStyle.Render("Anda")+"\n"+wrap.Render(msg.Content))
		case RoleInfo:
			parts = append(parts, infoStyle.Render(wrap.Render(msg.Content)))
		default:
			parts = append(parts, assistantStyle.Render("Asisten")+"\n"+wrap.Render(msg.Content))
		}
	}
	return strings.Join(parts, "\n\n")
}

// Run starts the chat full screen and blocks until the user quits.
func Run(ctx context.Context, asker Asker) error {
	_, err := tea.NewProgram(New(ctx, asker), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	welcomeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	historyStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	infoStyle      = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("11"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
