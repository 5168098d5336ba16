package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/pkg/gallery"
	"github.com/matzehuels/flowsketch/pkg/llm"
)

// chatCommand creates the interactive shell.
func (c *CLI) chatCommand() *cobra.Command {
	var (
		category string
		template string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive diagramming shell",
		Long: `Start an interactive shell. Describe a diagram and refine it through conversation;
slash commands attach sketches, recolour, render and export without leaving the shell.
Type /help inside the shell for the full list.`,
		Example: `  flowsketch chat
  flowsketch chat --category sequence
  flowsketch chat --template er -o ./diagrams`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.newSession(ctx, output)
			if err != nil {
				return err
			}
			defer s.Runner.Close()

			if category != "" {
				if out := s.Handle(ctx, "/category "+category); len(out.entries) > 0 && out.entries[0].kind == entryError {
					return fmt.Errorf("%s", out.entries[0].text)
				}
			}
			var intro []entry
			if template != "" {
				if _, err := gallery.Get(template); err != nil {
					return err
				}
				intro = s.Handle(ctx, "/gallery "+template).entries
			}

			m := newChatModel(ctx, s, llm.String(s.Gateway.Provider))
			m.transcript = append(m.transcript, intro...)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "preferred diagram type")
	cmd.Flags().StringVar(&template, "template", "", "start from a gallery template")
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory for /export (default: current directory)")

	return cmd
}

// newSession wires a chat session to the configured providers and renderers.
func (c *CLI) newSession(ctx context.Context, outputDir string) (*Session, error) {
	gw, err := c.newGateway(ctx)
	if err != nil {
		return nil, err
	}
	runner, err := c.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	host := c.newEnv(outputDir)
	return &Session{
		Gateway: gw,
		Runner:  runner,
		Env:     host,
		Patcher: c.newPatcher(),
		Options: c.pipelineOptions(host),
		Locale:  c.Config.UI.Locale,
	}, nil
}

// =============================================================================
// Model
// =============================================================================

var (
	chatPrompt   = lipgloss.NewStyle().Foreground(colorBlue).Render("> ")
	chatReply    = lipgloss.NewStyle().Foreground(colorWhite)
	chatDiagram  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(colorCyan).PaddingLeft(1)
	chatStatus   = lipgloss.NewStyle().Foreground(colorDim)
	chatHeadline = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
)

// handledMsg carries the outcome of an input handled in the background and
// the session category as it stood afterwards.
type handledMsg struct {
	out      outcome
	category string
	err      error
}

type chatModel struct {
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	session    *Session
	provider   string
	category   string
	transcript []entry

	busy      bool
	status    string
	startTime time.Time

	ctx      context.Context
	cancelFn context.CancelFunc

	width, height int
	ready         bool
}

func newChatModel(ctx context.Context, s *Session, provider string) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Describe a diagram, or /help"
	ta.Focus()
	ta.CharLimit = 0
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleIconSpinner

	return chatModel{
		textarea: ta,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		session:  s,
		provider: provider,
		category: s.Category,
		ctx:      ctx,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textarea.SetWidth(max(msg.Width-4, 20))
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-m.textarea.Height()-3, 3)
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.cancelFn != nil {
				m.cancelFn()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.busy && m.cancelFn != nil {
				m.cancelFn()
				m.transcript = append(m.transcript, entry{kind: entryWarning, text: "interrupted"})
				m.refresh()
			}
			return m, nil

		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m.submit(input)
		}

		if !m.busy {
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}

	case handledMsg:
		m.busy = false
		m.cancelFn = nil
		m.textarea.Focus()
		m.category = msg.category
		if msg.err == nil {
			m.transcript = append(m.transcript, msg.out.entries...)
		}
		m.refresh()
		if msg.out.quit {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// submit echoes input and handles it in the background. Input is disabled
// until the result arrives.
func (m chatModel) submit(input string) (tea.Model, tea.Cmd) {
	if !strings.HasPrefix(input, "/") {
		m.transcript = append(m.transcript, entry{kind: entryUser, text: input})
	}
	m.busy = true
	m.status = m.session.Busy(input)
	m.startTime = time.Now()
	m.textarea.Blur()
	m.refresh()

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelFn = cancel
	s := m.session
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		defer cancel()
		out := s.Handle(ctx, input)
		return handledMsg{out: out, category: s.Category, err: ctx.Err()}
	})
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *chatModel) refresh() {
	if !m.ready {
		return
	}
	width := max(m.viewport.Width-2, 20)
	var b strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(renderEntry(e, width))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func renderEntry(e entry, width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	switch e.kind {
	case entryUser:
		return chatPrompt + wrap.Width(width-2).Render(e.text)
	case entryReply:
		return wrap.Inherit(chatReply).Render(e.text)
	case entryDiagram:
		return chatDiagram.Render(e.text)
	case entrySuccess:
		return styleIconSuccess.Render(iconSuccess) + " " + e.text
	case entryWarning:
		return styleIconWarning.Render(iconWarning) + " " + styleWarning.Render(e.text)
	case entryError:
		return styleIconError.Render(iconError) + " " + styleError.Render(e.text)
	default:
		return styleDim.Render(e.text)
	}
}

func (m chatModel) View() string {
	if !m.ready {
		return "\n  starting…"
	}

	header := chatHeadline.Render(appName) + chatStatus.Render(" · "+m.provider)
	if m.category != "" {
		header += chatStatus.Render(" · " + m.category)
	}

	var footer string
	if m.busy {
		elapsed := time.Since(m.startTime).Round(time.Second)
		footer = m.spinner.View() + " " + chatStatus.Render(fmt.Sprintf("%s %s · esc to cancel", m.status, elapsed))
	} else {
		footer = chatPrompt + m.textarea.View()
	}

	return header + "\n" + m.viewport.View() + "\n" + footer
}
