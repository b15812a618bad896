// Package tui walks the registration flow in a terminal. It drives the same
// models.State transitions as the web pages; only the rendering differs.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vatfiler/internal/registration/models"
	"vatfiler/internal/registration/view"
	dErrors "vatfiler/pkg/domain-errors"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	pillStyle     = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activePill    = pillStyle.Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
	modalStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2)
)

// Model is the bubbletea model for the walkthrough. The zero value is not
// usable; call New.
type Model struct {
	state  models.State
	copy   *view.Copy
	inputs []textinput.Model
	focus  int
	err    string

	submission *models.Submission
	quitting   bool
}

// New builds a model in the landing stage.
func New(c *view.Copy) Model {
	inputs := make([]textinput.Model, len(models.TextFields))
	for i, f := range models.TextFields {
		in := textinput.New()
		in.Prompt = "> "
		in.CharLimit = 254
		if f.IsSecret() {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		inputs[i] = in
	}
	return Model{state: models.NewState(), copy: c, inputs: inputs}
}

// State returns the flow state the model is showing.
func (m Model) State() models.State {
	return m.state
}

// Submission is set once register succeeded.
func (m Model) Submission() (models.Submission, bool) {
	if m.submission == nil {
		return models.Submission{}, false
	}
	return *m.submission, true
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateFocused(msg)
	}
	if key.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state.Stage {
	case models.StageLanding:
		if key.String() == "c" {
			m.apply(models.OpenChooser())
		}
		return m, nil

	case models.StageChoosing:
		return m.updateChooser(key)
	}
	return m.updateForm(key)
}

func (m Model) updateChooser(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.state.ModalVisible() {
		if key.String() == "c" {
			m.apply(models.OpenChooser())
		}
		return m, nil
	}
	switch key.String() {
	case "t":
		m.apply(models.ChooseAccount(models.ModeTaxpayer))
	case "a":
		m.apply(models.ChooseAccount(models.ModeAgent))
	case "esc":
		m.apply(models.CloseChooser())
	default:
		return m, nil
	}
	if m.state.Stage == models.StageForm {
		return m, m.focusInput(0)
	}
	return m, nil
}

func (m Model) updateForm(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "tab", "down":
		return m, m.focusInput((m.focus + 1) % len(m.inputs))
	case "shift+tab", "up":
		return m, m.focusInput((m.focus + len(m.inputs) - 1) % len(m.inputs))
	case "ctrl+t":
		next := models.ModeAgent
		if m.state.Mode == models.ModeAgent {
			next = models.ModeTaxpayer
		}
		m.apply(models.SelectMode(next))
		return m, nil
	case "ctrl+a":
		m.apply(models.ToggleAgreement())
		return m, nil
	case "ctrl+e":
		m.apply(models.ToggleSoftwareVAT())
		return m, nil
	case "ctrl+r":
		m.apply(models.ToggleSoftwareITSA())
		return m, nil
	case "enter":
		if !m.apply(models.Register()) {
			return m, nil
		}
		sub := m.state.Submission()
		m.submission = &sub
		return m, tea.Quit
	}
	return m.updateFocused(key)
}

// updateFocused forwards msg to the focused input and records its value.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state.Stage != models.StageForm {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	field := models.TextFields[m.focus]
	if v := m.inputs[m.focus].Value(); v != m.state.Fields.Get(field) {
		m.apply(models.SetField(field, v))
	}
	return m, cmd
}

func (m *Model) focusInput(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

// apply runs one event and keeps the error for display. It reports whether
// the event was accepted.
func (m *Model) apply(e models.Event) bool {
	next, err := m.state.Apply(e)
	if err != nil {
		m.err = userMessage(err)
		return false
	}
	m.state = next
	m.err = ""
	return true
}

func userMessage(err error) string {
	if de, ok := dErrors.As(err); ok {
		return de.Message
	}
	return err.Error()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	switch m.state.Stage {
	case models.StageLanding:
		m.viewLanding(&b, "c: "+m.copy.Hero.CTA)
	case models.StageChoosing:
		if m.state.ModalVisible() {
			b.WriteString(m.viewChooser())
		} else {
			m.viewLanding(&b, "c: "+m.copy.Hero.CTA)
		}
	case models.StageForm:
		m.viewForm(&b)
	}
	if m.err != "" {
		b.WriteString("\n" + errorStyle.Render(m.err) + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("ctrl+c: quit") + "\n")
	return b.String()
}

func (m Model) viewLanding(b *strings.Builder, action string) {
	b.WriteString(titleStyle.Render(m.copy.Hero.Title) + "\n")
	b.WriteString(m.copy.Hero.Subtitle + "\n\n")
	b.WriteString(hintStyle.Render(action) + "\n")
}

func (m Model) viewChooser() string {
	ch := m.copy.Chooser
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(ch.Title),
		"",
		"t: "+ch.Taxpayer,
		hintStyle.Render("   "+ch.TaxpayerHint),
		"a: "+ch.Agent,
		hintStyle.Render("   "+ch.AgentHint),
		"",
		hintStyle.Render("esc: "+ch.Close),
	)
	return modalStyle.Render(body) + "\n"
}

func (m Model) viewForm(b *strings.Builder) {
	mc := m.copy.ForMode(m.state.Mode)
	taxpayer, agent := pillStyle, pillStyle
	if m.state.Mode == models.ModeAgent {
		agent = activePill
	} else {
		taxpayer = activePill
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		taxpayer.Render(m.copy.ForMode(models.ModeTaxpayer).Pill),
		agent.Render(m.copy.ForMode(models.ModeAgent).Pill),
	) + "\n\n")
	b.WriteString(titleStyle.Render(mc.Heading) + "\n")
	b.WriteString(mc.Intro + "\n\n")

	for i, f := range models.TextFields {
		b.WriteString(mc.Labels[f] + "\n")
		b.WriteString(m.inputs[i].View() + "\n")
		if hint := mc.Hints[f]; hint != "" {
			b.WriteString(hintStyle.Render(hint) + "\n")
		}
	}

	fields := m.state.Fields
	b.WriteString("\n" + checkbox(fields.SoftwareVAT) + " " + m.copy.Interests.SoftwareVAT + hintStyle.Render("  (ctrl+e)") + "\n")
	b.WriteString(checkbox(fields.SoftwareITSA) + " " + m.copy.Interests.SoftwareITSA + hintStyle.Render("  (ctrl+r)") + "\n")
	b.WriteString(checkbox(fields.Agreement) + " " + m.copy.Agreement + hintStyle.Render("  (ctrl+a)") + "\n\n")

	register := "enter: " + mc.Register
	if !m.state.RegisterEnabled() {
		register = disabledStyle.Render(register)
	}
	b.WriteString(register + "\n")
	b.WriteString(hintStyle.Render("tab: next field  ctrl+t: switch account type") + "\n")
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
