package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
)

// AskFunc answers a question against the files loaded at startup.
type AskFunc func(ctx context.Context, question string) (*domain.Answer, error)

type answerMsg struct {
	answer *domain.Answer
	err    error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ask      AskFunc
	input    textinput.Model
	viewport viewport.Model
	answers  []domain.Answer
	files    string
	status   string
	cursor   int
	ready    bool
	busy     bool
}

// New creates a new TUI model instance. files is shown under the header.
func New(ask AskFunc, files []string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ask:      ask,
		input:    ti,
		viewport: vp,
		files:    "Files: " + strings.Join(files, ", "),
		status:   "Loaded. Type a question.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.ask(context.Background(), question)
		return answerMsg{answer: ans, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + files
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentAnswer())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.answers = append(m.answers, *msg.answer)
		m.cursor = len(m.answers) - 1
		m.status = fmt.Sprintf("Answer from file: %s (score: %.4f)", msg.answer.FileName, msg.answer.Score)
		m.viewport.SetContent(m.renderCurrentAnswer())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.status = "Please enter a question."
				return m, nil
			}
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = fmt.Sprintf("Asking %q...", q)
			m.input.SetValue("")
			return m, m.askCmd(q)
		case "up":
			if len(m.answers) > 0 {
				m.cursor = (m.cursor - 1 + len(m.answers)) % len(m.answers)
				m.viewport.SetContent(m.renderCurrentAnswer())
				return m, nil
			}
		case "down":
			if len(m.answers) > 0 {
				m.cursor = (m.cursor + 1) % len(m.answers)
				m.viewport.SetContent(m.renderCurrentAnswer())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Q&A")
	files := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.files)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + files + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentAnswer() string {
	if len(m.answers) == 0 {
		return "No answers yet."
	}
	a := m.answers[m.cursor]
	title := fmt.Sprintf("Answer %d/%d  file=%s  score=%.4f", m.cursor+1, len(m.answers), a.FileName, a.Score)
	question := lipgloss.NewStyle().Italic(true).Render("Q: " + a.Question)
	return title + "\n" + question + "\n\n" + highlightBestSentence(a.Text, a.Question)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasises the sentence sharing the most words with the question.
// Everything outside the highlighted sentence is returned byte for byte.
func highlightBestSentence(text, query string) string {
	qTokens := toTokenSet(query)
	if strings.TrimSpace(text) == "" || len(qTokens) == 0 {
		return text
	}
	bestIdx, bestScore := -1, 0
	spans := sentenceSpans(text)
	for i, sp := range spans {
		if score := tokenOverlapScore(qTokens, text[sp[0]:sp[1]]); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return text
	}
	seg := text[spans[bestIdx][0]:spans[bestIdx][1]]
	sent := strings.TrimSpace(seg)
	from := spans[bestIdx][0] + strings.Index(seg, sent)
	to := from + len(sent)

	lines := strings.Split(sent, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = highlightStyle.Render(l)
		}
	}
	return text[:from] + strings.Join(lines, "\n") + text[to:]
}

// sentenceSpans returns byte ranges of the sentences in text; trailing text without
// closing punctuation counts as a final sentence.
func sentenceSpans(text string) [][]int {
	spans := sentenceRe.FindAllStringIndex(text, -1)
	tail := 0
	if n := len(spans); n > 0 {
		tail = spans[n-1][1]
	}
	if strings.TrimSpace(text[tail:]) != "" {
		spans = append(spans, []int{tail, len(text)})
	}
	return spans
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
