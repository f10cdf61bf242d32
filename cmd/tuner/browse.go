package main

import (
	"Tuner/internal/logging"
	"Tuner/internal/models"
	"Tuner/internal/render"
	"Tuner/internal/selection"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newBrowseCommand(e *env) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Pick a vehicle interactively and compare its tuning stages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The terminal belongs to the UI, so logs go to a file or nowhere.
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			logger := logging.NewLogger(w, slog.LevelDebug)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			model := newBrowseModel(ctx, e.newMachine(logger), defaultStyles())
			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file while the UI runs")
	return cmd
}

type focus int

const (
	focusBrands focus = iota
	focusModels
	focusTypes
	focusEngines
	focusStages
)

// stateMsg carries the snapshot taken when a machine operation returns.
type stateMsg struct{ state selection.State }

// changedMsg carries the snapshot taken after a change notification. Only
// this message re-arms the single change waiter.
type changedMsg struct{ state selection.State }

type browseModel struct {
	ctx     context.Context
	machine *selection.Machine
	state   selection.State
	focus   focus
	cursor  int
	styles  styles
}

func newBrowseModel(ctx context.Context, machine *selection.Machine, st styles) browseModel {
	return browseModel{
		ctx:     ctx,
		machine: machine,
		state:   machine.Snapshot(),
		styles:  st,
	}
}

func (b browseModel) Init() tea.Cmd {
	return tea.Batch(b.run(b.machine.LoadBrands), b.waitForChange())
}

// run executes a machine operation off the UI loop.
func (b browseModel) run(op func(ctx context.Context)) tea.Cmd {
	return func() tea.Msg {
		op(b.ctx)
		return stateMsg{b.machine.Snapshot()}
	}
}

func (b browseModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.machine.Changed():
			return changedMsg{b.machine.Snapshot()}
		case <-b.ctx.Done():
			return nil
		}
	}
}

// options returns the labels listed at the focused level.
func (b browseModel) options() []string {
	var labels []string
	switch b.focus {
	case focusBrands:
		for _, brand := range b.state.Brands {
			labels = append(labels, brand.Name)
		}
	case focusModels:
		for _, model := range b.state.Models {
			labels = append(labels, model.Name)
		}
	case focusTypes:
		for _, chassisType := range b.state.Types {
			labels = append(labels, chassisType.Name)
		}
	case focusEngines:
		for _, engine := range b.state.FilteredEngines() {
			labels = append(labels, engineLabel(engine))
		}
	}
	return labels
}

func (b browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		b.state = msg.state
		b.clampCursor()
		return b, nil

	case changedMsg:
		b.state = msg.state
		b.clampCursor()
		return b, b.waitForChange()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return b, tea.Quit
		case "up", "k":
			b.cursor--
			b.clampCursor()
		case "down", "j":
			b.cursor++
			b.clampCursor()
		case "enter":
			return b.selectCurrent()
		case "f":
			b.cycleEngineType()
		case "esc", "backspace":
			if b.focus > focusBrands {
				b.focus--
				b.cursor = 0
			}
		case "r":
			b.machine.Reset()
			b.state = b.machine.Snapshot()
			b.focus = focusBrands
			b.cursor = 0
		}
	}
	return b, nil
}

func (b *browseModel) clampCursor() {
	n := len(b.options())
	if b.cursor >= n {
		b.cursor = n - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
}

func (b browseModel) selectCurrent() (tea.Model, tea.Cmd) {
	if b.cursor >= len(b.options()) {
		return b, nil
	}
	var cmd tea.Cmd
	switch b.focus {
	case focusBrands:
		brand := b.state.Brands[b.cursor]
		cmd = b.run(func(ctx context.Context) { b.machine.SelectBrand(ctx, brand) })
	case focusModels:
		id := b.state.Models[b.cursor].Id
		cmd = b.run(func(ctx context.Context) { b.machine.SelectModel(ctx, id) })
	case focusTypes:
		id := b.state.Types[b.cursor].Id
		cmd = b.run(func(ctx context.Context) { b.machine.SelectType(ctx, id) })
	case focusEngines:
		id := b.state.FilteredEngines()[b.cursor].Id
		cmd = b.run(func(ctx context.Context) { b.machine.SelectEngine(ctx, id) })
	default:
		return b, nil
	}
	b.focus++
	b.cursor = 0
	return b, cmd
}

// cycleEngineType steps the filter through "all" and each available tag.
func (b *browseModel) cycleEngineType() {
	if b.focus < focusEngines {
		return
	}
	options := append([]string{""}, b.state.EngineTypeOptions()...)
	next := options[0]
	for i, option := range options {
		if option == b.state.EngineTypeFilter {
			next = options[(i+1)%len(options)]
			break
		}
	}
	b.machine.SetEngineTypeFilter(next)
	b.state = b.machine.Snapshot()
	b.focus = focusEngines
	b.cursor = 0
}

func (b browseModel) View() string {
	var sb strings.Builder
	st := b.styles

	sb.WriteString(st.Header.Render("Tuning Calculator") + "\n")
	sb.WriteString(st.Muted.Render("Find the best performance package for your vehicle.") + "\n\n")

	if b.state.SelectedBrand == nil || b.focus == focusBrands {
		sb.WriteString(st.Title.Render("1. Select Manufacturer") + "\n")
		if b.state.Loading && len(b.state.Brands) == 0 {
			sb.WriteString(st.Info.Render("Loading brands...") + "\n")
		} else {
			sb.WriteString(b.renderList(focusBrands))
		}
		sb.WriteString("\n" + b.help())
		return sb.String()
	}

	sb.WriteString(st.Title.Render(b.state.SelectedBrand.Name+" Configuration") + "\n\n")
	sb.WriteString(st.Title.Render("2. Vehicle Selection") + "\n")
	sb.WriteString(b.renderLevel("Model", focusModels, selectedName(b.state.SelectedModel, func(v models.Model) string { return v.Name })))
	if len(b.state.Types) > 0 {
		sb.WriteString(b.renderLevel("Chassis", focusTypes, selectedName(b.state.SelectedType, func(v models.ChassisType) string { return v.Name })))
	}
	if b.state.SelectedType != nil && len(b.state.EngineTypeOptions()) > 0 {
		filter := b.state.EngineTypeFilter
		if filter == "" {
			filter = "All Types"
		}
		sb.WriteString(st.Muted.Render("Engine Type: ") + filter + st.Muted.Render("  (f to change)") + "\n")
	}
	if b.state.SelectedModel != nil {
		if len(b.state.FilteredEngines()) > 0 {
			sb.WriteString(b.renderLevel("Engine Variant", focusEngines, selectedName(b.state.SelectedEngine, engineLabel)))
		} else if b.state.SelectedType != nil && !b.state.Loading {
			sb.WriteString(st.Error.Render("No engines found for the selected model and type.") + "\n")
		}
	}
	if b.state.Loading {
		sb.WriteString("\n" + st.Info.Render("Loading options...") + "\n")
	}

	if b.state.SelectedEngine != nil {
		sb.WriteString("\n" + st.Title.Render("3. Performance Stages") + "\n")
		if len(b.state.Stages) == 0 && !b.state.Loading {
			sb.WriteString(st.Warning.Render("No performance packages currently available for the selected engine.") + "\n")
		}
		for _, stage := range b.state.Stages {
			sb.WriteString(renderCard(render.Stage(stage), st) + "\n")
		}
	}

	sb.WriteString("\n" + b.help())
	return sb.String()
}

func selectedName[T any](v *T, nameOf func(T) string) string {
	if v == nil {
		return ""
	}
	return nameOf(*v)
}

// renderLevel shows the option list for the focused level and the chosen
// value for the others.
func (b browseModel) renderLevel(label string, level focus, chosen string) string {
	if b.focus == level {
		return b.styles.Muted.Render(label) + "\n" + b.renderList(level)
	}
	if chosen == "" {
		chosen = "-- Select " + label + " --"
	}
	return b.styles.Muted.Render(label+": ") + chosen + "\n"
}

func (b browseModel) renderList(level focus) string {
	var sb strings.Builder
	for i, label := range b.options() {
		if level == b.focus && i == b.cursor {
			sb.WriteString(b.styles.Cursor.Render("> "+label) + "\n")
			continue
		}
		sb.WriteString("  " + label + "\n")
	}
	return sb.String()
}

func (b browseModel) help() string {
	return b.styles.Muted.Render("↑/↓ move • enter select • f engine type • esc back • r change vehicle • q quit")
}

type styles struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Cursor  lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Gain    lipgloss.Style
	Tuned   lipgloss.Style
	Card    lipgloss.Style
}

var (
	primary     = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#8a94a6")
	warning     = lipgloss.Color("#FFC107")
	destructive = lipgloss.Color("#e53935")
	info        = lipgloss.Color("#2196F3")
)

func defaultStyles() styles {
	return styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(primary),
		Title:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Cursor:  lipgloss.NewStyle().Bold(true).Foreground(primary),
		Info:    lipgloss.NewStyle().Foreground(info),
		Warning: lipgloss.NewStyle().Foreground(warning),
		Error:   lipgloss.NewStyle().Foreground(destructive),
		Gain:    lipgloss.NewStyle().Bold(true).Foreground(primary),
		Tuned:   lipgloss.NewStyle().Bold(true).Foreground(primary),
		Card: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(primary).
			PaddingLeft(1).
			MarginTop(1),
	}
}

func renderCard(card render.StageCard, st styles) string {
	lines := []string{
		st.Title.Render(card.Title),
		st.Muted.Render("Stock Power  ") + card.StockLabel,
		st.Muted.Render("Tuned Power  ") + st.Tuned.Render(card.TunedLabel),
		st.Gain.Render("Gain: " + card.GainLabel),
	}
	if card.Compliance != nil {
		lines = append(lines, st.Warning.Render("! "+card.Compliance.Label))
	}
	lines = append(lines, st.Muted.Render("Notes: "+card.NotesLabel))
	if card.RequirementLabel != "" {
		lines = append(lines, st.Warning.Render(card.RequirementLabel))
	}
	return st.Card.Render(strings.Join(lines, "\n"))
}
