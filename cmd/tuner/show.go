package main

import (
	"Tuner/internal/models"
	"Tuner/internal/render"
	"Tuner/internal/selection"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// showQuery names one path through the catalog.
type showQuery struct {
	Brand      string
	Model      string
	Type       string
	Engine     string
	EngineType string
}

func newShowCommand(e *env) *cobra.Command {
	q := showQuery{}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the tuning stages for one engine",
		Example: `  tuner show --brand Audi --model A4 --type B9 --engine "2.0 TDI 150hp"
  tuner show --brand BMW --model "3 Series" --type G20 --engine-type Diesel --engine 320d`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShow(cmd.Context(), e.newMachine(e.logger), q, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&q.Brand, "brand", "", "Manufacturer name")
	cmd.Flags().StringVar(&q.Model, "model", "", "Model name")
	cmd.Flags().StringVar(&q.Type, "type", "", "Chassis type name")
	cmd.Flags().StringVar(&q.Engine, "engine", "", "Engine variant name")
	cmd.Flags().StringVar(&q.EngineType, "engine-type", "", "Only consider engines of this type")
	for _, name := range []string{"brand", "model", "type", "engine"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func findByName[T any](items []T, name string, nameOf func(T) string) (T, bool) {
	name = strings.TrimSpace(name)
	for _, item := range items {
		if strings.EqualFold(nameOf(item), name) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// engineLabel is how engines are listed to the user.
func engineLabel(engine models.EngineVariant) string {
	label := engine.Name
	if engine.Description != "" {
		label += " - " + engine.Description
	}
	if engine.Type != "" {
		label += " (" + engine.Type + ")"
	}
	return label
}

func runShow(ctx context.Context, m *selection.Machine, q showQuery, w io.Writer) error {
	m.LoadBrands(ctx)
	brand, ok := findByName(m.Snapshot().Brands, q.Brand, func(b models.Brand) string { return b.Name })
	if !ok {
		return fmt.Errorf("manufacturer %q not found", q.Brand)
	}

	m.SelectBrand(ctx, brand)
	model, ok := findByName(m.Snapshot().Models, q.Model, func(v models.Model) string { return v.Name })
	if !ok {
		return fmt.Errorf("model %q not found for %s", q.Model, brand.Name)
	}

	m.SelectModel(ctx, model.Id)
	chassisType, ok := findByName(m.Snapshot().Types, q.Type, func(v models.ChassisType) string { return v.Name })
	if !ok {
		return fmt.Errorf("chassis type %q not found for %s %s", q.Type, brand.Name, model.Name)
	}

	m.SelectType(ctx, chassisType.Id)
	if q.EngineType != "" {
		options := m.EngineTypeOptions()
		if !slices.Contains(options, q.EngineType) {
			return fmt.Errorf("engine type %q not available, choose one of %v", q.EngineType, options)
		}
		m.SetEngineTypeFilter(q.EngineType)
	}
	engine, ok := findByName(m.FilteredEngines(), q.Engine, func(v models.EngineVariant) string { return v.Name })
	if !ok {
		return fmt.Errorf("engine %q not found for %s %s %s", q.Engine, brand.Name, model.Name, chassisType.Name)
	}

	m.SelectEngine(ctx, engine.Id)
	state := m.Snapshot()

	fmt.Fprintf(w, "%s %s %s - %s\n\n", brand.Name, model.Name, chassisType.Name, engineLabel(engine))
	if len(state.Stages) == 0 {
		fmt.Fprintln(w, "No performance packages currently available for the selected engine.")
		return nil
	}
	for _, stage := range state.Stages {
		fmt.Fprintln(w, render.Text(render.Stage(stage)))
	}
	return nil
}
