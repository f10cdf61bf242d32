// Package render turns stage records into display-ready cards.
package render

import (
	"Tuner/internal/models"
	"fmt"
	"strings"
)

const (
	DefaultNotes       = "No specific hardware required."
	CpcUpgradeRequired = "CPC Upgrade Required"
	EcuUnlockRequired  = "ECU Unlock Required"
)

// Compliance is the warning block shown when a stage carries an ECU note.
type Compliance struct {
	Note  string `json:"note"`
	Label string `json:"label"`
}

type StageCard struct {
	Title            string      `json:"title"`
	GainHp           int         `json:"gainHp"`
	GainNm           int         `json:"gainNm"`
	StockLabel       string      `json:"stockLabel"`
	TunedLabel       string      `json:"tunedLabel"`
	GainLabel        string      `json:"gainLabel"`
	Compliance       *Compliance `json:"compliance,omitempty"`
	Requirements     []string    `json:"requirements"`
	RequirementLabel string      `json:"requirementLabel"`
	NotesLabel       string      `json:"notesLabel"`
}

// Stage derives the display values for one stage.
func Stage(stage models.Stage) StageCard {
	card := StageCard{
		Title:        stage.StageName,
		GainHp:       stage.TunedHp - stage.StockHp,
		GainNm:       stage.TunedNm - stage.StockNm,
		StockLabel:   powerLabel(stage.StockHp, stage.StockNm),
		TunedLabel:   powerLabel(stage.TunedHp, stage.TunedNm),
		Requirements: []string{},
		NotesLabel:   DefaultNotes,
	}
	card.GainLabel = fmt.Sprintf("%s HP / %s Nm", signed(card.GainHp), signed(card.GainNm))

	if note := strings.TrimSpace(stage.EcuNotes); note != "" {
		card.Compliance = &Compliance{
			Note:  note,
			Label: "ECU/CPC Requirement: " + note,
		}
	}
	if stage.CpcUpgrade {
		card.Requirements = append(card.Requirements, CpcUpgradeRequired)
	}
	if stage.EcuUnlock {
		card.Requirements = append(card.Requirements, EcuUnlockRequired)
	}
	card.RequirementLabel = strings.Join(card.Requirements, ", ")

	if notes := strings.TrimSpace(stage.Notes); notes != "" {
		card.NotesLabel = notes
	}
	return card
}

func powerLabel(hp int, nm int) string {
	return fmt.Sprintf("%d HP / %d Nm", hp, nm)
}

// signed prints v with an explicit sign; zero is "+0".
func signed(v int) string {
	if v < 0 {
		return fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("+%d", v)
}

// Text lays a card out as plain lines for terminal output.
func Text(card StageCard) string {
	var sb strings.Builder
	sb.WriteString(card.Title + "\n")
	sb.WriteString(fmt.Sprintf("  Stock Power: %s\n", card.StockLabel))
	sb.WriteString(fmt.Sprintf("  Tuned Power: %s\n", card.TunedLabel))
	sb.WriteString(fmt.Sprintf("  Gain: %s\n", card.GainLabel))
	if card.Compliance != nil {
		sb.WriteString("  ! " + card.Compliance.Label + "\n")
	}
	sb.WriteString("  Notes: " + card.NotesLabel + "\n")
	if card.RequirementLabel != "" {
		sb.WriteString("  " + card.RequirementLabel + "\n")
	}
	return sb.String()
}
