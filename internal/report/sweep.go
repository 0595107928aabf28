package report

import (
	"fmt"
	"strconv"

	"ddos-reassembler/internal/evaluation"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderSweep tabulates a drop sweep, one row per fraction.
func RenderSweep(results []evaluation.DropResult) string {
	withTruth := false
	for _, r := range results {
		if r.GroundTruth != nil {
			withTruth = true
			break
		}
	}

	headers := []string{"dropped", "keys", "fingerprints", "estimated", "discarded", "discarded %"}
	if withTruth {
		headers = append(headers, "ground truth", "target")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))).
		Headers(headers...)

	for _, r := range results {
		cells := []string{
			fmt.Sprintf("%.0f%%", r.Fraction*100),
			strconv.Itoa(r.DroppedKeys),
			strconv.Itoa(r.NrFingerprints),
			strconv.Itoa(r.Estimated),
			strconv.Itoa(r.Discarded),
			fmt.Sprintf("%.1f%%", r.DiscardedRelative()*100),
		}
		if withTruth {
			truth, match := "-", "-"
			if r.GroundTruth != nil {
				truth = strconv.Itoa(*r.GroundTruth)
			}
			if r.TargetMatch != nil {
				match = "miss"
				if *r.TargetMatch {
					match = "hit"
				}
			}
			cells = append(cells, truth, match)
		}
		t.Row(cells...)
	}
	return titleStyle.Render("Drop sweep") + "\n" + t.String() + "\n"
}
