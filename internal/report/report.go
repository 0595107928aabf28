// Package report renders reassembly summaries for terminals and pipelines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"ddos-reassembler/internal/reassembler"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(22)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00"))
)

// Format selects the output of Render.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or text)", s)
	}
}

func Render(w io.Writer, s *reassembler.Summary, format Format) error {
	if format == FormatText {
		_, err := io.WriteString(w, RenderText(s))
		return err
	}
	return RenderJSON(w, s)
}

func RenderJSON(w io.Writer, s *reassembler.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func RenderText(s *reassembler.Summary) string {
	var b strings.Builder

	title := "DDoS reassembly"
	if s.Key != "" {
		title += " " + s.Key
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	section(&b, "Attack")
	row(&b, "start", s.Attack.StartTime.UTC().Format(time.RFC3339))
	row(&b, "end", s.Attack.EndTime.UTC().Format(time.RFC3339))
	row(&b, "mean duration", fmt.Sprintf("%.1fs", s.Attack.DurationSeconds))
	service := "-"
	if s.Attack.Service != nil {
		service = *s.Attack.Service
	}
	row(&b, "service", service)
	row(&b, "protocol", s.Attack.Protocol)

	section(&b, "Target")
	row(&b, "ip", s.Target.IP)
	row(&b, "detection threshold", formatFloat(s.Target.DetectionThreshold))

	in := s.IntermediateNodes
	section(&b, "Intermediate nodes")
	row(&b, "retained", strconv.Itoa(in.NrIntermediateNodes))
	row(&b, "discarded", strconv.Itoa(in.Discarded))
	for _, label := range percentileLabels(in.DetectionThreshold) {
		value := "-"
		if v := in.DetectionThreshold[label]; v != nil {
			value = formatFloat(*v)
		}
		row(&b, "threshold p"+label, value)
	}
	if len(in.KeyNodes) > 0 {
		b.WriteString(keyNodeTable(in.KeyNodes).String())
		b.WriteString("\n")
	} else {
		b.WriteString(warnStyle.Render("no intermediate node passed the filter"))
		b.WriteString("\n")
	}

	section(&b, "Sources")
	row(&b, "distinct sources", strconv.Itoa(s.Sources.NrSources))
	row(&b, "spoofed", fmt.Sprintf("%.1f%%", s.Sources.PctSpoofed*100))
	if s.Sources.MeanHopsToTarget != nil {
		row(&b, "mean hops to target", formatFloat(*s.Sources.MeanHopsToTarget))
	}

	if gt := s.GroundTruth; gt != nil {
		section(&b, "Ground truth")
		match := "yes"
		if gt.Target != s.Target.IP {
			match = warnStyle.Render("no, expected " + gt.Target)
		}
		row(&b, "target detected", match)
		row(&b, "attack vectors", strconv.Itoa(gt.NrAttackAV))
		row(&b, "background vectors", strconv.Itoa(gt.NrBackgroundAV))
		row(&b, "participating nodes", strconv.Itoa(gt.NrParticipatingNodes))
		row(&b, "observing attack", strconv.Itoa(gt.NrLocationsObservingAttack))
		row(&b, "true sources", strconv.Itoa(len(gt.Sources)))
	}

	if s.Meta.DropFraction > 0 {
		section(&b, "Input")
		row(&b, "drop fraction", formatFloat(s.Meta.DropFraction))
		row(&b, "fingerprints", strconv.Itoa(s.Meta.NrFingerprints))
	}
	return b.String()
}

func keyNodeTable(nodes []reassembler.IntermediateNode) *table.Table {
	simulated := false
	for _, n := range nodes {
		if n.Distance != nil {
			simulated = true
			break
		}
	}

	headers := []string{"location", "packets", "hops", "threshold", "duration", "fraction"}
	if simulated {
		headers = append(headers, "distance", "diff")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))).
		Headers(headers...)

	for _, n := range nodes {
		cells := []string{
			n.Location,
			strconv.FormatFloat(n.NrPackets, 'f', -1, 64),
			strconv.Itoa(n.HopsToTarget),
			formatFloat(n.DetectionThreshold),
			fmt.Sprintf("%.0fs", n.DurationSeconds),
			formatFloat(n.FractionOfTotalAttack),
		}
		if simulated {
			cells = append(cells, optionalInt(n.Distance), optionalInt(n.InferredDistanceDiff))
		}
		t.Row(cells...)
	}
	return t
}

func section(b *strings.Builder, name string) {
	b.WriteString(sectionStyle.Render(name))
	b.WriteString("\n")
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func percentileLabels(m map[string]*float64) []string {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, errA := strconv.ParseFloat(labels[i], 64)
		b, errB := strconv.ParseFloat(labels[j], 64)
		if errA != nil || errB != nil {
			return labels[i] < labels[j]
		}
		return a < b
	})
	return labels
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
