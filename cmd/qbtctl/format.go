package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jfxdev/go-qbt-client/shared"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	stateStyles = map[shared.State]lipgloss.Style{
		shared.StateDownloading: lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
		shared.StateSeeding:     lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		shared.StatePaused:      mutedStyle,
		shared.StateQueued:      mutedStyle,
		shared.StateChecking:    lipgloss.NewStyle().Foreground(lipgloss.Color("#8B5CF6")),
		shared.StateWarning:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		shared.StateError:       lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
	}
)

// stateLabel renders a state padded to a fixed width before colouring so
// that escape codes do not break column alignment.
func stateLabel(s shared.State) string {
	text := fmt.Sprintf("%-11s", s)
	if style, ok := stateStyles[s]; ok {
		return style.Render(text)
	}
	return text
}

func formatTorrentTable(torrents []shared.Torrent) string {
	if len(torrents) == 0 {
		return "No torrents.\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-40s  %-11s  %6s  %-12s  %s", "HASH", "STATE", "DONE", "LABEL", "NAME")))
	b.WriteString("\n")
	for _, t := range torrents {
		fmt.Fprintf(&b, "%-40s  %s  %5.1f%%  %-12s  %s\n", t.ID, stateLabel(t.State), t.Progress, t.Label, t.Name)
	}
	return b.String()
}

func formatTorrentDetail(t shared.Torrent) string {
	completed := mutedStyle.Render("-")
	if t.IsCompleted {
		completed = t.DateCompleted
	}

	return fmt.Sprintf(`Name:       %s
Hash:       %s
State:      %s
Progress:   %.1f%%
Label:      %s
Save path:  %s
Added:      %s
Completed:  %s
Speed:      %s down / %s up
Peers:      %d (%d total)
Seeds:      %d (%d total)
Size:       %s
Ratio:      %.2f
`,
		t.Name, t.ID, stateLabel(t.State), t.Progress, t.Label, t.SavePath,
		t.DateAdded, completed,
		formatBytes(t.DownloadSpeed)+"/s", formatBytes(t.UploadSpeed)+"/s",
		t.ConnectedPeers, t.TotalPeers, t.ConnectedSeeds, t.TotalSeeds,
		formatBytes(t.TotalSize), t.Ratio)
}

func formatLabels(labels map[string]shared.Label) string {
	if len(labels) == 0 {
		return "No labels.\n"
	}

	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%-20s %d\n", name, labels[name].Count)
	}
	return b.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
