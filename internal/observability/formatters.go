// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/tyler/clip-curator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxCandidatesToShow caps the scored-candidate table
	maxCandidatesToShow = 10
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintScoredCandidates outputs the filtered candidate table, best first
// shown as ranked by score for readability only; selection itself keeps
// input order.
func (p *Printer) PrintScoredCandidates(scored []types.ScoredCandidate) {
	if len(scored) == 0 {
		p.printBox("Scored Candidates", "(none survived filtering)")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-20s %10s %8s %8s %12s\n", "ID", "Views", "Likes", "Shares", "Score"))
	shown := scored
	if len(shown) > maxCandidatesToShow {
		shown = shown[:maxCandidatesToShow]
	}
	for _, c := range shown {
		sb.WriteString(fmt.Sprintf("%-20s %10d %8d %8d %12.4f\n", c.ID, c.Views, c.Likes, c.Shares, c.Score))
	}
	if len(scored) > maxCandidatesToShow {
		sb.WriteString(fmt.Sprintf("... and %d more", len(scored)-maxCandidatesToShow))
	}

	p.printBox(fmt.Sprintf("Scored Candidates (%d)", len(scored)), strings.TrimRight(sb.String(), "\n"))
}

// PrintWinner outputs a human-readable summary of the selected candidate.
func (p *Printer) PrintWinner(winner types.ScoredCandidate) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:      %s\n", winner.ID))
	sb.WriteString(fmt.Sprintf("URL:     %s\n", winner.WebVideoURL))
	sb.WriteString(fmt.Sprintf("Views:   %d\n", winner.Views))
	sb.WriteString(fmt.Sprintf("Likes:   %d\n", winner.Likes))
	sb.WriteString(fmt.Sprintf("Shares:  %d\n", winner.Shares))
	sb.WriteString(fmt.Sprintf("Created: %s\n", winner.CreateTime))
	sb.WriteString(fmt.Sprintf("Score:   %.4f", winner.Score))

	p.printBox("Winner", sb.String())
}
