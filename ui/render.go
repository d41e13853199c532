package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/lepinkainen/iadl/download"
	"github.com/schollz/progressbar/v3"
)

const (
	// DefaultCompletedLimit caps the completed section of a snapshot
	DefaultCompletedLimit = 20

	clearScreen = "\033[H\033[2J"
	barWidth    = 30
)

// Renderer turns ledger snapshots into text. It implements download.Drawer.
type Renderer struct {
	mu             sync.Mutex
	out            io.Writer
	redraw         bool
	completedLimit int
	total          int
	fileBar        progress.Model
	overall        *progressbar.ProgressBar
	indicator      spinner.Spinner
	frame          int
}

// NewRenderer creates a renderer for a run of total targets writing to out.
// With redraw set the screen is cleared and repainted on every tick; without
// it (output is not a terminal) only the final snapshot is written.
func NewRenderer(out io.Writer, total int, redraw bool) *Renderer {
	r := &Renderer{
		out:            out,
		redraw:         redraw,
		completedLimit: DefaultCompletedLimit,
		total:          total,
		fileBar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
		indicator: spinner.Line,
	}

	if total > 0 {
		r.overall = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(io.Discard),
			progressbar.OptionSetDescription("Files"),
			progressbar.OptionSetWidth(barWidth),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}

	return r
}

// Draw writes the snapshot. Write errors are ignored; the run never depends on output.
func (r *Renderer) Draw(snap download.Snapshot, final bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.redraw && !final {
		return
	}

	view := r.format(snap)
	if r.redraw {
		_, _ = fmt.Fprint(r.out, clearScreen)
	}
	_, _ = fmt.Fprintln(r.out, view)
}

// Format renders snap as the completed, in-progress and errored sections
func (r *Renderer) Format(snap download.Snapshot) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.format(snap)
}

func (r *Renderer) format(snap download.Snapshot) string {
	r.frame++
	var b strings.Builder

	if r.overall != nil {
		_ = r.overall.Set(len(snap.Completed) + len(snap.Errored))
		if line := strings.Trim(r.overall.String(), "\r\n "); line != "" {
			b.WriteString(InfoStyle.Render(line))
			b.WriteString("\n\n")
		}
	}

	// Completed
	b.WriteString(SuccessStyle.Render(fmt.Sprintf("✅ Completed (%d)", len(snap.Completed))))
	b.WriteString("\n")
	for i, e := range snap.Completed {
		if i >= r.completedLimit {
			b.WriteString(MutedStyle.Render(fmt.Sprintf("  ...and %d more", len(snap.Completed)-r.completedLimit)))
			b.WriteString("\n")
			break
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", e.FileName, MutedStyle.Render(FormatBytes(e.Downloaded))))
	}

	// In progress
	b.WriteString("\n")
	b.WriteString(ProcessingStyle.Render(fmt.Sprintf("⬇️  In progress (%d)", len(snap.InProgress))))
	b.WriteString("\n")
	for _, e := range snap.InProgress {
		b.WriteString("  ")
		b.WriteString(r.progressLine(e))
		b.WriteString("\n")
	}

	// Errored, only when something failed
	if len(snap.Errored) > 0 {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("❌ Errored (%d)", len(snap.Errored))))
		b.WriteString("\n")
		for _, e := range snap.Errored {
			b.WriteString(fmt.Sprintf("  %s\n", e.FileName))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// progressLine shows a bar for known sizes and a spinner frame otherwise
func (r *Renderer) progressLine(e download.Entry) string {
	pct := e.Percent()
	if pct < 0 {
		frames := r.indicator.Frames
		frame := frames[r.frame%len(frames)]
		return fmt.Sprintf("%s %s %s", frame, e.FileName,
			MutedStyle.Render(fmt.Sprintf("%s (size unknown)", FormatBytes(e.Downloaded))))
	}

	return fmt.Sprintf("%s %5.1f%% %s %s", r.fileBar.ViewAs(pct/100), pct, e.FileName,
		MutedStyle.Render(fmt.Sprintf("%s / %s", FormatBytes(e.Downloaded), FormatBytes(e.Total))))
}

// FormatBytes renders n with a binary unit suffix
func FormatBytes(n int64) string {
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
