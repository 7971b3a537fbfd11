package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Render Summary\n\n")
	fmt.Fprintf(&b, "Generated at %s\n\n", s.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Recording\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| ID | %s |\n", s.Recording.ID)
	fmt.Fprintf(&b, "| Recorded | %s |\n", s.Recording.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Source | %s |\n", s.Recording.Source)
	if s.Recording.Incomplete {
		b.WriteString("| Status | incomplete |\n")
	}
	b.WriteString("\n")

	if len(s.Tracks) > 0 {
		b.WriteString("## Tracks\n\n")
		b.WriteString("| Track | Format | Duration |\n|-------|--------|----------|\n")
		for _, t := range s.Tracks {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", t.Kind, t.Detail, formatDuration(t.Duration))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Project\n\n")
	b.WriteString("| Setting | Value |\n|---------|-------|\n")
	fmt.Fprintf(&b, "| Aspect ratio | %s |\n", s.Settings.AspectRatio)
	fmt.Fprintf(&b, "| Background | %s |\n", s.Settings.Background)
	fmt.Fprintf(&b, "| Padding | %s%% |\n", ftoa(s.Settings.Padding))
	fmt.Fprintf(&b, "| Rounding | %s%% |\n", ftoa(s.Settings.Rounding))
	fmt.Fprintf(&b, "| Camera | %s |\n", s.Settings.Camera)
	fmt.Fprintf(&b, "| Cursor | %s |\n", s.Settings.Cursor)
	fmt.Fprintf(&b, "| Audio | %s |\n\n", s.Settings.Audio)

	b.WriteString("## Video\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| File | %s |\n", s.Video.Path)
	fmt.Fprintf(&b, "| Size | %dx%d |\n", s.Video.Width, s.Video.Height)
	fmt.Fprintf(&b, "| Frames | %d |\n", s.Video.FrameCount)
	fmt.Fprintf(&b, "| Frame rate | %s fps |\n", ftoa(s.Video.FPS))
	fmt.Fprintf(&b, "| Duration | %s |\n", formatDuration(s.Video.Duration))
	fmt.Fprintf(&b, "| File size | %s |\n", formatBytes(s.Video.FileSize))

	return b.String()
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2f s", d.Seconds())
}
