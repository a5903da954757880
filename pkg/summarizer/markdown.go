package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// Option configures a MarkdownFormatter.
type Option func(*MarkdownFormatter)

// WithTranslator sets the function used to translate headings and labels.
func WithTranslator(translate func(string) string) Option {
	return func(f *MarkdownFormatter) {
		f.translate = translate
	}
}

// WithVersion adds the tool version to the report footer.
func WithVersion(version string) Option {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...Option) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Extraction Summary"))

	fmt.Fprintf(&b, "## %s\n\n", t("Input"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("File"), s.Input.Path)
	fmt.Fprintf(&b, "| %s | %d (%s) |\n", t("Stream"), s.Input.StreamID, s.Input.Codec)
	fmt.Fprintf(&b, "| %s | %dx%d |\n", t("Size"), s.Input.Width, s.Input.Height)
	if s.Input.TimeBase != "" {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Time Base"), s.Input.TimeBase)
	}
	if s.Input.FrameRate != "" {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Frame Rate"), s.Input.FrameRate)
	}
	if s.Input.IndexEntries > 0 {
		fmt.Fprintf(&b, "| %s | %d |\n", t("Index Entries"), s.Input.IndexEntries)
	} else {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Index Entries"), t("N/A"))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Settings"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Strategy"), s.Settings.Strategy)
	fmt.Fprintf(&b, "| %s | %s |\n", t("Formats"), strings.Join(s.Settings.Formats, ", "))
	if s.Settings.Quality > 0 {
		fmt.Fprintf(&b, "| %s | %d |\n", t("JPEG Quality"), s.Settings.Quality)
	}
	if s.Settings.Width > 0 {
		fmt.Fprintf(&b, "| %s | %d px |\n", t("Width"), s.Settings.Width)
	}
	if s.Settings.Stamp {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Stamp"), t("Yes"))
	}
	if s.Settings.MaxPackets > 0 {
		fmt.Fprintf(&b, "| %s | %d |\n", t("Max Packets"), s.Settings.MaxPackets)
	}
	if s.Settings.Output != "" {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Output"), s.Settings.Output)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Frames"))
	if len(s.Frames) == 0 {
		fmt.Fprintf(&b, "%s\n\n", t("No frames requested."))
	} else {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n|---|---|---|---|---|---|\n",
			t("Frame"), t("Ordinal"), t("Timestamp"), t("Packets"), t("Time"), t("Result"))
		for _, fr := range s.Frames {
			if fr.Failed {
				fmt.Fprintf(&b, "| %d | - | - | %d | %d ms | %s: %s |\n",
					fr.Requested, fr.PacketsRead, fr.DurationMs, t("Failed"), fr.Kind)
				continue
			}
			ts := fmt.Sprintf("%d", fr.Timestamp)
			if fr.Approximate {
				ts += " (" + t("estimated") + ")"
			}
			locations := make([]string, 0, len(fr.Images))
			for _, img := range fr.Images {
				locations = append(locations, fmt.Sprintf("%s (%s)", img.Location, formatBytes(int64(img.Size))))
			}
			result := strings.Join(locations, "<br>")
			if result == "" {
				result = t("Matched")
			}
			fmt.Fprintf(&b, "| %d | %d | %s | %d | %d ms | %s |\n",
				fr.Requested, fr.Ordinal, ts, fr.PacketsRead, fr.DurationMs, result)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## %s\n\n", t("Totals"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	fmt.Fprintf(&b, "| %s | %d |\n", t("Succeeded"), s.Totals.Succeeded)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Failed"), s.Totals.Failed)
	fmt.Fprintf(&b, "| %s | %s |\n", t("Written"), formatBytes(s.Totals.Bytes))
	fmt.Fprintf(&b, "| %s | %d ms |\n", t("Total Duration"), s.Totals.TotalDurationMs)
	b.WriteString("\n")

	footer := fmt.Sprintf("%s %s", t("Generated at"), s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if f.version != "" {
		footer += fmt.Sprintf(" (framegrab %s)", f.version)
	}
	fmt.Fprintf(&b, "---\n\n%s\n", footer)

	return b.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 2; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMG"[exp])
}

var _ Formatter = (*MarkdownFormatter)(nil)
