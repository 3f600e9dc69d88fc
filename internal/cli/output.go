package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

// printer renders command results as human-readable text or YAML.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(opts *RootOptions, w io.Writer) *printer {
	return &printer{format: opts.Format, w: w}
}

// print writes v as YAML, or calls text when the format is text.
func (p *printer) print(v any, text func(w io.Writer)) error {
	if p.format == "yaml" {
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	text(p.w)
	return nil
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

type threadSummary struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Messages  int       `yaml:"messages"`
	UpdatedAt time.Time `yaml:"updatedAt"`
	Active    bool      `yaml:"active,omitempty"`
}

type messageView struct {
	ID          string   `yaml:"id"`
	Role        string   `yaml:"role"`
	Content     string   `yaml:"content"`
	Time        string   `yaml:"time"`
	Sensitivity string   `yaml:"sensitivity,omitempty"`
	Categories  []string `yaml:"categories,omitempty"`
	Redacted    string   `yaml:"redacted,omitempty"`
}

type threadView struct {
	ID        string        `yaml:"id"`
	Title     string        `yaml:"title"`
	CreatedAt time.Time     `yaml:"createdAt"`
	UpdatedAt time.Time     `yaml:"updatedAt"`
	Messages  []messageView `yaml:"messages"`
}

func summarize(threads []domain.Thread, active string) []threadSummary {
	out := make([]threadSummary, len(threads))
	for i, t := range threads {
		out[i] = threadSummary{
			ID:        t.ID,
			Title:     t.Title,
			Messages:  len(t.Messages),
			UpdatedAt: t.UpdatedAt,
			Active:    t.ID == active,
		}
	}
	return out
}

func viewMessage(m domain.Message) messageView {
	v := messageView{
		ID:      m.ID,
		Role:    string(m.Role),
		Content: m.Content,
		Time:    m.Timestamp.Format(time.RFC3339),
	}
	if m.Verdict != nil {
		v.Sensitivity = string(m.Verdict.Sensitivity)
		for _, c := range m.Verdict.Categories {
			v.Categories = append(v.Categories, string(c))
		}
		if m.Verdict.RedactedContent != nil {
			v.Redacted = *m.Verdict.RedactedContent
		}
	}
	return v
}

func viewThread(t domain.Thread) threadView {
	v := threadView{
		ID:        t.ID,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Messages:  make([]messageView, len(t.Messages)),
	}
	for i, m := range t.Messages {
		v.Messages[i] = viewMessage(m)
	}
	return v
}

// ---------------------------------------------------------------------------
// Text renderers
// ---------------------------------------------------------------------------

func writeSummaries(w io.Writer, threads []threadSummary) {
	if len(threads) == 0 {
		fmt.Fprintln(w, "no threads")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTITLE\tMESSAGES\tUPDATED")
	for _, t := range threads {
		mark := ""
		if t.Active {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", mark, t.ID, t.Title, t.Messages, t.UpdatedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}

func writeThread(w io.Writer, t threadView) {
	fmt.Fprintf(w, "%s  %s\n", t.ID, t.Title)
	for _, m := range t.Messages {
		label := m.Role
		if m.Sensitivity != "" {
			label += " [" + m.Sensitivity
			if len(m.Categories) > 0 {
				label += ": " + strings.Join(m.Categories, ",")
			}
			label += "]"
		}
		fmt.Fprintf(w, "\n%s %s\n%s\n", m.Time, label, m.Content)
	}
}
