// Package classifier scores free text against regulated, personal,
// credential and research pattern families and produces a redacted variant.
//
// Classify never fails: a pattern that errors (match timeout) is logged and
// treated as a non-match.
package classifier

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

// Context carries caller hints that influence the verdict.
type Context struct {
	// IsLabData raises unmatched content to CONFIDENTIAL instead of PUBLIC.
	IsLabData bool
}

// Classifier is stateless apart from its logger and safe for concurrent use.
type Classifier struct {
	log *slog.Logger
}

// New creates a Classifier.
func New(log *slog.Logger) *Classifier {
	return &Classifier{log: log.With("service", "classifier")}
}

type span struct {
	start, end  int // rune offsets, end exclusive
	placeholder string
	priority    int
}

// Classify computes the sensitivity verdict for content.
func (c *Classifier) Classify(content string, ctx Context) domain.ClassificationResult {
	res := domain.ClassificationResult{
		Sensitivity: domain.SensitivityPublic,
	}
	if strings.TrimSpace(content) == "" {
		res.Categories = []domain.Category{domain.CategoryGeneral}
		return res
	}

	spans := make([]span, 0, 4)
	for _, f := range families {
		familyMatched := false
		for _, p := range f.patterns {
			found := c.find(p, content)
			if len(found) == 0 {
				continue
			}
			familyMatched = true
			res.DetectedPatterns = append(res.DetectedPatterns, p.name)
			for _, m := range found {
				spans = append(spans, span{start: m.start, end: m.end, placeholder: f.placeholder, priority: f.priority})
			}
		}
		if !familyMatched {
			continue
		}
		res.Categories = append(res.Categories, f.category)
		res.Sensitivity = domain.MaxSensitivity(res.Sensitivity, f.sensitivity)
		res.Confidence = max(res.Confidence, f.confidence)
		switch f.category {
		case domain.CategoryPHI:
			res.ContainsRegulated = true
		case domain.CategoryPII:
			res.ContainsPersonal = true
		case domain.CategoryCredentials:
			res.ContainsCredentials = true
		}
	}

	if ok, err := keywordPattern.MatchString(content); err != nil {
		c.log.Warn("keyword pattern failed", slog.String("error", err.Error()))
	} else if ok {
		res.DetectedPatterns = append(res.DetectedPatterns, keywordPatternName)
		res.Categories = append(res.Categories, domain.CategoryKeyword)
		res.Sensitivity = domain.MaxSensitivity(res.Sensitivity, domain.SensitivityInternal)
		res.Confidence = max(res.Confidence, keywordConfidence)
	}

	if len(res.Categories) == 0 {
		res.Categories = []domain.Category{domain.CategoryGeneral}
	}

	if ctx.IsLabData && res.Sensitivity == domain.SensitivityPublic {
		res.Sensitivity = domain.SensitivityConfidential
	}

	if res.Sensitivity.AtLeast(domain.SensitivityConfidential) {
		redacted := redact(content, spans)
		res.RedactedContent = &redacted
	}

	return res
}

// Verdict classifies content and returns the compact form stored on messages.
func (c *Classifier) Verdict(content string, ctx Context) *domain.Verdict {
	return c.Classify(content, ctx).Verdict()
}

// Redact replaces every structured match in content with its category
// placeholder, independent of the overall sensitivity.
func (c *Classifier) Redact(content string) string {
	if content == "" {
		return content
	}
	var spans []span
	for _, f := range families {
		for _, p := range f.patterns {
			for _, m := range c.find(p, content) {
				spans = append(spans, span{start: m.start, end: m.end, placeholder: f.placeholder, priority: f.priority})
			}
		}
	}
	return redact(content, spans)
}

type match struct {
	start, end int
}

func (c *Classifier) find(p pattern, content string) []match {
	var out []match
	m, err := p.re.FindStringMatch(content)
	for m != nil && err == nil {
		if p.validate == nil || p.validate(m.String()) {
			out = append(out, match{start: m.Index, end: m.Index + m.Length})
		}
		m, err = p.re.FindNextMatch(m)
	}
	if err != nil {
		c.log.Warn("pattern match failed",
			slog.String("pattern", p.name),
			slog.String("error", err.Error()),
		)
	}
	return out
}

// redact splices placeholders over the given spans. Overlapping spans are
// merged and take the placeholder of the higher-priority family.
func redact(content string, spans []span) string {
	if len(spans) == 0 {
		return content
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].priority > spans[j].priority
	})

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start < last.end {
			if s.end > last.end {
				last.end = s.end
			}
			if s.priority > last.priority {
				last.priority = s.priority
				last.placeholder = s.placeholder
			}
			continue
		}
		merged = append(merged, s)
	}

	runes := []rune(content)
	var b strings.Builder
	b.Grow(len(content))
	pos := 0
	for _, s := range merged {
		b.WriteString(string(runes[pos:s.start]))
		b.WriteString(s.placeholder)
		pos = s.end
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}
