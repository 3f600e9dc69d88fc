package domain

// ClassificationResult is computed per classify call and never persisted.
type ClassificationResult struct {
	Sensitivity         Sensitivity `json:"sensitivity"`
	Categories          []Category  `json:"categories"`
	DetectedPatterns    []string    `json:"detectedPatterns,omitempty"`
	Confidence          float64     `json:"confidence"`
	ContainsRegulated   bool        `json:"containsRegulated"`
	ContainsPersonal    bool        `json:"containsPersonal"`
	ContainsCredentials bool        `json:"containsCredentials"`
	RedactedContent     *string     `json:"redactedContent,omitempty"`
}

// Verdict converts the result into the compact form stored on a message.
func (r ClassificationResult) Verdict() *Verdict {
	v := &Verdict{
		Sensitivity:       r.Sensitivity,
		Categories:        append([]Category(nil), r.Categories...),
		ContainsRegulated: r.ContainsRegulated,
		ContainsPersonal:  r.ContainsPersonal,
	}
	if r.RedactedContent != nil {
		rc := *r.RedactedContent
		v.RedactedContent = &rc
	}
	return v
}

// HasCategory reports whether c was detected.
func (r ClassificationResult) HasCategory(c Category) bool {
	for _, got := range r.Categories {
		if got == c {
			return true
		}
	}
	return false
}
