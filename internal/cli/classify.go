package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/labassist-backend/internal/classifier"
)

type classifyResult struct {
	Sensitivity         string   `yaml:"sensitivity"`
	Categories          []string `yaml:"categories"`
	DetectedPatterns    []string `yaml:"detectedPatterns,omitempty"`
	Confidence          float64  `yaml:"confidence"`
	ContainsRegulated   bool     `yaml:"containsRegulated"`
	ContainsPersonal    bool     `yaml:"containsPersonal"`
	ContainsCredentials bool     `yaml:"containsCredentials"`
	Redacted            string   `yaml:"redacted,omitempty"`
}

func newClassifyCommand(opts *RootOptions) *cobra.Command {
	var labData bool

	cmd := &cobra.Command{
		Use:   "classify <text>...",
		Short: "Show how a piece of text would be classified",
		Long: `Classify text for sensitivity without storing it. Nothing is saved or
audited.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := classifier.New(newLogger(opts, cmd.ErrOrStderr()))
			r := c.Classify(strings.Join(args, " "), classifier.Context{IsLabData: labData})

			res := classifyResult{
				Sensitivity:         string(r.Sensitivity),
				Categories:          make([]string, len(r.Categories)),
				DetectedPatterns:    r.DetectedPatterns,
				Confidence:          r.Confidence,
				ContainsRegulated:   r.ContainsRegulated,
				ContainsPersonal:    r.ContainsPersonal,
				ContainsCredentials: r.ContainsCredentials,
			}
			for i, cat := range r.Categories {
				res.Categories[i] = string(cat)
			}
			if r.RedactedContent != nil {
				res.Redacted = *r.RedactedContent
			}

			return newPrinter(opts, cmd.OutOrStdout()).print(res, func(w io.Writer) {
				fmt.Fprintf(w, "sensitivity: %s (confidence %.2f)\n", res.Sensitivity, res.Confidence)
				fmt.Fprintf(w, "categories:  %s\n", strings.Join(res.Categories, ", "))
				if len(res.DetectedPatterns) > 0 {
					fmt.Fprintf(w, "patterns:    %s\n", strings.Join(res.DetectedPatterns, ", "))
				}
				if res.Redacted != "" {
					fmt.Fprintf(w, "redacted:    %s\n", res.Redacted)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&labData, "lab-data", false, "treat the text as lab data")

	return cmd
}
