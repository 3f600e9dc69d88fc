package classifier

import (
	"time"

	"github.com/dlclark/regexp2"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

const matchTimeout = 250 * time.Millisecond

// Redaction placeholders. None of them may match any pattern below.
const (
	PlaceholderPHI        = "[REDACTED-PHI]"
	PlaceholderPII        = "[REDACTED-PII]"
	PlaceholderCredential = "[REDACTED-CREDENTIAL]"
	PlaceholderResearch   = "[REDACTED-RESEARCH]"
)

type pattern struct {
	name     string
	re       *regexp2.Regexp
	validate func(match string) bool
}

type family struct {
	category    domain.Category
	sensitivity domain.Sensitivity
	confidence  float64
	placeholder string
	// priority decides which placeholder wins when spans of two families overlap.
	priority int
	patterns []pattern
}

func compile(name, expr string, opts regexp2.RegexOptions) pattern {
	re := regexp2.MustCompile(expr, opts)
	re.MatchTimeout = matchTimeout
	return pattern{name: name, re: re}
}

func withValidator(p pattern, fn func(string) bool) pattern {
	p.validate = fn
	return p
}

const (
	ci   = regexp2.IgnoreCase
	none = regexp2.None
)

// families are scanned in this order: regulated, personal, credentials, research.
var families = []family{
	{
		category:    domain.CategoryPHI,
		sensitivity: domain.SensitivityRestricted,
		confidence:  0.9,
		placeholder: PlaceholderPHI,
		priority:    3,
		patterns: []pattern{
			compile("medical_record_number",
				`\b(?:MRN|medical\s+record(?:\s+(?:number|no\.?|#))?)\s*[:#]?\s*(?!\[REDACTED)(?=[A-Z0-9-]*\d)[A-Z0-9][A-Z0-9-]{4,14}\b`, ci),
			compile("icd10_code",
				`(?<![A-Za-z0-9])[A-TV-Z][0-9][0-9AB]\.[0-9A-TV-Z]{1,4}(?![A-Za-z0-9])`, none),
			compile("diagnosis_phrase",
				`\b(?:diagnosed\s+with|diagnosis\s+of|prescribed)\s+[A-Za-z][A-Za-z -]{2,60}`, ci),
			compile("patient_identifier",
				`\bpatient\s+(?:id|name|dob|number)\s*[:#]?\s*(?!\[REDACTED)[A-Za-z0-9][A-Za-z0-9 .'-]{1,40}`, ci),
			compile("provider_npi",
				`\bNPI\s*[:#]?\s*\d{10}\b`, ci),
			compile("health_plan_id",
				`\b(?:member|policy|insurance)\s*(?:id|number|no\.?|#)\s*[:#]?\s*(?!\[REDACTED)(?=[A-Z]*\d)[A-Z0-9]{6,15}\b`, ci),
		},
	},
	{
		category:    domain.CategoryPII,
		sensitivity: domain.SensitivityConfidential,
		confidence:  0.85,
		placeholder: PlaceholderPII,
		priority:    2,
		patterns: []pattern{
			compile("email_address",
				`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, none),
			compile("ssn",
				`(?<![\d-])(?!000|666|9\d\d)\d{3}-(?!00)\d{2}-(?!0000)\d{4}(?![\d-])`, none),
			compile("phone_number",
				`(?<![\d-])(?:\+?1[-.\s]?)?(?:\(\d{3}\)\s?|\d{3}[-.\s])\d{3}[-.\s]\d{4}(?![\d-])`, none),
			withValidator(compile("payment_card",
				`(?<![\d-])\d(?:[ -]?\d){12,18}(?![\d-])`, none), luhnValid),
			compile("date_of_birth",
				`\b(?:DOB|date\s+of\s+birth|born\s+on)\s*:?\s*\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`, ci),
			compile("street_address",
				`\b\d{1,5}\s+(?:[A-Z][a-z]+\s+){1,3}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr)\b\.?`, none),
		},
	},
	{
		category:    domain.CategoryCredentials,
		sensitivity: domain.SensitivityCritical,
		confidence:  1.0,
		placeholder: PlaceholderCredential,
		priority:    4,
		patterns: []pattern{
			compile("secret_assignment",
				`\b(?:api[_-]?key|secret(?:[_-]?key)?|access[_-]?token|auth[_-]?token|token|password|passwd|pwd|client[_-]?secret)\b\s*[:=]\s*["']?(?!\[REDACTED)[^\s"']{6,}["']?`, ci),
			compile("bearer_token",
				`\bBearer\s+(?!\[REDACTED)[A-Za-z0-9\-._~+/]{20,}=*`, ci),
			compile("aws_access_key",
				`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`, none),
			compile("private_key_block",
				`-----BEGIN (?:RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`, none),
			compile("connection_string",
				`\b[a-z][a-z0-9+.-]*://[^\s:/@]+:[^\s@/]+@[^\s]+`, ci),
			compile("service_api_key",
				`\b(?:sk|pk|rk)_(?:live|test)_[A-Za-z0-9]{16,}\b`, none),
			compile("github_token",
				`\bgh[pousr]_[A-Za-z0-9]{36}\b`, none),
		},
	},
	{
		category:    domain.CategoryResearch,
		sensitivity: domain.SensitivityInternal,
		confidence:  0.7,
		placeholder: PlaceholderResearch,
		priority:    1,
		patterns: []pattern{
			compile("protocol_id",
				`\b(?:PROTO|PROT|IRB)[-_]?\d{4}[-_]\d{2,6}\b`, ci),
			compile("subject_id",
				`\b(?:SUBJ|PARTICIPANT)[-_]\d{3,6}\b`, ci),
			compile("sample_barcode",
				`\b(?:SMP|SAMPLE)[-_][A-Z0-9]{4,10}\b`, none),
			compile("clinical_trial_id",
				`\bNCT\d{8}\b`, none),
		},
	},
}

// keywordPattern matches sensitive vocabulary that carries no structured identifier.
var keywordPattern = func() *regexp2.Regexp {
	re := regexp2.MustCompile(`(?<!REDACTED-)\b(?:patient|diagnosis|prognosis|medical|clinical|hipaa|phi|pii|ssn|`+
		`social\s+security|credit\s+card|password|secret|confidential|proprietary|unpublished|`+
		`genome|genomic|biopsy|prescription)\b`, ci)
	re.MatchTimeout = matchTimeout
	return re
}()

const (
	keywordConfidence  = 0.5
	keywordPatternName = "sensitive_keyword"
)

// luhnValid filters payment-card candidates down to Luhn-valid digit strings.
func luhnValid(match string) bool {
	sum := 0
	digits := 0
	double := false
	for i := len(match) - 1; i >= 0; i-- {
		c := match[i]
		if c < '0' || c > '9' {
			continue
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		digits++
		double = !double
	}
	return digits >= 13 && sum%10 == 0
}
