package audit

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var defaultSeverity = map[domain.EventType]domain.Severity{
	domain.EventAuthLogin:         domain.SeverityInfo,
	domain.EventAuthLogout:        domain.SeverityInfo,
	domain.EventAuthAccessGranted: domain.SeverityDebug,
	domain.EventAuthAccessDenied:  domain.SeverityWarning,

	domain.EventChatThreadDeleted: domain.SeverityInfo,
	domain.EventChatSearch:        domain.SeverityInfo,

	domain.EventDataExport:        domain.SeverityWarning,
	domain.EventDataPersistFailed: domain.SeverityError,

	domain.EventIntegrationDisconnected: domain.SeverityWarning,

	domain.EventSecurityIncident:         domain.SeverityCritical,
	domain.EventSecurityRateLimited:      domain.SeverityWarning,
	domain.EventSecurityValidationFailed: domain.SeverityWarning,

	domain.EventSystemFlushFailed: domain.SeverityError,
}

// severityFor returns the explicit severity or the table default (INFO).
func severityFor(ev domain.AuditEvent) domain.Severity {
	if ev.Severity != "" {
		return ev.Severity
	}
	if s, ok := defaultSeverity[ev.Type]; ok {
		return s
	}
	return domain.SeverityInfo
}

// classificationFor tags an entry by its event-type family.
func classificationFor(t domain.EventType) domain.DataClass {
	switch t.Family() {
	case "chat":
		return domain.DataClassConfidential
	case "auth", "security":
		return domain.DataClassRestricted
	default:
		return domain.DataClassInternal
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "eventtype", func(fl validator.FieldLevel) bool {
		return domain.EventType(fl.Field().String()).IsValid()
	})
	mustRegister(v, "severity", func(fl validator.FieldLevel) bool {
		return domain.Severity(fl.Field().String()).IsValid()
	})
	mustRegister(v, "outcome", func(fl validator.FieldLevel) bool {
		return domain.Outcome(fl.Field().String()).IsValid()
	})
	mustRegister(v, "dataclass", func(fl validator.FieldLevel) bool {
		return domain.DataClass(fl.Field().String()).IsValid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("audit: register validation " + tag + ": " + err.Error())
	}
}

// validationFields flattens validator errors into field names for logging.
func validationFields(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+":"+fe.Tag())
	}
	return strings.Join(fields, ",")
}
