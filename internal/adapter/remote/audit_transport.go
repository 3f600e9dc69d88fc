package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

// AuditBatch is the body of POST /audit/logs.
type AuditBatch struct {
	Logs       []domain.AuditEntry `json:"logs"`
	ClientTime time.Time           `json:"clientTime"`
}

// AuditTransport ships audit batches to the server's audit sink. It
// satisfies audit.Transport.
type AuditTransport struct {
	client *Client
	now    func() time.Time
}

// NewAuditTransport sends batches through c.
func NewAuditTransport(c *Client) *AuditTransport {
	return &AuditTransport{client: c, now: time.Now}
}

// Write posts one batch.
func (t *AuditTransport) Write(ctx context.Context, entries []domain.AuditEntry) error {
	return t.client.do(ctx, http.MethodPost, "/audit/logs", AuditBatch{
		Logs:       entries,
		ClientTime: t.now().UTC(),
	}, nil)
}
