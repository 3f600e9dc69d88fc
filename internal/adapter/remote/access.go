package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

// AccessResult is the body of GET /access.
type AccessResult struct {
	Permission string `json:"permission"`
	domain.Decision
	LatencyMs float64 `json:"latencyMs"`
}

// CheckAccess asks the server whether the caller may perform action on
// resource in rc.
func (c *Client) CheckAccess(ctx context.Context, resource domain.Resource, action domain.Action, rc domain.ResourceContext) (AccessResult, error) {
	q := url.Values{}
	q.Set("resource", string(resource))
	q.Set("action", string(action))
	if rc.OwnerID != nil {
		q.Set("ownerId", rc.OwnerID.String())
	}
	if rc.Department != "" {
		q.Set("department", rc.Department)
	}
	if rc.TimeRestricted {
		q.Set("timeRestricted", strconv.FormatBool(true))
	}

	var out AccessResult
	if err := c.do(ctx, http.MethodGet, "/access?"+q.Encode(), nil, &out); err != nil {
		return AccessResult{}, err
	}
	return out, nil
}
