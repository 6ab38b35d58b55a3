package wafapi

import (
	"context"
	"net/http"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// RegisterSite registers the site and returns the issued credentials.
// Blank request fields are filled from the configured site.
func (c *Client) RegisterSite(ctx context.Context, req domain.RegistrationRequest) (*domain.RegistrationResponse, error) {
	if err := domain.ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if req.Domain == "" {
		req.Domain = c.site.HostDomain()
	}
	if req.SiteURL == "" {
		req.SiteURL = c.site.URL
	}
	if req.AppVersion == "" {
		req.AppVersion = c.site.AppVersion
	}
	if req.Domain == "" {
		return nil, domain.NewValidationError("domain", "is required")
	}

	c.logger.Info("registering site", "domain", req.Domain)

	resp, err := doJSON[domain.RegistrationResponse](ctx, c, Call{
		Service: domain.ServiceAuth,
		Path:    "/register",
		Method:  http.MethodPost,
		Body:    req,
		Public:  true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
