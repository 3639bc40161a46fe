package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

const maxProfileBytes = 1 << 20

// FetchProfile loads the authenticated user's profile and normalizes it.
func (c *Client) FetchProfile(ctx context.Context, cfg domain.ProviderConfig, accessToken string) (domain.ExternalProfile, error) {
	d, ok := descriptors[cfg.Provider]
	if !ok {
		return domain.ExternalProfile{}, domain.ErrUnknownProvider(string(cfg.Provider))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.UserInfoURL, nil)
	if err != nil {
		return domain.ExternalProfile{}, domain.ErrProfileFetch(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ExternalProfile{}, domain.ErrProfileFetch(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return domain.ExternalProfile{}, domain.ErrProfileFetch(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ExternalProfile{}, domain.ErrProfileFetch(
			fmt.Errorf("%s returned status %d", cfg.Provider, resp.StatusCode))
	}

	profile, err := d.normalize(body)
	if err != nil {
		return domain.ExternalProfile{}, domain.ErrProfileParse(err)
	}
	return profile, nil
}
