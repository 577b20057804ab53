// Package accredible implements the Accredible badge provider ports.
package accredible

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/badgehub/internal/adapter/driven/providerhttp"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

// Provider is the name Accredible calls are reported under.
const Provider = "accredible"

// DefaultBaseURL is the production Accredible REST API root.
const DefaultBaseURL = "https://api.accredible.com/v1"

var (
	_ driven.AccredibleAPI           = (*Client)(nil)
	_ driven.AccredibleClientFactory = (*Factory)(nil)
)

// Client is an Accredible API client bound to one API configuration.
type Client struct {
	api *providerhttp.Client
}

// NewClient creates a Client authenticating with a bearer apiKey.
func NewClient(httpClient *http.Client, baseURL, apiKey string) (*Client, error) {
	api, err := providerhttp.New(Provider, baseURL, httpClient, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+apiKey)
	})
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// IssueBadge creates a credential in a group.
func (c *Client) IssueBadge(ctx context.Context, data driven.AccredibleBadgeData) (*driven.AccredibleBadgeResponse, error) {
	var resp driven.AccredibleBadgeResponse
	err := c.api.Do(ctx, providerhttp.Request{
		Operation: "issue",
		Method:    http.MethodPost,
		Path:      []string{"credentials"},
		Body:      data,
		Check: func() error {
			if resp.Credential.ID == 0 {
				return errors.New("missing credential id")
			}
			return nil
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RevokeBadge expires an existing credential.
func (c *Client) RevokeBadge(ctx context.Context, credentialID string, data driven.AccredibleExpireBadgeData) (*driven.AccredibleBadgeResponse, error) {
	if credentialID == "" {
		return nil, c.api.Fail("revoke", errors.New("credential id is required"))
	}

	var resp driven.AccredibleBadgeResponse
	err := c.api.Do(ctx, providerhttp.Request{
		Operation: "revoke",
		Method:    http.MethodPatch,
		Path:      []string{"credentials", credentialID},
		Body:      data,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Factory builds clients per API configuration.
type Factory struct {
	secrets    driven.SecretStore
	httpClient *http.Client
	baseURL    string
}

// NewFactory creates a Factory sharing httpClient across the clients it builds.
func NewFactory(secrets driven.SecretStore, httpClient *http.Client, baseURL string) *Factory {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Factory{secrets: secrets, httpClient: httpClient, baseURL: baseURL}
}

// ForAPIConfig returns a client for the given API configuration.
func (f *Factory) ForAPIConfig(ctx context.Context, apiConfigID int64) (driven.AccredibleAPI, error) {
	apiKey, err := f.secrets.Get(ctx, driven.AccredibleSecretScope(apiConfigID), driven.SecretKeyAPIKey)
	if err != nil {
		return nil, &driven.BadgeProviderError{Provider: Provider, Operation: "configure", Err: err}
	}
	if apiKey == "" {
		return nil, &driven.BadgeProviderError{
			Provider:  Provider,
			Operation: "configure",
			Err:       fmt.Errorf("no api key stored for api config %d", apiConfigID),
		}
	}

	client, err := NewClient(f.httpClient, f.baseURL, apiKey)
	if err != nil {
		return nil, &driven.BadgeProviderError{Provider: Provider, Operation: "configure", Err: err}
	}
	return client, nil
}
