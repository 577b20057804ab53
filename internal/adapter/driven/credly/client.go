// Package credly implements the Credly badge provider ports.
package credly

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ericfisherdev/badgehub/internal/adapter/driven/providerhttp"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

// Provider is the name Credly calls are reported under.
const Provider = "credly"

// DefaultBaseURL is the production Credly REST API root.
const DefaultBaseURL = "https://api.credly.com/v1"

// Compile-time interface satisfaction checks.
var (
	_ driven.CredlyAPI           = (*Client)(nil)
	_ driven.CredlyClientFactory = (*Factory)(nil)
)

// Client is a Credly API client scoped to one organization.
type Client struct {
	api          *providerhttp.Client
	organization uuid.UUID
}

// NewClient creates a Client for organization authenticating with apiKey.
// Credly expects the key base64-encoded in a Basic authorization header.
func NewClient(httpClient *http.Client, baseURL string, organization uuid.UUID, apiKey string) (*Client, error) {
	token := base64.StdEncoding.EncodeToString([]byte(apiKey))

	api, err := providerhttp.New(Provider, baseURL, httpClient, func(r *http.Request) {
		r.Header.Set("Authorization", "Basic "+token)
	})
	if err != nil {
		return nil, err
	}

	return &Client{api: api, organization: organization}, nil
}

// IssueBadge issues a badge to a recipient.
func (c *Client) IssueBadge(ctx context.Context, data driven.CredlyBadgeData) (*driven.CredlyBadgeResponse, error) {
	var resp driven.CredlyBadgeResponse
	err := c.api.Do(ctx, providerhttp.Request{
		Operation: "issue",
		Method:    http.MethodPost,
		Path:      []string{"organizations", c.organization.String(), "badges"},
		Body:      data,
		Check:     func() error { return checkBadge(resp.Data, true) },
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RevokeBadge revokes a previously issued badge.
func (c *Client) RevokeBadge(ctx context.Context, badgeID string, data driven.CredlyRevokeData) (*driven.CredlyBadgeResponse, error) {
	if badgeID == "" {
		return nil, c.api.Fail("revoke", errors.New("badge id is required"))
	}

	var resp driven.CredlyBadgeResponse
	err := c.api.Do(ctx, providerhttp.Request{
		Operation: "revoke",
		Method:    http.MethodPut,
		Path:      []string{"organizations", c.organization.String(), "badges", badgeID, "revoke"},
		Body:      data,
		Check:     func() error { return checkBadge(resp.Data, false) },
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchBadge reads the current provider view of a badge. Repeated fetches
// are revalidated through the shared HTTP cache.
func (c *Client) FetchBadge(ctx context.Context, badgeID string) (*driven.CredlyBadgeResponse, error) {
	if badgeID == "" {
		return nil, c.api.Fail("fetch", errors.New("badge id is required"))
	}

	var resp driven.CredlyBadgeResponse
	err := c.api.Do(ctx, providerhttp.Request{
		Operation: "fetch",
		Method:    http.MethodGet,
		Path:      []string{"organizations", c.organization.String(), "badges", badgeID},
		Check:     func() error { return checkBadge(resp.Data, false) },
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// checkBadge rejects badge objects without a state, or without an id when
// one is expected.
func checkBadge(b driven.CredlyBadge, needID bool) error {
	if needID && b.ID == "" {
		return errors.New("missing badge id")
	}
	if b.State == "" {
		return errors.New("missing badge state")
	}
	return nil
}

// Factory builds organization-scoped clients, reading each organization's
// API key from the secret store.
type Factory struct {
	secrets    driven.SecretStore
	httpClient *http.Client
	baseURL    string
}

// NewFactory creates a Factory. httpClient is shared by every client it builds.
func NewFactory(secrets driven.SecretStore, httpClient *http.Client, baseURL string) *Factory {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Factory{secrets: secrets, httpClient: httpClient, baseURL: baseURL}
}

// ForOrganization returns a client for organization. A missing or unreadable
// API key is reported as a *driven.BadgeProviderError.
func (f *Factory) ForOrganization(ctx context.Context, organization uuid.UUID) (driven.CredlyAPI, error) {
	apiKey, err := f.secrets.Get(ctx, driven.CredlySecretScope(organization), driven.SecretKeyAPIKey)
	if err != nil {
		return nil, &driven.BadgeProviderError{Provider: Provider, Operation: "configure", Err: err}
	}
	if apiKey == "" {
		return nil, &driven.BadgeProviderError{
			Provider:  Provider,
			Operation: "configure",
			Err:       fmt.Errorf("no api key stored for organization %s", organization),
		}
	}

	client, err := NewClient(f.httpClient, f.baseURL, organization, apiKey)
	if err != nil {
		return nil, &driven.BadgeProviderError{Provider: Provider, Operation: "configure", Err: err}
	}
	return client, nil
}
