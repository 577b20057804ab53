package credly_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/badgehub/internal/adapter/driven/credly"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

var testOrg = uuid.MustParse("2f0a8c61-1c0e-4b36-8b2c-9d5a3c7e4f22")

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *credly.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := credly.NewClient(server.Client(), server.URL+"/v1", testOrg, "ck_test")
	require.NoError(t, err)
	return client
}

func TestIssueBadge(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/organizations/"+testOrg.String()+"/badges", r.URL.Path)
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("ck_test")), r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"recipient_email":      "alice@example.com",
			"issued_to_first_name": "Alice",
			"issued_to_last_name":  "alice",
			"badge_template_id":    "7c1b6a0e-54c3-4d6b-9f39-0f6f5d2d8a11",
			"issued_at":            "2026-03-01 09:30:00 +0000",
		}, body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"ext-1","state":"pending","image_url":"https://x"}}`))
	})

	client := newTestClient(t, handler)
	resp, err := client.IssueBadge(context.Background(), driven.CredlyBadgeData{
		RecipientEmail:    "alice@example.com",
		IssuedToFirstName: "Alice",
		IssuedToLastName:  "alice",
		BadgeTemplateID:   "7c1b6a0e-54c3-4d6b-9f39-0f6f5d2d8a11",
		IssuedAt:          "2026-03-01 09:30:00 +0000",
	})

	require.NoError(t, err)
	assert.Equal(t, "ext-1", resp.Data.ID)
	assert.Equal(t, "pending", resp.Data.State)
}

func TestIssueBadge_ProviderError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"data":{"message":"Recipient already has this badge"}}`))
	})

	client := newTestClient(t, handler)
	_, err := client.IssueBadge(context.Background(), driven.CredlyBadgeData{})

	var provErr *driven.BadgeProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, credly.Provider, provErr.Provider)
	assert.Equal(t, "issue", provErr.Operation)
	assert.Equal(t, http.StatusUnprocessableEntity, provErr.StatusCode)
}

func TestRevokeBadge(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/organizations/"+testOrg.String()+"/badges/ext-1/revoke", r.URL.Path)

		var body driven.CredlyRevokeData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "internal user credential was revoked", body.Reason)

		_, _ = w.Write([]byte(`{"data":{"id":"ext-1","state":"revoked"}}`))
	})

	client := newTestClient(t, handler)
	resp, err := client.RevokeBadge(context.Background(), "ext-1", driven.CredlyRevokeData{Reason: "internal user credential was revoked"})

	require.NoError(t, err)
	assert.Equal(t, "revoked", resp.Data.State)
}

func TestRevokeBadge_EmptyID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.RevokeBadge(context.Background(), "", driven.CredlyRevokeData{})

	var provErr *driven.BadgeProviderError
	assert.True(t, errors.As(err, &provErr))
}

func TestFetchBadge(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/organizations/"+testOrg.String()+"/badges/ext-9", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":"ext-9","state":"accepted"}}`))
	})

	client := newTestClient(t, handler)
	resp, err := client.FetchBadge(context.Background(), "ext-9")

	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Data.State)
}

func TestClient_RejectsIncompleteBadge(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(*credly.Client) error
		want string
	}{
		{
			name: "issue without id",
			body: `{"data":{"state":"pending"}}`,
			call: func(c *credly.Client) error {
				_, err := c.IssueBadge(context.Background(), driven.CredlyBadgeData{})
				return err
			},
			want: "missing badge id",
		},
		{
			name: "issue without state",
			body: `{"data":{"id":"ext-1"}}`,
			call: func(c *credly.Client) error {
				_, err := c.IssueBadge(context.Background(), driven.CredlyBadgeData{})
				return err
			},
			want: "missing badge state",
		},
		{
			name: "revoke without state",
			body: `{"unexpected":true}`,
			call: func(c *credly.Client) error {
				_, err := c.RevokeBadge(context.Background(), "ext-1", driven.CredlyRevokeData{})
				return err
			},
			want: "missing badge state",
		},
		{
			name: "fetch without state",
			body: `{}`,
			call: func(c *credly.Client) error {
				_, err := c.FetchBadge(context.Background(), "ext-1")
				return err
			},
			want: "missing badge state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))

			err := tt.call(client)

			var provErr *driven.BadgeProviderError
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, credly.Provider, provErr.Provider)
			assert.Equal(t, http.StatusOK, provErr.StatusCode)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// stubSecrets is an in-memory driven.SecretStore.
type stubSecrets struct {
	values map[string]string
	err    error
}

func (s *stubSecrets) Set(_ context.Context, scope, key, plaintext string) error {
	s.values[scope+"/"+key] = plaintext
	return nil
}

func (s *stubSecrets) Get(_ context.Context, scope, key string) (string, error) {
	return s.values[scope+"/"+key], s.err
}

func (s *stubSecrets) Delete(_ context.Context, scope, key string) error {
	delete(s.values, scope+"/"+key)
	return nil
}

func TestFactory_UsesStoredKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{"id":"b","state":"accepted"}}`))
	}))
	t.Cleanup(server.Close)

	secrets := &stubSecrets{values: map[string]string{
		driven.CredlySecretScope(testOrg) + "/" + driven.SecretKeyAPIKey: "org-key",
	}}
	factory := credly.NewFactory(secrets, server.Client(), server.URL)

	api, err := factory.ForOrganization(context.Background(), testOrg)
	require.NoError(t, err)

	_, err = api.FetchBadge(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("org-key")), gotAuth)
}

func TestFactory_MissingKey(t *testing.T) {
	factory := credly.NewFactory(&stubSecrets{values: map[string]string{}}, http.DefaultClient, "")

	_, err := factory.ForOrganization(context.Background(), testOrg)

	var provErr *driven.BadgeProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "configure", provErr.Operation)
}

func TestFactory_SecretStoreError(t *testing.T) {
	factory := credly.NewFactory(&stubSecrets{values: map[string]string{}, err: driven.ErrEncryptionKeyNotSet}, http.DefaultClient, "")

	_, err := factory.ForOrganization(context.Background(), testOrg)

	var provErr *driven.BadgeProviderError
	require.True(t, errors.As(err, &provErr))
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}
