package driven

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
)

// ErrEncryptionKeyNotSet is returned by SecretStore operations when
// BADGEHUB_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set BADGEHUB_SECRET_KEY")

// SecretStore defines the driven port for encrypted provider secrets such as
// API keys. Scope identifies the provider account ("credly:<org uuid>",
// "accredible:<api config id>") and key names the secret within it.
// The adapter is responsible for encryption; values cross this boundary as
// plaintext.
type SecretStore interface {
	// Set stores or replaces the secret. Returns ErrEncryptionKeyNotSet if the
	// adapter was constructed without an encryption key.
	Set(ctx context.Context, scope, key, plaintext string) error

	// Get retrieves the secret, or ("", nil) when none exists.
	Get(ctx context.Context, scope, key string) (string, error)

	// Delete removes the secret. Deleting a missing secret is not an error.
	Delete(ctx context.Context, scope, key string) error
}

// SecretKeyAPIKey names the API key secret of a provider account.
const SecretKeyAPIKey = "api_key"

// CredlySecretScope is the secret scope of a Credly organization.
func CredlySecretScope(organization uuid.UUID) string {
	return "credly:" + organization.String()
}

// AccredibleSecretScope is the secret scope of an Accredible API configuration.
func AccredibleSecretScope(apiConfigID int64) string {
	return "accredible:" + strconv.FormatInt(apiConfigID, 10)
}
