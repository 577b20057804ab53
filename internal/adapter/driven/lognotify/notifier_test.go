package lognotify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/badgehub/internal/adapter/driven/lognotify"
	"github.com/ericfisherdev/badgehub/internal/domain/model"
)

func TestNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := lognotify.NewNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	cred := model.UserCredential{
		ID:         4,
		Username:   "alice",
		Credential: model.CredentialRef{Kind: model.CredentialKindAccredible, ID: 20},
		Status:     model.CredentialStatusRevoked,
	}
	n.NotifyBadgeRevoked(context.Background(), cred)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "badge event", entry["msg"])
	assert.Equal(t, "badge.revoked", entry["type"])
	assert.Equal(t, "alice", entry["username"])
	assert.Equal(t, "accredible_group", entry["kind"])
	assert.InDelta(t, 20, entry["template_id"], 0)
}

func TestNotifier_Awarded(t *testing.T) {
	var buf bytes.Buffer
	n := lognotify.NewNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	n.NotifyBadgeAwarded(context.Background(), model.UserCredential{Username: "bob"})

	assert.Contains(t, buf.String(), `"type":"badge.awarded"`)
}

func TestNewNotifier_DefaultLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		lognotify.NewNotifier(nil).NotifyBadgeAwarded(context.Background(), model.UserCredential{})
	})
}
