package model_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
)

func TestBadgeTemplateValidate(t *testing.T) {
	credly := &model.CredlyTemplate{UUID: uuid.New(), OrganizationUUID: uuid.New()}
	accredible := &model.AccredibleGroup{GroupID: 501, APIConfigID: 7}

	tests := []struct {
		name    string
		tmpl    model.BadgeTemplate
		wantErr bool
	}{
		{"base", model.BadgeTemplate{Kind: model.CredentialKindBadgeTemplate, Name: "Mentor"}, false},
		{"credly", model.BadgeTemplate{Kind: model.CredentialKindCredly, Name: "Go", Credly: credly}, false},
		{"accredible", model.BadgeTemplate{Kind: model.CredentialKindAccredible, Name: "Cloud", Accredible: accredible}, false},
		{"missing name", model.BadgeTemplate{Kind: model.CredentialKindBadgeTemplate}, true},
		{"unknown kind", model.BadgeTemplate{Kind: "sticker", Name: "x"}, true},
		{"base with payload", model.BadgeTemplate{Kind: model.CredentialKindBadgeTemplate, Name: "x", Credly: credly}, true},
		{"credly without payload", model.BadgeTemplate{Kind: model.CredentialKindCredly, Name: "x"}, true},
		{"credly with both payloads", model.BadgeTemplate{Kind: model.CredentialKindCredly, Name: "x", Credly: credly, Accredible: accredible}, true},
		{"credly nil uuid", model.BadgeTemplate{Kind: model.CredentialKindCredly, Name: "x", Credly: &model.CredlyTemplate{OrganizationUUID: uuid.New()}}, true},
		{"accredible without payload", model.BadgeTemplate{Kind: model.CredentialKindAccredible, Name: "x"}, true},
		{"accredible zero group", model.BadgeTemplate{Kind: model.CredentialKindAccredible, Name: "x", Accredible: &model.AccredibleGroup{APIConfigID: 7}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tmpl.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBadgeTemplateRef(t *testing.T) {
	tmpl := model.BadgeTemplate{ID: 12, Kind: model.CredentialKindAccredible}
	assert.Equal(t, model.CredentialRef{Kind: model.CredentialKindAccredible, ID: 12}, tmpl.Ref())
}

func TestCredentialKindValid(t *testing.T) {
	assert.True(t, model.CredentialKindBadgeTemplate.Valid())
	assert.True(t, model.CredentialKindCredly.Valid())
	assert.True(t, model.CredentialKindAccredible.Valid())
	assert.False(t, model.CredentialKind("").Valid())
	assert.False(t, model.CredentialKind("open_badge").Valid())
}
