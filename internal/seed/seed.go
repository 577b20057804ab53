// Package seed loads provider accounts, badge templates and user profiles
// from a yaml file into the stores.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

// File is the yaml document layout.
type File struct {
	CredlyOrganizations  []CredlyOrganization  `yaml:"credly_organizations"`
	AccredibleAPIConfigs []AccredibleAPIConfig `yaml:"accredible_api_configs"`
	Templates            []Template            `yaml:"templates"`
	Users                []User                `yaml:"users"`
}

// CredlyOrganization is a Credly organization and its API key.
type CredlyOrganization struct {
	UUID   string `yaml:"uuid"`
	APIKey string `yaml:"api_key"`
}

// AccredibleAPIConfig is an Accredible API configuration and its API key.
type AccredibleAPIConfig struct {
	ID     int64  `yaml:"id"`
	APIKey string `yaml:"api_key"`
}

// Template describes one badge definition. Which provider fields apply
// depends on Kind.
type Template struct {
	Kind        model.CredentialKind `yaml:"kind"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`

	CredlyTemplateUUID     string `yaml:"credly_template_uuid"`
	CredlyOrganizationUUID string `yaml:"credly_organization_uuid"`

	AccredibleGroupID     int64 `yaml:"accredible_group_id"`
	AccredibleAPIConfigID int64 `yaml:"accredible_api_config_id"`
}

// User is a recipient profile.
type User struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// Stores are the destinations Apply writes to.
type Stores struct {
	Secrets   driven.SecretStore
	Templates driven.TemplateStore
	Users     driven.UserDirectory
}

// Summary counts what Apply wrote.
type Summary struct {
	Secrets   int
	Templates int
	Users     int
}

// Load reads and parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &f, nil
}

// BadgeTemplates converts the seed entries to domain templates, validating each.
func (f *File) BadgeTemplates() ([]model.BadgeTemplate, error) {
	out := make([]model.BadgeTemplate, 0, len(f.Templates))
	for i, t := range f.Templates {
		tmpl := model.BadgeTemplate{Kind: t.Kind, Name: t.Name, Description: t.Description}

		switch t.Kind {
		case model.CredentialKindCredly:
			templateUUID, err := uuid.Parse(t.CredlyTemplateUUID)
			if err != nil {
				return nil, fmt.Errorf("template %d (%s): credly_template_uuid: %w", i, t.Name, err)
			}
			orgUUID, err := uuid.Parse(t.CredlyOrganizationUUID)
			if err != nil {
				return nil, fmt.Errorf("template %d (%s): credly_organization_uuid: %w", i, t.Name, err)
			}
			tmpl.Credly = &model.CredlyTemplate{UUID: templateUUID, OrganizationUUID: orgUUID}
		case model.CredentialKindAccredible:
			tmpl.Accredible = &model.AccredibleGroup{
				GroupID:     t.AccredibleGroupID,
				APIConfigID: t.AccredibleAPIConfigID,
			}
		}

		if err := tmpl.Validate(); err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
		out = append(out, tmpl)
	}
	return out, nil
}

// Apply writes f into stores. API keys go to the secret store; templates and
// users are upserted, so applying the same file twice changes nothing.
func Apply(ctx context.Context, f *File, stores Stores) (Summary, error) {
	var sum Summary

	templates, err := f.BadgeTemplates()
	if err != nil {
		return sum, err
	}

	for _, org := range f.CredlyOrganizations {
		id, err := uuid.Parse(org.UUID)
		if err != nil {
			return sum, fmt.Errorf("credly organization %q: %w", org.UUID, err)
		}
		if err := stores.Secrets.Set(ctx, driven.CredlySecretScope(id), driven.SecretKeyAPIKey, org.APIKey); err != nil {
			return sum, fmt.Errorf("store credly api key for %s: %w", id, err)
		}
		sum.Secrets++
	}

	for _, cfg := range f.AccredibleAPIConfigs {
		if cfg.ID == 0 {
			return sum, errors.New("accredible api config: id is required")
		}
		if err := stores.Secrets.Set(ctx, driven.AccredibleSecretScope(cfg.ID), driven.SecretKeyAPIKey, cfg.APIKey); err != nil {
			return sum, fmt.Errorf("store accredible api key for %d: %w", cfg.ID, err)
		}
		sum.Secrets++
	}

	for _, tmpl := range templates {
		if _, err := stores.Templates.Upsert(ctx, tmpl); err != nil {
			return sum, fmt.Errorf("upsert template %q: %w", tmpl.Name, err)
		}
		sum.Templates++
	}

	for _, u := range f.Users {
		if u.Username == "" {
			return sum, errors.New("user: username is required")
		}
		err := stores.Users.Upsert(ctx, model.User{
			Username:  u.Username,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
		if err != nil {
			return sum, fmt.Errorf("upsert user %s: %w", u.Username, err)
		}
		sum.Users++
	}

	return sum, nil
}
