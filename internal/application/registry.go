package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

// ErrNoIssuer is returned when a template's kind has no registered issuer.
var ErrNoIssuer = errors.New("no issuer registered for credential kind")

// IssuerRegistry routes templates to the issuer of their kind.
type IssuerRegistry struct {
	templates driven.TemplateStore
	issuers   map[model.CredentialKind]*BadgeIssuer
	order     []model.CredentialKind
}

// NewIssuerRegistry creates a registry over issuers. A later issuer for the
// same kind replaces an earlier one.
func NewIssuerRegistry(templates driven.TemplateStore, issuers ...*BadgeIssuer) *IssuerRegistry {
	r := &IssuerRegistry{
		templates: templates,
		issuers:   make(map[model.CredentialKind]*BadgeIssuer, len(issuers)),
	}
	for _, issuer := range issuers {
		if _, ok := r.issuers[issuer.Kind()]; !ok {
			r.order = append(r.order, issuer.Kind())
		}
		r.issuers[issuer.Kind()] = issuer
	}
	return r
}

// Issuer returns the issuer for kind.
func (r *IssuerRegistry) Issuer(kind model.CredentialKind) (*BadgeIssuer, bool) {
	issuer, ok := r.issuers[kind]
	return issuer, ok
}

// Issuers returns every registered issuer in registration order.
func (r *IssuerRegistry) Issuers() []*BadgeIssuer {
	out := make([]*BadgeIssuer, 0, len(r.order))
	for _, kind := range r.order {
		out = append(out, r.issuers[kind])
	}
	return out
}

// ForTemplate looks up template id and returns the issuer for its kind.
func (r *IssuerRegistry) ForTemplate(ctx context.Context, id int64) (*BadgeIssuer, error) {
	tmpl, err := r.templates.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	issuer, ok := r.issuers[tmpl.Kind]
	if !ok {
		return nil, fmt.Errorf("template %d: %w: %s", id, ErrNoIssuer, tmpl.Kind)
	}
	return issuer, nil
}
