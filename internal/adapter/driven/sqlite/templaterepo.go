package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TemplateStore = (*TemplateRepo)(nil)

// TemplateRepo is the SQLite implementation of the TemplateStore port interface.
// The variant payloads of model.BadgeTemplate are flattened into nullable
// columns and rebuilt from the kind column on read.
type TemplateRepo struct {
	db  *DB
	now func() time.Time
}

// NewTemplateRepo creates a new TemplateRepo backed by the given DB.
func NewTemplateRepo(db *DB) *TemplateRepo {
	return &TemplateRepo{db: db, now: time.Now}
}

const templateColumns = `id, kind, name, description, credly_template_uuid, credly_organization_uuid,
		       accredible_group_id, accredible_api_config_id, created_at`

// Get returns the template with the given ID or driven.ErrTemplateNotFound.
func (r *TemplateRepo) Get(ctx context.Context, id int64) (*model.BadgeTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM badge_templates WHERE id = ?`

	t, err := scanTemplate(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %d: %w", id, driven.ErrTemplateNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get template %d: %w", id, err)
	}
	return t, nil
}

// Upsert inserts t when t.ID is zero and otherwise updates its name and
// description. Provider identifiers are fixed once a template exists.
func (r *TemplateRepo) Upsert(ctx context.Context, t model.BadgeTemplate) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	if t.ID != 0 {
		const query = `UPDATE badge_templates SET name = ?, description = ? WHERE id = ? AND kind = ?`
		result, err := r.db.Writer.ExecContext(ctx, query, t.Name, t.Description, t.ID, string(t.Kind))
		if err != nil {
			return 0, fmt.Errorf("update template %d: %w", t.ID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("check rows affected: %w", err)
		}
		if rows == 0 {
			return 0, fmt.Errorf("template %d: %w", t.ID, driven.ErrTemplateNotFound)
		}
		return t.ID, nil
	}

	// Templates are matched on their provider identifier, or on name for the
	// base kind, so re-seeding the same template does not create a duplicate.
	existing, err := r.findByProviderID(ctx, t)
	if err != nil {
		return 0, err
	}
	if existing != 0 {
		t.ID = existing
		return r.Upsert(ctx, t)
	}

	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	var credlyUUID, credlyOrg sql.NullString
	var groupID, apiConfigID sql.NullInt64
	if t.Credly != nil {
		credlyUUID = sql.NullString{String: t.Credly.UUID.String(), Valid: true}
		credlyOrg = sql.NullString{String: t.Credly.OrganizationUUID.String(), Valid: true}
	}
	if t.Accredible != nil {
		groupID = sql.NullInt64{Int64: t.Accredible.GroupID, Valid: true}
		apiConfigID = sql.NullInt64{Int64: t.Accredible.APIConfigID, Valid: true}
	}

	const query = `
		INSERT INTO badge_templates (
			kind, name, description, credly_template_uuid, credly_organization_uuid,
			accredible_group_id, accredible_api_config_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	var id int64
	err = r.db.Writer.QueryRowContext(ctx, query,
		string(t.Kind), t.Name, t.Description, credlyUUID, credlyOrg,
		groupID, apiConfigID, formatTime(createdAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert template %q: %w", t.Name, err)
	}
	return id, nil
}

// ListAll returns every template ordered by ID.
func (r *TemplateRepo) ListAll(ctx context.Context) ([]model.BadgeTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM badge_templates ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []model.BadgeTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}

	return templates, nil
}

func (r *TemplateRepo) findByProviderID(ctx context.Context, t model.BadgeTemplate) (int64, error) {
	var query string
	var arg any
	switch {
	case t.Credly != nil:
		query = `SELECT id FROM badge_templates WHERE credly_template_uuid = ?`
		arg = t.Credly.UUID.String()
	case t.Accredible != nil:
		query = `SELECT id FROM badge_templates WHERE accredible_group_id = ?`
		arg = t.Accredible.GroupID
	default:
		query = `SELECT id FROM badge_templates WHERE kind = ? AND name = ? ORDER BY id LIMIT 1`
		return r.scanID(ctx, query, string(model.CredentialKindBadgeTemplate), t.Name)
	}

	return r.scanID(ctx, query, arg)
}

func (r *TemplateRepo) scanID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := r.db.Writer.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find template by provider id: %w", err)
	}
	return id, nil
}

func scanTemplate(s scanner) (*model.BadgeTemplate, error) {
	var t model.BadgeTemplate
	var kind, createdAt string
	var credlyUUID, credlyOrg sql.NullString
	var groupID, apiConfigID sql.NullInt64

	err := s.Scan(
		&t.ID, &kind, &t.Name, &t.Description, &credlyUUID, &credlyOrg,
		&groupID, &apiConfigID, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	t.Kind = model.CredentialKind(kind)
	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	switch t.Kind {
	case model.CredentialKindCredly:
		templateUUID, err := uuid.Parse(credlyUUID.String)
		if err != nil {
			return nil, fmt.Errorf("parse credly template uuid: %w", err)
		}
		orgUUID, err := uuid.Parse(credlyOrg.String)
		if err != nil {
			return nil, fmt.Errorf("parse credly organization uuid: %w", err)
		}
		t.Credly = &model.CredlyTemplate{UUID: templateUUID, OrganizationUUID: orgUUID}
	case model.CredentialKindAccredible:
		t.Accredible = &model.AccredibleGroup{GroupID: groupID.Int64, APIConfigID: apiConfigID.Int64}
	}

	return &t, nil
}
