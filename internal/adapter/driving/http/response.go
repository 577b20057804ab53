package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// IssueRequest is the JSON body for the award and revoke endpoints.
type IssueRequest struct {
	Username string `json:"username"`
}

// TemplateResponse is the JSON representation of a badge definition.
type TemplateResponse struct {
	ID              int64                    `json:"id"`
	Kind            string                   `json:"kind"`
	Name            string                   `json:"name"`
	Description     string                   `json:"description"`
	Summary         string                   `json:"summary,omitempty"`
	DescriptionHTML string                   `json:"description_html,omitempty"` // Only on the detail endpoint.
	CreatedAt       string                   `json:"created_at"`
	Credly          *CredlyTemplateResponse  `json:"credly,omitempty"`
	Accredible      *AccredibleGroupResponse `json:"accredible,omitempty"`
}

// CredlyTemplateResponse identifies the Credly badge template behind a definition.
type CredlyTemplateResponse struct {
	TemplateUUID     string `json:"template_uuid"`
	OrganizationUUID string `json:"organization_uuid"`
}

// AccredibleGroupResponse identifies the Accredible group behind a definition.
type AccredibleGroupResponse struct {
	GroupID     int64 `json:"group_id"`
	APIConfigID int64 `json:"api_config_id"`
}

// CredentialResponse is the JSON representation of a user credential.
type CredentialResponse struct {
	ID             int64             `json:"id"`
	Username       string            `json:"username"`
	CredentialKind string            `json:"credential_kind"`
	CredentialID   int64             `json:"credential_id"`
	Status         string            `json:"status"`
	State          string            `json:"state"`
	ExternalID     string            `json:"external_id"`
	Propagated     bool              `json:"propagated"`
	Attributes     map[string]string `json:"attributes"`
	DateOverride   *string           `json:"date_override"`
	CreatedAt      string            `json:"created_at"`
	UpdatedAt      string            `json:"updated_at"`
}

// ProviderErrorResponse is returned with 502 when a badge provider call
// failed. Credential carries the record as persisted after the failure.
type ProviderErrorResponse struct {
	Error      string              `json:"error"`
	Provider   string              `json:"provider"`
	Credential *CredentialResponse `json:"credential,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toTemplateResponse converts a domain BadgeTemplate to its JSON representation.
func toTemplateResponse(t model.BadgeTemplate) TemplateResponse {
	resp := TemplateResponse{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Name:        t.Name,
		Description: t.Description,
		Summary:     SummarizeDescription(t.Description, summaryLength),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.Credly != nil {
		resp.Credly = &CredlyTemplateResponse{
			TemplateUUID:     t.Credly.UUID.String(),
			OrganizationUUID: t.Credly.OrganizationUUID.String(),
		}
	}
	if t.Accredible != nil {
		resp.Accredible = &AccredibleGroupResponse{
			GroupID:     t.Accredible.GroupID,
			APIConfigID: t.Accredible.APIConfigID,
		}
	}
	return resp
}

// toCredentialResponse converts a domain UserCredential to its JSON representation.
// Attributes is always a non-nil object.
func toCredentialResponse(c model.UserCredential) CredentialResponse {
	attrs := make(map[string]string, len(c.Attributes))
	for _, a := range c.Attributes {
		attrs[a.Name] = a.Value
	}

	var dateOverride *string
	if c.DateOverride != nil {
		s := c.DateOverride.UTC().Format(time.RFC3339)
		dateOverride = &s
	}

	return CredentialResponse{
		ID:             c.ID,
		Username:       c.Username,
		CredentialKind: string(c.Credential.Kind),
		CredentialID:   c.Credential.ID,
		Status:         string(c.Status),
		State:          string(c.State),
		ExternalID:     c.ExternalID,
		Propagated:     c.Propagated(),
		Attributes:     attrs,
		DateOverride:   dateOverride,
		CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
