package model

// --- Source-table change NATS payloads --- //

// UpsertSourcePayload carries an inserted or updated row from one of the
// source tables. The table itself is implied by the event type.
type UpsertSourcePayload struct {
	ID          string `json:"id,omitempty" validate:"required"`
	CompanyID   string `json:"company_id,omitempty" validate:"required"`
	ContactID   string `json:"contact_id,omitempty" validate:"omitempty"`
	Name        string `json:"name,omitempty" validate:"required"`
	Phone       string `json:"phone,omitempty" validate:"omitempty"`
	Whatsapp    string `json:"whatsapp,omitempty" validate:"omitempty"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Notes       string `json:"notes,omitempty" validate:"omitempty"`
	Language    string `json:"language,omitempty" validate:"omitempty"`
	Address     string `json:"address,omitempty" validate:"omitempty"`
	OfficeName  string `json:"office_name,omitempty" validate:"omitempty"`
	CrNumber    string `json:"cr_number,omitempty" validate:"omitempty"`
	Nationality string `json:"nationality,omitempty" validate:"omitempty"`
	Iban        string `json:"iban,omitempty" validate:"omitempty"`
	IDNumber    string `json:"id_number,omitempty" validate:"omitempty"`
	CompanyName string `json:"company_name,omitempty" validate:"omitempty"`
	ServiceType string `json:"service_type,omitempty" validate:"omitempty"`
}

// ToSourceRow converts the payload into the table-neutral row view.
func (p *UpsertSourcePayload) ToSourceRow() SourceRow {
	return SourceRow{
		ID:          p.ID,
		CompanyID:   p.CompanyID,
		ContactID:   p.ContactID,
		Name:        p.Name,
		Phone:       p.Phone,
		Whatsapp:    p.Whatsapp,
		Email:       p.Email,
		Notes:       p.Notes,
		Language:    p.Language,
		Address:     p.Address,
		OfficeName:  p.OfficeName,
		CrNumber:    p.CrNumber,
		Nationality: p.Nationality,
		Iban:        p.Iban,
		IDNumber:    p.IDNumber,
		CompanyName: p.CompanyName,
		ServiceType: p.ServiceType,
	}
}

// DeleteSourcePayload signals a row removed from a source table.
type DeleteSourcePayload struct {
	ID        string `json:"id,omitempty" validate:"required"`
	CompanyID string `json:"company_id,omitempty" validate:"required"`
	ContactID string `json:"contact_id,omitempty" validate:"omitempty"`
}

// --- Canonical-contact command payloads --- //

// UpsertContactPayload carries a canonical contact created or edited in the
// CRM frontend. A set ContactID targets that contact; an empty one creates a
// fresh record. Phone values arrive raw and get normalized downstream.
type UpsertContactPayload struct {
	ContactID              string `json:"contact_id,omitempty" validate:"omitempty"`
	CompanyID              string `json:"company_id,omitempty" validate:"required"`
	FullName               string `json:"full_name,omitempty" validate:"required"`
	ShortName              string `json:"short_name,omitempty" validate:"omitempty"`
	Language               string `json:"language,omitempty" validate:"omitempty"`
	Notes                  string `json:"notes,omitempty" validate:"omitempty"`
	Rating                 int    `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Roles                  string `json:"roles,omitempty" validate:"omitempty"`
	Status                 string `json:"status,omitempty" validate:"omitempty"`
	PreferredContactMethod string `json:"preferred_contact_method,omitempty" validate:"omitempty"`
	Phone                  string `json:"phone,omitempty" validate:"omitempty"`
	Whatsapp               string `json:"whatsapp,omitempty" validate:"omitempty"`
	Email                  string `json:"email,omitempty" validate:"omitempty,email"`
	OfficeName             string `json:"office_name,omitempty" validate:"omitempty"`
	CrNumber               string `json:"cr_number,omitempty" validate:"omitempty"`
	Nationality            string `json:"nationality,omitempty" validate:"omitempty"`
	Iban                   string `json:"iban,omitempty" validate:"omitempty"`
	IDNumber               string `json:"id_number,omitempty" validate:"omitempty"`
	Address                string `json:"address,omitempty" validate:"omitempty"`
	CompanyName            string `json:"company_name,omitempty" validate:"omitempty"`
}

// DeleteContactPayload asks for a canonical contact's deletion to be
// propagated to its synced source rows.
type DeleteContactPayload struct {
	ContactID     string `json:"contact_id,omitempty" validate:"required"`
	CompanyID     string `json:"company_id,omitempty" validate:"required"`
	OriginalTable string `json:"original_table,omitempty" validate:"omitempty"`
}

// SyncAllPayload triggers a full bidirectional sync pass.
type SyncAllPayload struct {
	CompanyID string `json:"company_id,omitempty" validate:"required"`
	RequestID string `json:"request_id,omitempty" validate:"omitempty"`
}

// DedupPayload triggers a deduplication run with the given options.
type DedupPayload struct {
	CompanyID           string `json:"company_id,omitempty" validate:"required"`
	RequestID           string `json:"request_id,omitempty" validate:"omitempty"`
	DryRun              bool   `json:"dry_run,omitempty"`
	BatchSize           int    `json:"batch_size,omitempty" validate:"omitempty,gte=0"`
	SimilarityThreshold int    `json:"similarity_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	PreserveData        bool   `json:"preserve_data,omitempty"`
}

// Options converts the payload into engine options.
func (p *DedupPayload) Options() DedupOptions {
	return DedupOptions{
		DryRun:              p.DryRun,
		BatchSize:           p.BatchSize,
		SimilarityThreshold: p.SimilarityThreshold,
		PreserveData:        p.PreserveData,
	}
}
