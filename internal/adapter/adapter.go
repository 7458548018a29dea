package adapter

import (
	"fmt"

	apperrors "gitlab.com/aqarsync/api/contact-identity-service/internal/apperrors"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
	"gitlab.com/aqarsync/api/contact-identity-service/pkg/utils"
)

// SourceAdapter translates between one source table's rows and the canonical
// contact shape. Each of the five source tables gets its own adapter; the
// sync coordinator never touches table-specific columns directly.
type SourceAdapter interface {
	// Table returns the source table this adapter serves.
	Table() string
	// Role returns the role tag stamped onto canonical contacts built from
	// this table.
	Role() string
	// JoinKey returns the normalized phone used to match the row against
	// canonical contacts. Empty means unmatchable: the row can still create
	// a contact, it just never joins an existing one.
	JoinKey(row model.SourceRow) string
	// ToCanonical builds the canonical contact carried by this row. Rows
	// missing required source fields fail with ErrValidation.
	ToCanonical(row model.SourceRow) (model.EnhancedContact, error)
	// FromCanonical projects a canonical contact back onto this table's
	// columns. Fields the table does not know are dropped.
	FromCanonical(contact model.EnhancedContact) model.SourceRow
}

// base carries the behavior every table adapter shares.
type base struct {
	table       string
	role        string
	countryCode string
}

func (b base) Table() string { return b.table }
func (b base) Role() string  { return b.role }

func (b base) JoinKey(row model.SourceRow) string {
	return utils.NormalizePhone(row.Phone, b.countryCode)
}

// canonicalCore builds the fields every adapter fills the same way. The
// caller layers its table-specific columns on top.
func (b base) canonicalCore(row model.SourceRow) (model.EnhancedContact, error) {
	if row.ID == "" {
		return model.EnhancedContact{}, fmt.Errorf("%w: %s row has no id", apperrors.ErrValidation, b.table)
	}
	if row.Name == "" {
		return model.EnhancedContact{}, fmt.Errorf("%w: %s row %s has no name", apperrors.ErrValidation, b.table, row.ID)
	}
	phone := b.JoinKey(row)
	contact := model.EnhancedContact{
		CompanyID:     row.CompanyID,
		FullName:      row.Name,
		Notes:         row.Notes,
		Roles:         b.role,
		Status:        model.ContactStatusActive,
		PhoneNumber:   phone,
		OriginalTable: b.table,
		OriginalID:    row.ID,
		CreatedAt:     row.CreatedAt,
	}
	contact.Channels = model.BuildChannels("", phone, utils.NormalizePhone(row.Whatsapp, b.countryCode), row.Email)
	return contact, nil
}

// rowCore projects the fields every adapter writes back the same way.
func (b base) rowCore(contact model.EnhancedContact) model.SourceRow {
	row := model.SourceRow{
		CompanyID: contact.CompanyID,
		ContactID: contact.ID,
		Name:      contact.FullName,
		Phone:     contact.PhoneNumber,
		Notes:     contact.Notes,
	}
	if contact.OriginalTable == b.table {
		row.ID = contact.OriginalID
	}
	for _, ch := range contact.Channels {
		switch ch.Type {
		case model.ChannelTypeWhatsapp:
			row.Whatsapp = ch.Value
		case model.ChannelTypeEmail:
			row.Email = ch.Value
		}
	}
	return row
}

// --- clients ---

type clientAdapter struct{ base }

func (a clientAdapter) ToCanonical(row model.SourceRow) (model.EnhancedContact, error) {
	contact, err := a.canonicalCore(row)
	if err != nil {
		return model.EnhancedContact{}, err
	}
	contact.Language = row.Language
	contact.Address = row.Address
	return contact, nil
}

func (a clientAdapter) FromCanonical(contact model.EnhancedContact) model.SourceRow {
	row := a.rowCore(contact)
	row.Language = contact.Language
	row.Address = contact.Address
	return row
}

// --- land_brokers ---

type brokerAdapter struct{ base }

func (a brokerAdapter) ToCanonical(row model.SourceRow) (model.EnhancedContact, error) {
	contact, err := a.canonicalCore(row)
	if err != nil {
		return model.EnhancedContact{}, err
	}
	contact.OfficeName = row.OfficeName
	contact.CrNumber = row.CrNumber
	return contact, nil
}

func (a brokerAdapter) FromCanonical(contact model.EnhancedContact) model.SourceRow {
	row := a.rowCore(contact)
	row.OfficeName = contact.OfficeName
	row.CrNumber = contact.CrNumber
	return row
}

// --- property_owners ---

type ownerAdapter struct{ base }

func (a ownerAdapter) ToCanonical(row model.SourceRow) (model.EnhancedContact, error) {
	contact, err := a.canonicalCore(row)
	if err != nil {
		return model.EnhancedContact{}, err
	}
	contact.Address = row.Address
	contact.Nationality = row.Nationality
	contact.Iban = row.Iban
	contact.IDNumber = row.IDNumber
	return contact, nil
}

func (a ownerAdapter) FromCanonical(contact model.EnhancedContact) model.SourceRow {
	row := a.rowCore(contact)
	row.Address = contact.Address
	row.Nationality = contact.Nationality
	row.Iban = contact.Iban
	row.IDNumber = contact.IDNumber
	return row
}

// --- rental_tenants ---

type tenantAdapter struct{ base }

func (a tenantAdapter) ToCanonical(row model.SourceRow) (model.EnhancedContact, error) {
	contact, err := a.canonicalCore(row)
	if err != nil {
		return model.EnhancedContact{}, err
	}
	contact.Address = row.Address
	contact.Nationality = row.Nationality
	contact.IDNumber = row.IDNumber
	return contact, nil
}

func (a tenantAdapter) FromCanonical(contact model.EnhancedContact) model.SourceRow {
	row := a.rowCore(contact)
	row.Address = contact.Address
	row.Nationality = contact.Nationality
	row.IDNumber = contact.IDNumber
	return row
}

// --- suppliers ---

type supplierAdapter struct{ base }

func (a supplierAdapter) ToCanonical(row model.SourceRow) (model.EnhancedContact, error) {
	contact, err := a.canonicalCore(row)
	if err != nil {
		return model.EnhancedContact{}, err
	}
	contact.CompanyName = row.CompanyName
	return contact, nil
}

func (a supplierAdapter) FromCanonical(contact model.EnhancedContact) model.SourceRow {
	row := a.rowCore(contact)
	row.CompanyName = contact.CompanyName
	return row
}
