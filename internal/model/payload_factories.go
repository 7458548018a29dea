package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Ensure gofakeit is seeded. It might already be seeded by factories.go's init,
// but adding it here ensures this file is self-sufficient if used independently.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// --- NATS Payload Factories ---

// NewUpsertSourcePayload creates a new UpsertSourcePayload instance with
// default fake data shaped for the given source table.
func NewUpsertSourcePayload(table string, overrideDefaults ...*UpsertSourcePayload) *UpsertSourcePayload {
	base := &UpsertSourcePayload{
		ID:        gofakeit.UUID(),
		CompanyID: "tenant_" + gofakeit.LetterN(10),
		Name:      gofakeit.Name(),
		Phone:     "05" + gofakeit.DigitN(8),
		Email:     gofakeit.Email(),
		Notes:     gofakeit.Sentence(6),
	}

	switch table {
	case TableClients:
		base.Language = gofakeit.RandomString([]string{"ar", "en"})
		base.Address = gofakeit.Address().Address
	case TableLandBrokers:
		base.OfficeName = gofakeit.Company()
		base.CrNumber = gofakeit.DigitN(10)
	case TablePropertyOwners:
		base.Address = gofakeit.Address().Address
		base.Nationality = gofakeit.Country()
		base.Iban = "AE" + gofakeit.DigitN(21)
		base.IDNumber = gofakeit.DigitN(15)
	case TableRentalTenants:
		base.Address = gofakeit.Address().Address
		base.Nationality = gofakeit.Country()
		base.IDNumber = gofakeit.DigitN(15)
	case TableSuppliers:
		base.CompanyName = gofakeit.Company()
		base.ServiceType = gofakeit.RandomString([]string{"maintenance", "cleaning", "security"})
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.ContactID != "" {
			base.ContactID = ovr.ContactID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.Phone != "" {
			base.Phone = ovr.Phone
		}
		if ovr.Whatsapp != "" {
			base.Whatsapp = ovr.Whatsapp
		}
		if ovr.Email != "" {
			base.Email = ovr.Email
		}
		if ovr.Notes != "" {
			base.Notes = ovr.Notes
		}
		if ovr.Language != "" {
			base.Language = ovr.Language
		}
		if ovr.Address != "" {
			base.Address = ovr.Address
		}
		if ovr.OfficeName != "" {
			base.OfficeName = ovr.OfficeName
		}
		if ovr.CrNumber != "" {
			base.CrNumber = ovr.CrNumber
		}
		if ovr.Nationality != "" {
			base.Nationality = ovr.Nationality
		}
		if ovr.Iban != "" {
			base.Iban = ovr.Iban
		}
		if ovr.IDNumber != "" {
			base.IDNumber = ovr.IDNumber
		}
		if ovr.CompanyName != "" {
			base.CompanyName = ovr.CompanyName
		}
		if ovr.ServiceType != "" {
			base.ServiceType = ovr.ServiceType
		}
	}
	return base
}

// NewDeleteSourcePayload creates a new DeleteSourcePayload instance with default fake data.
func NewDeleteSourcePayload(overrideDefaults ...*DeleteSourcePayload) *DeleteSourcePayload {
	base := &DeleteSourcePayload{
		ID:        gofakeit.UUID(),
		CompanyID: "tenant_" + gofakeit.LetterN(10),
		ContactID: gofakeit.UUID(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.ContactID != "" {
			base.ContactID = ovr.ContactID
		}
	}
	return base
}

// NewUpsertContactPayload creates a new UpsertContactPayload instance with default fake data.
func NewUpsertContactPayload(overrideDefaults ...*UpsertContactPayload) *UpsertContactPayload {
	base := &UpsertContactPayload{
		CompanyID: "tenant_" + gofakeit.LetterN(10),
		FullName:  gofakeit.Name(),
		Phone:     "05" + gofakeit.DigitN(8),
		Email:     gofakeit.Email(),
		Roles:     gofakeit.RandomString([]string{RoleClient, RoleBroker, RoleOwner, RoleTenant, RoleSupplier}),
		Rating:    gofakeit.Number(1, 5),
		Notes:     gofakeit.Sentence(6),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ContactID != "" {
			base.ContactID = ovr.ContactID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.FullName != "" {
			base.FullName = ovr.FullName
		}
		if ovr.Phone != "" {
			base.Phone = ovr.Phone
		}
		if ovr.Roles != "" {
			base.Roles = ovr.Roles
		}
	}
	return base
}

// NewDeleteContactPayload creates a new DeleteContactPayload instance with default fake data.
func NewDeleteContactPayload(overrideDefaults ...*DeleteContactPayload) *DeleteContactPayload {
	base := &DeleteContactPayload{
		ContactID:     gofakeit.UUID(),
		CompanyID:     "tenant_" + gofakeit.LetterN(10),
		OriginalTable: gofakeit.RandomString(SourceTables()),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ContactID != "" {
			base.ContactID = ovr.ContactID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.OriginalTable != "" {
			base.OriginalTable = ovr.OriginalTable
		}
	}
	return base
}

// NewDedupPayload creates a new DedupPayload instance with default fake data.
func NewDedupPayload(overrideDefaults ...*DedupPayload) *DedupPayload {
	base := &DedupPayload{
		CompanyID:           "tenant_" + gofakeit.LetterN(10),
		RequestID:           gofakeit.UUID(),
		DryRun:              gofakeit.Bool(),
		BatchSize:           gofakeit.Number(10, 100),
		SimilarityThreshold: gofakeit.Number(70, 95),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.RequestID != "" {
			base.RequestID = ovr.RequestID
		}
		base.DryRun = ovr.DryRun
		base.PreserveData = ovr.PreserveData
		if ovr.BatchSize != 0 {
			base.BatchSize = ovr.BatchSize
		}
		if ovr.SimilarityThreshold != 0 {
			base.SimilarityThreshold = ovr.SimilarityThreshold
		}
	}
	return base
}
