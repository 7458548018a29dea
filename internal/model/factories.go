package model

import (
	"encoding/json"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/datatypes"

	"gitlab.com/aqarsync/api/contact-identity-service/pkg/utils"
)

// RandomJSONB generates random JSON data for testing.
func RandomJSONB() datatypes.JSON {
	jsonData := map[string]interface{}{
		"stub_key": gofakeit.Word(),
		"stub_num": gofakeit.Number(1, 100),
	}
	bytes, _ := json.Marshal(jsonData)
	return datatypes.JSON(bytes)
}

// RandomJSONBMap generates JSON data from a map for testing.
func RandomJSONBMap(data map[string]interface{}) datatypes.JSON {
	bytes, _ := json.Marshal(data)
	return datatypes.JSON(bytes)
}

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// NewEnhancedContact creates a new EnhancedContact instance with default fake data.
func NewEnhancedContact(overrideDefaults ...*EnhancedContact) *EnhancedContact {
	base := &EnhancedContact{
		ID:                     gofakeit.UUID(),
		CompanyID:              "tenant_" + gofakeit.LetterN(10),
		FullName:               gofakeit.Name(),
		ShortName:              gofakeit.FirstName(),
		Language:               gofakeit.RandomString([]string{"ar", "en"}),
		Notes:                  gofakeit.Sentence(10),
		Rating:                 gofakeit.Number(1, 5),
		Roles:                  gofakeit.RandomString([]string{RoleClient, RoleBroker, RoleOwner, RoleTenant, RoleSupplier}),
		Status:                 gofakeit.RandomString([]string{ContactStatusNew, ContactStatusActive, ContactStatusArchived}),
		PreferredContactMethod: gofakeit.RandomString([]string{ChannelTypeWhatsapp, ChannelTypeMobile, ChannelTypeEmail}),
		PhoneNumber:            "5" + gofakeit.DigitN(8),
		OriginalTable:          gofakeit.RandomString(SourceTables()),
		OriginalID:             gofakeit.UUID(),
		CreatedAt:              utils.Now().Add(-time.Duration(gofakeit.Number(1, 365)) * 24 * time.Hour),
		UpdatedAt:              utils.Now(),
		LastMetadata:           RandomJSONB(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		// Allow overriding with empty string by direct assignment
		base.ID = ovr.ID
		base.CompanyID = ovr.CompanyID
		base.FullName = ovr.FullName
		base.ShortName = ovr.ShortName
		base.Language = ovr.Language
		base.Notes = ovr.Notes
		base.Roles = ovr.Roles
		base.Status = ovr.Status
		base.PreferredContactMethod = ovr.PreferredContactMethod
		base.PhoneNumber = ovr.PhoneNumber
		base.OriginalTable = ovr.OriginalTable
		base.OriginalID = ovr.OriginalID
		base.OfficeName = ovr.OfficeName
		base.CrNumber = ovr.CrNumber
		base.Nationality = ovr.Nationality
		base.Iban = ovr.Iban
		base.IDNumber = ovr.IDNumber
		base.Address = ovr.Address
		base.CompanyName = ovr.CompanyName

		if ovr.Rating != 0 {
			base.Rating = ovr.Rating
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
		// Allow overriding with nil for datatypes.JSON by direct assignment
		base.LastMetadata = ovr.LastMetadata
		base.Channels = ovr.Channels
	}
	return base
}

// NewContactChannel creates a new ContactChannel instance with default fake data.
func NewContactChannel(overrideDefaults ...*ContactChannel) *ContactChannel {
	base := &ContactChannel{
		ID:        gofakeit.UUID(),
		ContactID: gofakeit.UUID(),
		Type:      gofakeit.RandomString([]string{ChannelTypeMobile, ChannelTypeWhatsapp, ChannelTypeEmail}),
		Value:     "9715" + gofakeit.DigitN(8),
		IsPrimary: gofakeit.Bool(),
		Label:     gofakeit.Word(),
		CreatedAt: utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		base.ID = ovr.ID
		base.ContactID = ovr.ContactID
		base.Type = ovr.Type
		base.Value = ovr.Value
		base.IsPrimary = ovr.IsPrimary
		base.Label = ovr.Label
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
	}
	return base
}

// NewSourceRow creates a SourceRow with default fake data shaped for the given
// table (role-specific columns only filled where the table carries them).
func NewSourceRow(table string, overrideDefaults ...*SourceRow) SourceRow {
	base := SourceRow{
		ID:        gofakeit.UUID(),
		CompanyID: "tenant_" + gofakeit.LetterN(10),
		Name:      gofakeit.Name(),
		Phone:     "05" + gofakeit.DigitN(8),
		Email:     gofakeit.Email(),
		Notes:     gofakeit.Sentence(6),
		CreatedAt: utils.Now().Add(-time.Duration(gofakeit.Number(1, 180)) * 24 * time.Hour),
		UpdatedAt: utils.Now(),
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
		base.ServiceType = gofakeit.RandomString([]string{"maintenance", "cleaning", "security", "landscaping"})
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		base.ID = ovr.ID
		base.CompanyID = ovr.CompanyID
		base.ContactID = ovr.ContactID
		base.Name = ovr.Name
		base.Phone = ovr.Phone
		base.Whatsapp = ovr.Whatsapp
		base.Email = ovr.Email
		base.Notes = ovr.Notes
		base.Language = ovr.Language
		base.Address = ovr.Address
		base.OfficeName = ovr.OfficeName
		base.CrNumber = ovr.CrNumber
		base.Nationality = ovr.Nationality
		base.Iban = ovr.Iban
		base.IDNumber = ovr.IDNumber
		base.CompanyName = ovr.CompanyName
		base.ServiceType = ovr.ServiceType
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}
