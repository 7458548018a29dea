package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// Source table names. These are the five role-specific tables the canonical
// enhanced_contacts table is kept in sync with.
const (
	TableClients        = "clients"
	TableLandBrokers    = "land_brokers"
	TablePropertyOwners = "property_owners"
	TableRentalTenants  = "rental_tenants"
	TableSuppliers      = "suppliers"
)

// SourceTables lists every source table in sync order.
func SourceTables() []string {
	return []string{
		TableClients,
		TableLandBrokers,
		TablePropertyOwners,
		TableRentalTenants,
		TableSuppliers,
	}
}

// SourceRow is the flat, table-neutral view of a row in any source table.
// Adapters and the sync coordinator work on SourceRow values; the storage
// layer converts to and from the concrete per-table models. Fields a table
// does not carry stay empty.
type SourceRow struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id,omitempty"`
	ContactID   string    `json:"contact_id,omitempty"` // back-reference to enhanced_contacts
	Name        string    `json:"name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Whatsapp    string    `json:"whatsapp,omitempty"`
	Email       string    `json:"email,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Language    string    `json:"language,omitempty"`
	Address     string    `json:"address,omitempty"`
	OfficeName  string    `json:"office_name,omitempty"`  // land_brokers
	CrNumber    string    `json:"cr_number,omitempty"`    // land_brokers
	Nationality string    `json:"nationality,omitempty"`  // property_owners, rental_tenants
	Iban        string    `json:"iban,omitempty"`         // property_owners
	IDNumber    string    `json:"id_number,omitempty"`    // property_owners, rental_tenants
	CompanyName string    `json:"company_name,omitempty"` // suppliers
	ServiceType string    `json:"service_type,omitempty"` // suppliers
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Client is a buyer/customer row in the clients table.
type Client struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	CompanyID string    `json:"company_id,omitempty" gorm:"column:company_id"`
	ContactID string    `json:"contact_id,omitempty" gorm:"index;type:text"`
	Name      string    `json:"name,omitempty" gorm:"type:text"`
	Phone     string    `json:"phone,omitempty" gorm:"index;type:text"`
	Whatsapp  string    `json:"whatsapp,omitempty" gorm:"type:text"`
	Email     string    `json:"email,omitempty" gorm:"type:text"`
	Notes     string    `json:"notes,omitempty" gorm:"type:text"`
	Language  string    `json:"language,omitempty" gorm:"type:text"`
	Address   string    `json:"address,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

func (Client) TableName(namer schema.Namer) string {
	return namer.TableName(TableClients)
}

// LandBroker is a row in the land_brokers table.
type LandBroker struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text"`
	CompanyID  string    `json:"company_id,omitempty" gorm:"column:company_id"`
	ContactID  string    `json:"contact_id,omitempty" gorm:"index;type:text"`
	Name       string    `json:"name,omitempty" gorm:"type:text"`
	Phone      string    `json:"phone,omitempty" gorm:"index;type:text"`
	Whatsapp   string    `json:"whatsapp,omitempty" gorm:"type:text"`
	Email      string    `json:"email,omitempty" gorm:"type:text"`
	Notes      string    `json:"notes,omitempty" gorm:"type:text"`
	OfficeName string    `json:"office_name,omitempty" gorm:"type:text"`
	CrNumber   string    `json:"cr_number,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

func (LandBroker) TableName(namer schema.Namer) string {
	return namer.TableName(TableLandBrokers)
}

// PropertyOwner is a row in the property_owners table.
type PropertyOwner struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	CompanyID   string    `json:"company_id,omitempty" gorm:"column:company_id"`
	ContactID   string    `json:"contact_id,omitempty" gorm:"index;type:text"`
	Name        string    `json:"name,omitempty" gorm:"type:text"`
	Phone       string    `json:"phone,omitempty" gorm:"index;type:text"`
	Whatsapp    string    `json:"whatsapp,omitempty" gorm:"type:text"`
	Email       string    `json:"email,omitempty" gorm:"type:text"`
	Notes       string    `json:"notes,omitempty" gorm:"type:text"`
	Address     string    `json:"address,omitempty" gorm:"type:text"`
	Nationality string    `json:"nationality,omitempty" gorm:"type:text"`
	Iban        string    `json:"iban,omitempty" gorm:"type:text"`
	IDNumber    string    `json:"id_number,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

func (PropertyOwner) TableName(namer schema.Namer) string {
	return namer.TableName(TablePropertyOwners)
}

// RentalTenant is a row in the rental_tenants table.
type RentalTenant struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	CompanyID   string    `json:"company_id,omitempty" gorm:"column:company_id"`
	ContactID   string    `json:"contact_id,omitempty" gorm:"index;type:text"`
	Name        string    `json:"name,omitempty" gorm:"type:text"`
	Phone       string    `json:"phone,omitempty" gorm:"index;type:text"`
	Whatsapp    string    `json:"whatsapp,omitempty" gorm:"type:text"`
	Email       string    `json:"email,omitempty" gorm:"type:text"`
	Notes       string    `json:"notes,omitempty" gorm:"type:text"`
	Address     string    `json:"address,omitempty" gorm:"type:text"`
	Nationality string    `json:"nationality,omitempty" gorm:"type:text"`
	IDNumber    string    `json:"id_number,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

func (RentalTenant) TableName(namer schema.Namer) string {
	return namer.TableName(TableRentalTenants)
}

// Supplier is a row in the suppliers table.
type Supplier struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	CompanyID   string    `json:"company_id,omitempty" gorm:"column:company_id"`
	ContactID   string    `json:"contact_id,omitempty" gorm:"index;type:text"`
	Name        string    `json:"name,omitempty" gorm:"type:text"`
	Phone       string    `json:"phone,omitempty" gorm:"index;type:text"`
	Whatsapp    string    `json:"whatsapp,omitempty" gorm:"type:text"`
	Email       string    `json:"email,omitempty" gorm:"type:text"`
	Notes       string    `json:"notes,omitempty" gorm:"type:text"`
	CompanyName string    `json:"company_name,omitempty" gorm:"type:text"`
	ServiceType string    `json:"service_type,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

func (Supplier) TableName(namer schema.Namer) string {
	return namer.TableName(TableSuppliers)
}

// ToRow flattens a Client into the table-neutral view.
func (m *Client) ToRow() SourceRow {
	return SourceRow{
		ID: m.ID, CompanyID: m.CompanyID, ContactID: m.ContactID,
		Name: m.Name, Phone: m.Phone, Whatsapp: m.Whatsapp, Email: m.Email,
		Notes: m.Notes, Language: m.Language, Address: m.Address,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func (m *LandBroker) ToRow() SourceRow {
	return SourceRow{
		ID: m.ID, CompanyID: m.CompanyID, ContactID: m.ContactID,
		Name: m.Name, Phone: m.Phone, Whatsapp: m.Whatsapp, Email: m.Email,
		Notes: m.Notes, OfficeName: m.OfficeName, CrNumber: m.CrNumber,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func (m *PropertyOwner) ToRow() SourceRow {
	return SourceRow{
		ID: m.ID, CompanyID: m.CompanyID, ContactID: m.ContactID,
		Name: m.Name, Phone: m.Phone, Whatsapp: m.Whatsapp, Email: m.Email,
		Notes: m.Notes, Address: m.Address, Nationality: m.Nationality,
		Iban: m.Iban, IDNumber: m.IDNumber,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func (m *RentalTenant) ToRow() SourceRow {
	return SourceRow{
		ID: m.ID, CompanyID: m.CompanyID, ContactID: m.ContactID,
		Name: m.Name, Phone: m.Phone, Whatsapp: m.Whatsapp, Email: m.Email,
		Notes: m.Notes, Address: m.Address, Nationality: m.Nationality,
		IDNumber: m.IDNumber,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func (m *Supplier) ToRow() SourceRow {
	return SourceRow{
		ID: m.ID, CompanyID: m.CompanyID, ContactID: m.ContactID,
		Name: m.Name, Phone: m.Phone, Whatsapp: m.Whatsapp, Email: m.Email,
		Notes: m.Notes, CompanyName: m.CompanyName, ServiceType: m.ServiceType,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

// ClientFromRow builds the concrete model from the neutral view, dropping
// fields the clients table does not carry.
func ClientFromRow(r SourceRow) *Client {
	return &Client{
		ID: r.ID, CompanyID: r.CompanyID, ContactID: r.ContactID,
		Name: r.Name, Phone: r.Phone, Whatsapp: r.Whatsapp, Email: r.Email,
		Notes: r.Notes, Language: r.Language, Address: r.Address,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func LandBrokerFromRow(r SourceRow) *LandBroker {
	return &LandBroker{
		ID: r.ID, CompanyID: r.CompanyID, ContactID: r.ContactID,
		Name: r.Name, Phone: r.Phone, Whatsapp: r.Whatsapp, Email: r.Email,
		Notes: r.Notes, OfficeName: r.OfficeName, CrNumber: r.CrNumber,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func PropertyOwnerFromRow(r SourceRow) *PropertyOwner {
	return &PropertyOwner{
		ID: r.ID, CompanyID: r.CompanyID, ContactID: r.ContactID,
		Name: r.Name, Phone: r.Phone, Whatsapp: r.Whatsapp, Email: r.Email,
		Notes: r.Notes, Address: r.Address, Nationality: r.Nationality,
		Iban: r.Iban, IDNumber: r.IDNumber,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func RentalTenantFromRow(r SourceRow) *RentalTenant {
	return &RentalTenant{
		ID: r.ID, CompanyID: r.CompanyID, ContactID: r.ContactID,
		Name: r.Name, Phone: r.Phone, Whatsapp: r.Whatsapp, Email: r.Email,
		Notes: r.Notes, Address: r.Address, Nationality: r.Nationality,
		IDNumber: r.IDNumber,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func SupplierFromRow(r SourceRow) *Supplier {
	return &Supplier{
		ID: r.ID, CompanyID: r.CompanyID, ContactID: r.ContactID,
		Name: r.Name, Phone: r.Phone, Whatsapp: r.Whatsapp, Email: r.Email,
		Notes: r.Notes, CompanyName: r.CompanyName, ServiceType: r.ServiceType,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}
