package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// Contact status values.
const (
	ContactStatusNew          = "new"
	ContactStatusActive       = "active"
	ContactStatusArchived     = "archived"
	ContactStatusDoNotContact = "do_not_contact"
)

// Role tags carried in EnhancedContact.Roles (comma-separated).
const (
	RoleClient   = "client"
	RoleCustomer = "customer"
	RoleBroker   = "broker"
	RoleOwner    = "owner"
	RoleLandlord = "landlord"
	RoleTenant   = "tenant"
	RoleSupplier = "supplier"
)

// EnhancedContact is the canonical contact record. Each source row that shares
// a normalized phone number resolves to at most one canonical contact per
// tenant schema.
type EnhancedContact struct {
	ID                     string         `json:"id" gorm:"primaryKey;type:text"`
	CompanyID              string         `json:"company_id,omitempty" gorm:"column:company_id"`
	FullName               string         `json:"full_name,omitempty" gorm:"type:text" validate:"required"`
	ShortName              string         `json:"short_name,omitempty" gorm:"type:text"`
	Language               string         `json:"language,omitempty" gorm:"type:text"`
	Notes                  string         `json:"notes,omitempty" gorm:"type:text"`
	Rating                 int            `json:"rating,omitempty" gorm:"default:0"` // 0 = unrated, otherwise 1-5
	Roles                  string         `json:"roles,omitempty" gorm:"type:text"`  // comma-separated role tags, insertion order preserved
	Status                 string         `json:"status,omitempty" gorm:"type:text;default:new"`
	PreferredContactMethod string         `json:"preferred_contact_method,omitempty" gorm:"type:text"`
	PhoneNumber            string         `json:"phone_number,omitempty" gorm:"index;type:text"` // normalized join key; may be empty, and pre-existing duplicates are dedup input
	OriginalTable          string         `json:"original_table,omitempty" gorm:"index;type:text"`
	OriginalID             string         `json:"original_id,omitempty" gorm:"type:text"`
	OfficeName             string         `json:"office_name,omitempty" gorm:"type:text"` // broker
	CrNumber               string         `json:"cr_number,omitempty" gorm:"type:text"`   // broker commercial registration
	Nationality            string         `json:"nationality,omitempty" gorm:"type:text"` // owner
	Iban                   string         `json:"iban,omitempty" gorm:"type:text"`        // owner
	IDNumber               string         `json:"id_number,omitempty" gorm:"type:text"`   // owner national id
	Address                string         `json:"address,omitempty" gorm:"type:text"`
	CompanyName            string         `json:"company_name,omitempty" gorm:"type:text"` // supplier
	CreatedAt              time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt              time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
	LastMetadata           datatypes.JSON `json:"last_metadata,omitempty" gorm:"type:jsonb;column:last_metadata"`

	Channels []ContactChannel `json:"channels,omitempty" gorm:"-"`
}

// TableName specifies the table name for the EnhancedContact model, respecting the Namer.
func (EnhancedContact) TableName(namer schema.Namer) string {
	return namer.TableName("enhanced_contacts")
}

// RoleList splits the comma-joined Roles column, preserving order and
// dropping empty segments.
func (c *EnhancedContact) RoleList() []string {
	if c.Roles == "" {
		return nil
	}
	parts := strings.Split(c.Roles, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasRole reports whether the contact carries the given role tag.
func (c *EnhancedContact) HasRole(role string) bool {
	for _, r := range c.RoleList() {
		if r == role {
			return true
		}
	}
	return false
}

// AddRole appends the role tag if not already present, keeping existing order.
func (c *EnhancedContact) AddRole(role string) {
	if role == "" || c.HasRole(role) {
		return
	}
	if c.Roles == "" {
		c.Roles = role
		return
	}
	c.Roles += "," + role
}

// ContactUpdateColumns lists the columns refreshed when an incoming source row
// touches an existing canonical contact.
func ContactUpdateColumns() []string {
	return []string{
		"full_name",
		"short_name",
		"notes",
		"roles",
		"office_name",
		"cr_number",
		"nationality",
		"iban",
		"id_number",
		"address",
		"company_name",
		"updated_at",
		"last_metadata",
	}
}

// Channel types for ContactChannel.
const (
	ChannelTypeMobile   = "mobile"
	ChannelTypePhone    = "phone"
	ChannelTypeWhatsapp = "whatsapp"
	ChannelTypeEmail    = "email"
	ChannelTypeWebsite  = "website"
	ChannelTypeOther    = "other"
)

// ContactChannel is one reachable address of a contact. Channel rows are
// replaced as a batch whenever the owning contact is saved; they carry no
// identity across saves.
type ContactChannel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	ContactID string    `json:"contact_id" gorm:"index;type:text" validate:"required"`
	Type      string    `json:"channel_type" gorm:"column:channel_type;type:text" validate:"required"`
	Value     string    `json:"value" gorm:"type:text" validate:"required"`
	IsPrimary bool      `json:"is_primary" gorm:"default:false"`
	Label     string    `json:"label,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the ContactChannel model, respecting the Namer.
func (ContactChannel) TableName(namer schema.Namer) string {
	return namer.TableName("enhanced_contact_channels")
}

// BuildChannels derives the channel batch for a contact from its raw source
// values. The phone becomes a non-primary mobile channel; whatsapp (falling
// back to the phone when absent) becomes the primary whatsapp channel; email
// becomes a non-primary email channel. Empty values yield no channel.
func BuildChannels(contactID, phone, whatsapp, email string) []ContactChannel {
	var channels []ContactChannel
	if phone != "" {
		channels = append(channels, ContactChannel{
			ContactID: contactID,
			Type:      ChannelTypeMobile,
			Value:     phone,
		})
	}
	wa := whatsapp
	if wa == "" {
		wa = phone
	}
	if wa != "" {
		channels = append(channels, ContactChannel{
			ContactID: contactID,
			Type:      ChannelTypeWhatsapp,
			Value:     wa,
			IsPrimary: true,
		})
	}
	if email != "" {
		channels = append(channels, ContactChannel{
			ContactID: contactID,
			Type:      ChannelTypeEmail,
			Value:     email,
		})
	}
	return channels
}
