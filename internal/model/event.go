package model

import (
	"strings"
	"time"
)

// EventType represents different types of events
type EventType string

// Common event type constants (with versioning)
const (
	// Version 1 source-table change events
	V1ClientsUpsert   EventType = "v1.clients.upsert"
	V1ClientsDelete   EventType = "v1.clients.delete"
	V1BrokersUpsert   EventType = "v1.brokers.upsert"
	V1BrokersDelete   EventType = "v1.brokers.delete"
	V1OwnersUpsert    EventType = "v1.owners.upsert"
	V1OwnersDelete    EventType = "v1.owners.delete"
	V1TenantsUpsert   EventType = "v1.tenants.upsert"
	V1TenantsDelete   EventType = "v1.tenants.delete"
	V1SuppliersUpsert EventType = "v1.suppliers.upsert"
	V1SuppliersDelete EventType = "v1.suppliers.delete"

	// Version 1 canonical-contact command events (relayed UI triggers)
	V1ContactsUpsert  EventType = "v1.contacts.upsert"
	V1ContactsDelete  EventType = "v1.contacts.delete"
	V1ContactsSyncAll EventType = "v1.contacts.syncall"
	V1ContactsDedup   EventType = "v1.contacts.dedup"
)

// knownEventTypes is the full set MapToBaseEventType resolves against.
var knownEventTypes = []EventType{
	V1ClientsUpsert, V1ClientsDelete,
	V1BrokersUpsert, V1BrokersDelete,
	V1OwnersUpsert, V1OwnersDelete,
	V1TenantsUpsert, V1TenantsDelete,
	V1SuppliersUpsert, V1SuppliersDelete,
	V1ContactsUpsert, V1ContactsDelete, V1ContactsSyncAll, V1ContactsDedup,
}

// UpsertEventForTable returns the upsert event type carrying changes for the
// given source table, or "" for an unknown table.
func UpsertEventForTable(table string) EventType {
	switch table {
	case TableClients:
		return V1ClientsUpsert
	case TableLandBrokers:
		return V1BrokersUpsert
	case TablePropertyOwners:
		return V1OwnersUpsert
	case TableRentalTenants:
		return V1TenantsUpsert
	case TableSuppliers:
		return V1SuppliersUpsert
	}
	return ""
}

// TableForEventType maps a change event back to its source table, or "" for
// the canonical-contact command events.
func TableForEventType(t EventType) string {
	switch t {
	case V1ClientsUpsert, V1ClientsDelete:
		return TableClients
	case V1BrokersUpsert, V1BrokersDelete:
		return TableLandBrokers
	case V1OwnersUpsert, V1OwnersDelete:
		return TablePropertyOwners
	case V1TenantsUpsert, V1TenantsDelete:
		return TableRentalTenants
	case V1SuppliersUpsert, V1SuppliersDelete:
		return TableSuppliers
	}
	return ""
}

// MapToBaseEventType attempts to map an input string (potentially with extra
// identifiers like a trailing company token) back to a known base EventType
// constant. It returns the mapped EventType and true if successful, or an
// empty EventType ("") and false if no mapping is found.
func MapToBaseEventType(input string) (EventType, bool) {
	// The input may already be the base type.
	for _, t := range knownEventTypes {
		if EventType(input) == t {
			return t, true
		}
	}

	// If no direct match, try stripping the last component after the final dot.
	lastDotIndex := strings.LastIndex(input, ".")

	// Ensure a dot exists and it's not the first character.
	if lastDotIndex <= 0 {
		return "", false
	}

	base := EventType(input[:lastDotIndex])
	for _, t := range knownEventTypes {
		if base == t {
			return t, true
		}
	}
	return "", false
}

type MessageMetadata struct {
	ConsumerSequence uint64
	StreamSequence   uint64
	NumDelivered     uint64
	NumPending       uint64
	Timestamp        time.Time
	Stream           string
	Consumer         string
	Domain           string
	MessageID        string
	MessageSubject   string
	CompanyID        string
}

// ToLastMetadata converts MessageMetadata to LastMetadata
func (e MessageMetadata) ToLastMetadata() *LastMetadata {
	return &LastMetadata{
		ConsumerSequence: int64(e.ConsumerSequence),
		StreamSequence:   int64(e.StreamSequence),
		Stream:           e.Stream,
		Consumer:         e.Consumer,
		Domain:           e.Domain,
		MessageID:        e.MessageID,
		MessageSubject:   e.MessageSubject,
		CompanyID:        e.CompanyID,
	}
}

// GetVersion extracts the version from an event type
// Returns the version string (e.g., "v1") or an empty string if no version specified
func (e EventType) GetVersion() string {
	parts := strings.SplitN(string(e), ".", 2)
	if len(parts) < 2 {
		return ""
	}

	// Check if the first part starts with 'v' followed by a number
	if len(parts[0]) >= 2 && parts[0][0] == 'v' {
		return parts[0]
	}

	return ""
}

// GetBaseType returns the event type without the version prefix
// For example: "v1.clients.upsert" -> "clients.upsert"
func (e EventType) GetBaseType() EventType {
	version := e.GetVersion()
	if version == "" {
		return e
	}

	// Remove the version prefix and the following dot
	return EventType(strings.TrimPrefix(string(e), version+"."))
}

// WithVersion returns a new EventType with the specified version
// For example: "clients.upsert" with version "v2" -> "v2.clients.upsert"
func (e EventType) WithVersion(version string) EventType {
	// If the event already has a version, remove it first
	baseType := e.GetBaseType()

	// Add the new version
	return EventType(version + "." + string(baseType))
}

// LastMetadata represents a last message metadata from nats
type LastMetadata struct {
	ConsumerSequence int64  `json:"consumer_sequence"`
	StreamSequence   int64  `json:"stream_sequence"`
	Stream           string `json:"stream"`
	Consumer         string `json:"consumer"`
	Domain           string `json:"domain"`
	MessageID        string `json:"message_id"`
	MessageSubject   string `json:"message_subject"`
	CompanyID        string `json:"company_id"`
}
