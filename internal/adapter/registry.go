package adapter

import (
	"fmt"

	apperrors "gitlab.com/aqarsync/api/contact-identity-service/internal/apperrors"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
)

// Registry resolves source adapters by table name or role tag. One registry
// serves the whole service; adapters are stateless beyond the configured
// country code.
type Registry struct {
	countryCode string
	ordered     []SourceAdapter
	byTable     map[string]SourceAdapter
	byRole      map[string]SourceAdapter
}

// NewRegistry builds the adapter set for all five source tables. countryCode
// feeds phone normalization; empty falls back to the package default.
func NewRegistry(countryCode string) *Registry {
	adapters := []SourceAdapter{
		clientAdapter{base{table: model.TableClients, role: model.RoleClient, countryCode: countryCode}},
		brokerAdapter{base{table: model.TableLandBrokers, role: model.RoleBroker, countryCode: countryCode}},
		ownerAdapter{base{table: model.TablePropertyOwners, role: model.RoleOwner, countryCode: countryCode}},
		tenantAdapter{base{table: model.TableRentalTenants, role: model.RoleTenant, countryCode: countryCode}},
		supplierAdapter{base{table: model.TableSuppliers, role: model.RoleSupplier, countryCode: countryCode}},
	}

	r := &Registry{
		countryCode: countryCode,
		ordered:     adapters,
		byTable:     make(map[string]SourceAdapter, len(adapters)),
		byRole:      make(map[string]SourceAdapter, len(adapters)+2),
	}
	for _, a := range adapters {
		r.byTable[a.Table()] = a
		r.byRole[a.Role()] = a
	}
	// Legacy role aliases still found on older canonical rows.
	r.byRole[model.RoleCustomer] = r.byTable[model.TableClients]
	r.byRole[model.RoleLandlord] = r.byTable[model.TablePropertyOwners]
	return r
}

// ByTable returns the adapter serving the given source table.
func (r *Registry) ByTable(table string) (SourceAdapter, error) {
	a, ok := r.byTable[table]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for table %q", apperrors.ErrBadRequest, table)
	}
	return a, nil
}

// ByRole returns the adapter serving the given role tag.
func (r *Registry) ByRole(role string) (SourceAdapter, error) {
	a, ok := r.byRole[role]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for role %q", apperrors.ErrBadRequest, role)
	}
	return a, nil
}

// All returns every adapter in sync order.
func (r *Registry) All() []SourceAdapter {
	return r.ordered
}

// CountryCode returns the country code the adapters normalize phones with.
func (r *Registry) CountryCode() string {
	return r.countryCode
}
