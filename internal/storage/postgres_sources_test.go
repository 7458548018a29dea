package storage

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	apperrors "gitlab.com/aqarsync/api/contact-identity-service/internal/apperrors"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/tenant"
)

const testTenantIDSource = "tenant-contact-test-789"

func contextWithSourceTenant() context.Context {
	return tenant.WithCompanyID(context.Background(), testTenantIDSource)
}

func TestPostgresRepo_FindSourceByID(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		repo, mock := newTestContactRepo(t)
		ctx := contextWithSourceTenant()
		rows := sqlmock.NewRows([]string{"id", "company_id", "contact_id", "name", "phone"}).
			AddRow("client-1", testTenantIDSource, "contact-1", "Ahmed Al Mansoori", "971501234567")
		selectQuery := `SELECT * FROM "clients" WHERE id = $1 AND company_id = $2 ORDER BY "clients"."id" LIMIT $3`
		mock.ExpectQuery(selectQuery).WithArgs("client-1", testTenantIDSource, 1).WillReturnRows(rows)

		row, err := repo.FindSourceByID(ctx, model.TableClients, "client-1")
		assert.NoError(t, err)
		assert.NotNil(t, row)
		assert.Equal(t, "contact-1", row.ContactID)
		assert.Equal(t, "Ahmed Al Mansoori", row.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		repo, mock := newTestContactRepo(t)
		ctx := contextWithSourceTenant()
		selectQuery := `SELECT * FROM "suppliers" WHERE id = $1 AND company_id = $2 ORDER BY "suppliers"."id" LIMIT $3`
		mock.ExpectQuery(selectQuery).WithArgs("missing", testTenantIDSource, 1).WillReturnError(gorm.ErrRecordNotFound)

		row, err := repo.FindSourceByID(ctx, model.TableSuppliers, "missing")
		assert.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, row)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Table", func(t *testing.T) {
		repo, mock := newTestContactRepo(t)
		ctx := contextWithSourceTenant()

		row, err := repo.FindSourceByID(ctx, "not_a_table", "id-1")
		assert.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		assert.Nil(t, row)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepo_FindSourceByContactID(t *testing.T) {
	repo, mock := newTestContactRepo(t)
	ctx := contextWithSourceTenant()
	rows := sqlmock.NewRows([]string{"id", "company_id", "contact_id", "name", "office_name"}).
		AddRow("broker-1", testTenantIDSource, "contact-1", "Broker Name", "Desert Realty")
	selectQuery := `SELECT * FROM "land_brokers" WHERE contact_id = $1 AND company_id = $2 ORDER BY "land_brokers"."id" LIMIT $3`
	mock.ExpectQuery(selectQuery).WithArgs("contact-1", testTenantIDSource, 1).WillReturnRows(rows)

	row, err := repo.FindSourceByContactID(ctx, model.TableLandBrokers, "contact-1")
	assert.NoError(t, err)
	assert.NotNil(t, row)
	assert.Equal(t, "Desert Realty", row.OfficeName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ListSourcesPaginated(t *testing.T) {
	repo, mock := newTestContactRepo(t)
	ctx := contextWithSourceTenant()
	rows := sqlmock.NewRows([]string{"id", "company_id", "name", "phone"}).
		AddRow("tenant-1", testTenantIDSource, "First Tenant", "971501111111").
		AddRow("tenant-2", testTenantIDSource, "Second Tenant", "971502222222")
	listQuery := `SELECT * FROM "rental_tenants" WHERE company_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	mock.ExpectQuery(listQuery).WithArgs(testTenantIDSource, 2, 0).WillReturnRows(rows)

	listed, err := repo.ListSourcesPaginated(ctx, model.TableRentalTenants, 2, 0)
	assert.NoError(t, err)
	assert.Len(t, listed, 2)
	assert.Equal(t, "First Tenant", listed[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpsertSource(t *testing.T) {
	t.Run("Client", func(t *testing.T) {
		repo, mock := newTestContactRepo(t)
		ctx := contextWithSourceTenant()
		row := model.SourceRow{
			ID:        "client-1",
			CompanyID: testTenantIDSource,
			ContactID: "contact-1",
			Name:      "Ahmed Al Mansoori",
			Phone:     "971501234567",
			Email:     "ahmed@example.com",
		}
		upsertQuery := `INSERT INTO "clients" ("id","company_id","contact_id","name","phone","whatsapp","email","notes","language","address","created_at","updated_at") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) ON CONFLICT ("id") DO UPDATE SET "company_id"="excluded"."company_id","contact_id"="excluded"."contact_id","name"="excluded"."name","phone"="excluded"."phone","whatsapp"="excluded"."whatsapp","email"="excluded"."email","notes"="excluded"."notes","language"="excluded"."language","address"="excluded"."address","updated_at"="excluded"."updated_at"`
		mock.ExpectExec(upsertQuery).
			WithArgs(row.ID, row.CompanyID, row.ContactID, row.Name, row.Phone, "", row.Email, "", "", "", AnyTime{}, AnyTime{}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpsertSource(ctx, model.TableClients, row)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Tenant Mismatch", func(t *testing.T) {
		repo, mock := newTestContactRepo(t)
		ctx := contextWithSourceTenant()
		row := model.SourceRow{ID: "client-1", CompanyID: "wrong-tenant"}

		err := repo.UpsertSource(ctx, model.TableClients, row)
		assert.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Table", func(t *testing.T) {
		repo, mock := newTestContactRepo(t)
		ctx := contextWithSourceTenant()
		row := model.SourceRow{ID: "row-1", CompanyID: testTenantIDSource}

		err := repo.UpsertSource(ctx, "not_a_table", row)
		assert.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepo_UpdateSourceContactID(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newTestContactRepo(t)
		ctx := contextWithSourceTenant()
		updateQuery := `UPDATE "property_owners" SET "contact_id"=$1,"updated_at"=$2 WHERE id = $3 AND company_id = $4`
		mock.ExpectExec(updateQuery).
			WithArgs("contact-1", AnyTime{}, "owner-1", testTenantIDSource).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateSourceContactID(ctx, model.TablePropertyOwners, "owner-1", "contact-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		repo, mock := newTestContactRepo(t)
		ctx := contextWithSourceTenant()
		updateQuery := `UPDATE "property_owners" SET "contact_id"=$1,"updated_at"=$2 WHERE id = $3 AND company_id = $4`
		mock.ExpectExec(updateQuery).
			WithArgs("contact-1", AnyTime{}, "missing", testTenantIDSource).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateSourceContactID(ctx, model.TablePropertyOwners, "missing", "contact-1")
		assert.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepo_ReassignSourceContactID(t *testing.T) {
	repo, mock := newTestContactRepo(t)
	ctx := contextWithSourceTenant()
	updateQuery := `UPDATE "suppliers" SET "contact_id"=$1,"updated_at"=$2 WHERE contact_id = $3 AND company_id = $4`
	mock.ExpectExec(updateQuery).
		WithArgs("base-contact", AnyTime{}, "dup-contact", testTenantIDSource).
		WillReturnResult(sqlmock.NewResult(0, 3))

	moved, err := repo.ReassignSourceContactID(ctx, model.TableSuppliers, "dup-contact", "base-contact")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_DeleteSourceByContactID(t *testing.T) {
	t.Run("Removed", func(t *testing.T) {
		repo, mock := newTestContactRepo(t)
		ctx := contextWithSourceTenant()
		deleteQuery := `DELETE FROM "clients" WHERE contact_id = $1 AND company_id = $2`
		mock.ExpectExec(deleteQuery).
			WithArgs("contact-1", testTenantIDSource).
			WillReturnResult(sqlmock.NewResult(0, 1))

		removed, err := repo.DeleteSourceByContactID(ctx, model.TableClients, "contact-1")
		assert.NoError(t, err)
		assert.Equal(t, int64(1), removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Is NoOp", func(t *testing.T) {
		repo, mock := newTestContactRepo(t)
		ctx := contextWithSourceTenant()
		deleteQuery := `DELETE FROM "clients" WHERE contact_id = $1 AND company_id = $2`
		mock.ExpectExec(deleteQuery).
			WithArgs("no-rows", testTenantIDSource).
			WillReturnResult(sqlmock.NewResult(0, 0))

		removed, err := repo.DeleteSourceByContactID(ctx, model.TableClients, "no-rows")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepo_DeleteSourceByID(t *testing.T) {
	repo, mock := newTestContactRepo(t)
	ctx := contextWithSourceTenant()
	deleteQuery := `DELETE FROM "land_brokers" WHERE id = $1 AND company_id = $2`
	mock.ExpectExec(deleteQuery).
		WithArgs("broker-1", testTenantIDSource).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteSourceByID(ctx, model.TableLandBrokers, "broker-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
