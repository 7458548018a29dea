package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	apperrors "gitlab.com/aqarsync/api/contact-identity-service/internal/apperrors"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/tenant"
)

// Note on SQL Query Matching in Tests:
// ----------------------------------
// GORM generates SQL queries with additional clauses like ORDER BY and LIMIT
// that can make exact SQL string matching brittle. To handle this, we:
//
// 1. Use a partial SQL match pattern that excludes the variable clauses
// 2. Use sqlmock.QueryMatcherRegexp for flexible regex-based matching
// 3. Skip quoting the SQL with regexp.QuoteMeta to allow for pattern matching
// 4. Use sqlmock.AnyArg() for parameters that may vary in format or content
//
// This approach makes tests more robust against minor GORM query variations.

const (
	testTenantID  = "tenant-test-123"
	testContactID = "contact-abc-456"
	testPhone     = "971501234567"
)

// Placeholder for AnyTime argument matcher
type AnyTime struct{}

// Match satisfies sqlmock.Argument interface
func (a AnyTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}

// Placeholder for JSON fields like map[string]interface{}
type AnyJSON struct{}

// Match satisfies sqlmock.Argument interface
func (a AnyJSON) Match(v driver.Value) bool {
	switch v.(type) {
	case []byte, string, nil:
		// JSON fields are stored as string or []byte in the database
		// or as nil if the field is NULL
		return true
	default:
		return false
	}
}

// --- Test Helpers ---

// Helper to create a mock DB and GORM instance for testing
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual)) // Use equal matcher
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
		// Prevent GORM from trying to ping the database
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		// Skip default transaction to avoid unexpected BEGIN/COMMIT
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	teardown := func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	}

	return gormDB, mock, teardown
}

// tenantCtx returns a context carrying the test tenant ID.
func tenantCtx() context.Context {
	return tenant.WithCompanyID(context.Background(), testTenantID)
}

// --- Test Cases ---

func TestIsTransientError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "Context deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: true,
		},
		{
			name:     "Wrapped Context deadline exceeded",
			err:      fmt.Errorf("operation failed: %w", context.DeadlineExceeded),
			expected: true,
		},
		{
			name:     "GORM Record Not Found",
			err:      gorm.ErrRecordNotFound,
			expected: false, // Permanent error
		},
		{
			name:     "GORM Invalid Transaction",
			err:      gorm.ErrInvalidTransaction,
			expected: false, // Permanent error
		},
		{
			name:     "PG Error - Connection Exception (08000)",
			err:      &pgconn.PgError{Code: "08000"},
			expected: true,
		},
		{
			name:     "PG Error - Insufficient Resources (53100)",
			err:      &pgconn.PgError{Code: "53100"},
			expected: true,
		},
		{
			name:     "PG Error - Deadlock Detected (40P01)",
			err:      &pgconn.PgError{Code: "40P01"},
			expected: true, // Consider transient if retry logic handles deadlocks
		},
		{
			name:     "PG Error - Serialization Failure (40001)",
			err:      &pgconn.PgError{Code: "40001"},
			expected: true, // Consider transient if retry logic handles serialization issues
		},
		{
			name:     "PG Error - Other (e.g., Syntax Error 42601)",
			err:      &pgconn.PgError{Code: "42601"},
			expected: false, // Permanent error
		},
		{
			name:     "Network Error - Connection Refused",
			err:      errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			expected: true,
		},
		{
			name:     "Network Error - I/O Timeout",
			err:      errors.New("read tcp 10.0.0.1:1234->10.0.0.2:5432: i/o timeout"),
			expected: true,
		},
		{
			name:     "Network Error - Broken Pipe",
			err:      errors.New("write: broken pipe"),
			expected: true,
		},
		{
			name:     "Network Error - DB Starting Up",
			err:      errors.New("pq: the database system is starting up"),
			expected: true,
		},
		{
			name:     "Generic Non-Transient Error",
			err:      errors.New("some other database error"),
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := isTransientError(tc.err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestTenantNamer(t *testing.T) {
	namer := tenantNamer{schemaName: "aqar_" + testTenantID}

	assert.Equal(t, `"aqar_`+testTenantID+`".enhanced_contacts`, namer.TableName("enhanced_contacts"))
	assert.Equal(t, `"aqar_`+testTenantID+`".clients`, namer.TableName("clients"))
}

func TestPostgresRepo_Close(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		mock.ExpectClose() // Expect the underlying sql.DB's Close() to be called

		err := repo.Close(context.Background())
		assert.NoError(t, err)
	})

	t.Run("Close Fails", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		mock.ExpectClose().WillReturnError(errors.New("db close error"))

		err := repo.Close(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to close SQL DB")
		assert.Contains(t, err.Error(), "db close error")
	})

	// Note: Testing the failure of db.DB() is difficult as gorm wraps the connection.
	// If db.DB() returns an error, it usually means the GORM db instance is invalid,
	// which is hard to simulate cleanly after successful initialization.
}

func TestCheckConstraintViolation(t *testing.T) {
	// Original errors for wrapping
	originalNotFound := gorm.ErrRecordNotFound
	originalUnique := &pgconn.PgError{Code: "23505", ConstraintName: "idx_enhanced_contacts_original"}
	originalFK := &pgconn.PgError{Code: "23503", ConstraintName: "fk_contact_channels_contact"}
	originalNotNull := &pgconn.PgError{Code: "23502", ColumnName: "phone_number"}
	originalCheck := &pgconn.PgError{Code: "23514", ConstraintName: "rating_check"}
	originalTruncate := &pgconn.PgError{Code: "22001", ColumnName: "notes"}
	originalInvalidText := &pgconn.PgError{Code: "22P02", DataTypeName: "integer"}
	originalDeadlock := &pgconn.PgError{Code: "40P01"}
	originalSerialization := &pgconn.PgError{Code: "40001"}
	originalResource := &pgconn.PgError{Code: "53200"}    // out_of_memory
	originalConnection := &pgconn.PgError{Code: "08003"}  // connection_does_not_exist
	originalUnhandledPg := &pgconn.PgError{Code: "XX000"} // internal_error
	originalGeneric := errors.New("some generic DB error")

	testCases := []struct {
		name            string
		inErr           error
		expectedStdErr  error  // Expected standard error type (e.g., apperrors.ErrNotFound)
		checkMessage    bool   // Whether to check if the original message is contained
		originalMsgFrag string // Fragment of the original error message expected in the wrapped error
	}{
		{
			name:           "Nil error",
			inErr:          nil,
			expectedStdErr: nil,
		},
		{
			name:            "GORM Record Not Found",
			inErr:           originalNotFound,
			expectedStdErr:  apperrors.ErrNotFound,
			checkMessage:    true,
			originalMsgFrag: "record not found",
		},
		{
			name:            "Wrapped GORM Record Not Found",
			inErr:           fmt.Errorf("wrapper: %w", originalNotFound),
			expectedStdErr:  apperrors.ErrNotFound,
			checkMessage:    true,
			originalMsgFrag: "record not found",
		},
		{
			name:            "PG Unique Violation (23505)",
			inErr:           originalUnique,
			expectedStdErr:  apperrors.ErrDuplicate,
			checkMessage:    true,
			originalMsgFrag: "idx_enhanced_contacts_original",
		},
		{
			name:            "PG Foreign Key Violation (23503)",
			inErr:           originalFK,
			expectedStdErr:  apperrors.ErrBadRequest,
			checkMessage:    true,
			originalMsgFrag: "fk_contact_channels_contact",
		},
		{
			name:            "PG Not Null Violation (23502)",
			inErr:           originalNotNull,
			expectedStdErr:  apperrors.ErrBadRequest,
			checkMessage:    true,
			originalMsgFrag: "phone_number",
		},
		{
			name:            "PG Check Violation (23514)",
			inErr:           originalCheck,
			expectedStdErr:  apperrors.ErrBadRequest,
			checkMessage:    true,
			originalMsgFrag: "rating_check",
		},
		{
			name:            "PG String Truncation (22001)",
			inErr:           originalTruncate,
			expectedStdErr:  apperrors.ErrBadRequest,
			checkMessage:    true,
			originalMsgFrag: "notes",
		},
		{
			name:            "PG Invalid Text Representation (22P02)",
			inErr:           originalInvalidText,
			expectedStdErr:  apperrors.ErrBadRequest,
			checkMessage:    true,
			originalMsgFrag: "integer",
		},
		{
			name:            "PG Deadlock Detected (40P01)",
			inErr:           originalDeadlock,
			expectedStdErr:  apperrors.ErrDatabase,
			checkMessage:    true,
			originalMsgFrag: "40P01",
		},
		{
			name:            "PG Serialization Failure (40001)",
			inErr:           originalSerialization,
			expectedStdErr:  apperrors.ErrDatabase,
			checkMessage:    true,
			originalMsgFrag: "40001",
		},
		{
			name:            "PG Insufficient Resources (53200)",
			inErr:           originalResource,
			expectedStdErr:  apperrors.ErrDatabase,
			checkMessage:    true,
			originalMsgFrag: "53200",
		},
		{
			name:            "PG Connection Exception (08003)",
			inErr:           originalConnection,
			expectedStdErr:  apperrors.ErrDatabase,
			checkMessage:    true,
			originalMsgFrag: "08003",
		},
		{
			name:            "PG Unhandled Code (XX000)",
			inErr:           originalUnhandledPg,
			expectedStdErr:  apperrors.ErrDatabase,
			checkMessage:    true,
			originalMsgFrag: "XX000",
		},
		{
			name:            "Generic non-GORM, non-PgError",
			inErr:           originalGeneric,
			expectedStdErr:  apperrors.ErrDatabase,
			checkMessage:    true,
			originalMsgFrag: "some generic DB error",
		},
		{
			name:            "Wrapped PG Unique Violation",
			inErr:           fmt.Errorf("wrapper: %w", originalUnique),
			expectedStdErr:  apperrors.ErrDuplicate,
			checkMessage:    true,
			originalMsgFrag: "idx_enhanced_contacts_original",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			outErr := checkConstraintViolation(tc.inErr)

			if tc.expectedStdErr == nil {
				assert.NoError(t, outErr)
			} else {
				assert.Error(t, outErr)
				assert.Truef(t, errors.Is(outErr, tc.expectedStdErr), "Expected error to wrap %v, but got %v", tc.expectedStdErr, outErr)
				if tc.checkMessage {
					assert.ErrorContains(t, outErr, tc.originalMsgFrag)
				}
				// Additionally check if the original error is preserved in the chain
				assert.Truef(t, errors.Is(outErr, tc.inErr), "Expected error to wrap original error %v, but got %v", tc.inErr, outErr)
			}
		})
	}
}

func TestIndexStatements_ContactPhoneAllowsDuplicates(t *testing.T) {
	indexes := indexStatements("tenant_test")

	phoneIdx, ok := indexes["idx_enhanced_contacts_phone"]
	require.True(t, ok)
	assert.NotContains(t, phoneIdx, "UNIQUE",
		"rows sharing a phone and phoneless rows storing '' must both insert; dedup repairs the duplicates")

	originalIdx, ok := indexes["idx_enhanced_contacts_original"]
	require.True(t, ok)
	assert.Contains(t, originalIdx, "UNIQUE")
	assert.Contains(t, originalIdx, "WHERE original_id <> ''",
		"contacts without source provenance store empty keys and must not collide")

	for _, table := range model.SourceTables() {
		assert.Contains(t, indexes, "idx_"+table+"_contact_id")
		assert.Contains(t, indexes, "idx_"+table+"_phone")
	}
}

func TestEnhancedContactPhoneColumnNotUnique(t *testing.T) {
	// AutoMigrate derives DDL from the gorm tag; a uniqueIndex here would
	// reject the second phoneless contact, which stores "" rather than NULL.
	field, ok := reflect.TypeOf(model.EnhancedContact{}).FieldByName("PhoneNumber")
	require.True(t, ok)
	tag := field.Tag.Get("gorm")
	assert.False(t, strings.Contains(tag, "unique"), "phone_number gorm tag must not carry a unique index, got %q", tag)
	assert.Contains(t, tag, "index")
}
