package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/adapter"
	apperrors "gitlab.com/aqarsync/api/contact-identity-service/internal/apperrors"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/config"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/matching"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
	storagemock "gitlab.com/aqarsync/api/contact-identity-service/internal/storage/mock"
	"gitlab.com/aqarsync/api/contact-identity-service/pkg/logger"
	"go.uber.org/zap/zaptest"
)

func newDedupTestEngine(t *testing.T, cfg config.DedupConfig) (*DedupEngine, *storagemock.ContactRepoMock, *storagemock.SourceRepoMock) {
	logger.Log = zaptest.NewLogger(t).Named("test")

	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 85
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.ReportTTL == 0 {
		cfg.ReportTTL = time.Hour
	}

	contactRepo := new(storagemock.ContactRepoMock)
	sourceRepo := new(storagemock.SourceRepoMock)
	engine := NewDedupEngine(contactRepo, sourceRepo, adapter.NewRegistry("971"), cfg)
	return engine, contactRepo, sourceRepo
}

// duplicateContact builds a canonical contact shaped like one a source row
// produced, old enough that merge ordering is deterministic.
func duplicateContact(id, name, phone, roles string, ageDays int) model.EnhancedContact {
	return model.EnhancedContact{
		ID:            id,
		CompanyID:     testCompanyID,
		FullName:      name,
		PhoneNumber:   phone,
		Roles:         roles,
		Status:        model.ContactStatusActive,
		OriginalTable: model.TableClients,
		OriginalID:    "row-" + id,
		CreatedAt:     time.Now().Add(-time.Duration(ageDays) * 24 * time.Hour),
	}
}

func singlePage(contacts ...model.EnhancedContact) []model.EnhancedContact {
	return contacts
}

func TestPreviewDuplicates_PhoneTier(t *testing.T) {
	engine, contactRepo, _ := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)

	contacts := singlePage(
		duplicateContact("c-old", "Ahmed Al Mansoori", "971501234567", model.RoleClient, 30),
		duplicateContact("c-new", "Ahmad Almansoori", "971501234567", model.RoleBroker, 10),
		duplicateContact("c-other", "Mariam Hassan", "971509999999", model.RoleOwner, 20),
	)
	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(contacts, nil).Once()

	groups, err := engine.PreviewDuplicates(ctx, model.DedupOptions{})

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "971501234567", groups[0].PhoneNumber)
	assert.Equal(t, 100, groups[0].Score, "an exact phone match is full confidence")
	assert.Len(t, groups[0].Members, 2)
	// Oldest member leads the group after the stable sort.
	assert.Equal(t, "c-old", groups[0].Members[0].Contact.ID)
	assert.Equal(t, model.DedupStatePreviewed, engine.State())
	contactRepo.AssertExpectations(t)
}

func TestPreviewDuplicates_MissingTenant(t *testing.T) {
	engine, contactRepo, _ := newDedupTestEngine(t, config.DedupConfig{})

	_, err := engine.PreviewDuplicates(context.Background(), model.DedupOptions{})

	assert.Error(t, err)
	assert.True(t, apperrors.IsUnauthorizedError(err))
	contactRepo.AssertNotCalled(t, "ListPaginated", mock.Anything, mock.Anything, mock.Anything)
}

func TestPreviewDuplicates_NameTierInclusiveThreshold(t *testing.T) {
	engine, contactRepo, _ := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)

	// No phones, identical names: the name score is exactly 100, and a
	// threshold of 100 must still group them.
	contacts := singlePage(
		duplicateContact("c-1", "Khalid Omar", "", model.RoleClient, 20),
		duplicateContact("c-2", "Khalid Omar", "", model.RoleTenant, 5),
	)
	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(contacts, nil).Once()

	groups, err := engine.PreviewDuplicates(ctx, model.DedupOptions{SimilarityThreshold: 100})

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].PhoneNumber)
	assert.Equal(t, 100, groups[0].Score)
	assert.Len(t, groups[0].Members, 2)
}

func TestPreviewDuplicates_ThresholdBoundary(t *testing.T) {
	nameA, nameB := "Mohammed Al Rashid", "Mohamed Al Rashid"
	score := matching.NewScorer().NameScore(nameA, nameB)
	require.Greater(t, score, 1)
	require.Less(t, score, 100)

	contacts := singlePage(
		duplicateContact("c-1", nameA, "", model.RoleClient, 20),
		duplicateContact("c-2", nameB, "", model.RoleBroker, 5),
	)

	// At exactly the pair's score the two group.
	engine, contactRepo, _ := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)
	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(contacts, nil).Once()
	groups, err := engine.PreviewDuplicates(ctx, model.DedupOptions{SimilarityThreshold: score})
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	// One point above it they do not.
	engine, contactRepo, _ = newDedupTestEngine(t, config.DedupConfig{})
	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(contacts, nil).Once()
	groups, err = engine.PreviewDuplicates(ctx, model.DedupOptions{SimilarityThreshold: score + 1})
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestPreviewDuplicates_DissimilarNamesNotGrouped(t *testing.T) {
	engine, contactRepo, _ := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)

	contacts := singlePage(
		duplicateContact("c-1", "Khalid Omar", "", model.RoleClient, 20),
		duplicateContact("c-2", "Mariam Hassan", "", model.RoleOwner, 5),
	)
	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(contacts, nil).Once()

	groups, err := engine.PreviewDuplicates(ctx, model.DedupOptions{SimilarityThreshold: 85})

	require.NoError(t, err)
	assert.Empty(t, groups, "unrelated names must never cluster")
}

func TestPreviewDuplicates_GroupPriority(t *testing.T) {
	engine, contactRepo, _ := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)

	a := duplicateContact("c-1", "Saeed", "971501112233", model.RoleClient, 20)
	b := duplicateContact("c-2", "Saeed", "971501112233", model.RoleBroker, 10)
	b.OriginalTable = model.TableLandBrokers
	c := duplicateContact("c-3", "Saeed", "971501112233", model.RoleTenant, 5)
	c.OriginalTable = model.TableRentalTenants

	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(singlePage(a, b, c), nil).Once()

	groups, err := engine.PreviewDuplicates(ctx, model.DedupOptions{})

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, model.MergePriorityHigh, groups[0].Priority, "three source tables grade high")
}

func TestRunFullDeduplication_DryRun(t *testing.T) {
	engine, contactRepo, sourceRepo := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)

	contacts := singlePage(
		duplicateContact("c-old", "Ahmed", "971501234567", model.RoleClient, 30),
		duplicateContact("c-new", "Ahmed", "971501234567", model.RoleBroker, 10),
	)
	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(contacts, nil).Once()

	report, err := engine.RunFullDeduplication(ctx, model.DedupOptions{DryRun: true})

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, model.DedupStatePreviewed, report.State)
	assert.Equal(t, 1, report.GroupsFound)
	assert.Zero(t, report.MergedContacts)
	contactRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	contactRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	sourceRepo.AssertNotCalled(t, "DeleteByContactID", mock.Anything, mock.Anything, mock.Anything)

	cached, ok := engine.LastReport(testCompanyID)
	require.True(t, ok, "finished reports stay retrievable")
	assert.Equal(t, report, cached)
}

func TestRunFullDeduplication_MergesIntoOldest(t *testing.T) {
	engine, contactRepo, sourceRepo := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)

	oldest := duplicateContact("c-old", "Ahmed", "971501234567", model.RoleClient, 30)
	newer := duplicateContact("c-new", "Ahmed Al Mansoori", "971501234567", model.RoleBroker, 10)
	newer.Rating = 5

	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(singlePage(oldest, newer), nil).Once()
	contactRepo.On("FindChannels", mock.Anything, mock.AnythingOfType("string")).Return(nil, apperrors.ErrNotFound)
	contactRepo.On("Save", mock.Anything, mock.MatchedBy(func(c model.EnhancedContact) bool {
		// Oldest keeps its identity; fields fold in from the newer duplicate.
		return c.ID == "c-old" &&
			c.FullName == "Ahmed Al Mansoori" &&
			c.Rating == 5 &&
			c.HasRole(model.RoleClient) && c.HasRole(model.RoleBroker)
	})).Return(&model.EnhancedContact{ID: "c-old"}, nil).Once()
	for _, table := range model.SourceTables() {
		moved := int64(0)
		if table == model.TableClients {
			moved = 1
		}
		sourceRepo.On("DeleteByContactID", mock.Anything, table, "c-new").Return(moved, nil).Once()
	}
	contactRepo.On("Delete", mock.Anything, "c-new").Return(nil).Once()

	report, err := engine.RunFullDeduplication(ctx, model.DedupOptions{})

	require.NoError(t, err)
	assert.Equal(t, model.DedupStateCompleted, report.State)
	assert.Equal(t, 1, report.GroupsFound)
	assert.Equal(t, 1, report.MergedContacts)
	require.Len(t, report.DetailedResults.SuccessfulMerges, 1)
	assert.Equal(t, "c-old", report.DetailedResults.SuccessfulMerges[0].BaseContactID)
	assert.Equal(t, []string{"c-new"}, report.DetailedResults.SuccessfulMerges[0].MergedContactIDs)
	assert.Equal(t, 1, report.Summary.Clients)
	assert.Equal(t, 1, report.Summary.TotalSavedSpace)
	assert.Equal(t, model.DedupStateCompleted, engine.State())
	contactRepo.AssertExpectations(t)
	sourceRepo.AssertExpectations(t)
}

func TestRunFullDeduplication_PreserveRelinksRows(t *testing.T) {
	engine, contactRepo, sourceRepo := newDedupTestEngine(t, config.DedupConfig{PreserveData: true})
	ctx := testCtx(t)

	oldest := duplicateContact("c-old", "Fatima", "971507654321", model.RoleOwner, 30)
	newer := duplicateContact("c-new", "Fatima", "971507654321", model.RoleTenant, 10)

	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(singlePage(oldest, newer), nil).Once()
	contactRepo.On("FindChannels", mock.Anything, mock.AnythingOfType("string")).Return(nil, apperrors.ErrNotFound)
	contactRepo.On("Save", mock.Anything, mock.AnythingOfType("model.EnhancedContact")).Return(&model.EnhancedContact{ID: "c-old"}, nil).Once()
	for _, table := range model.SourceTables() {
		sourceRepo.On("ReassignContactID", mock.Anything, table, "c-new", "c-old").Return(int64(0), nil).Once()
	}
	contactRepo.On("Delete", mock.Anything, "c-new").Return(nil).Once()

	// The trigger did not ask to preserve; configuration forces it.
	report, err := engine.RunFullDeduplication(ctx, model.DedupOptions{PreserveData: false})

	require.NoError(t, err)
	assert.Equal(t, model.DedupStateCompleted, report.State)
	sourceRepo.AssertNotCalled(t, "DeleteByContactID", mock.Anything, mock.Anything, mock.Anything)
	sourceRepo.AssertExpectations(t)
}

func TestRunFullDeduplication_HonorsSavedBaseIdentity(t *testing.T) {
	engine, contactRepo, sourceRepo := newDedupTestEngine(t, config.DedupConfig{PreserveData: true})
	ctx := testCtx(t)

	oldest := duplicateContact("c-old", "Omar Hassan", "971502222222", model.RoleClient, 30)
	newer := duplicateContact("c-new", "Omar Hassan", "971502222222", model.RoleSupplier, 5)

	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(singlePage(oldest, newer), nil).Once()
	contactRepo.On("FindChannels", mock.Anything, mock.AnythingOfType("string")).Return(nil, apperrors.ErrNotFound)
	// The merge save carries the base's ID, and everything downstream
	// follows the identity the store reports back.
	contactRepo.On("Save", mock.Anything, mock.MatchedBy(func(c model.EnhancedContact) bool {
		return c.ID == "c-old"
	})).Return(&model.EnhancedContact{ID: "c-primary", FullName: "Omar Hassan"}, nil).Once()
	for _, table := range model.SourceTables() {
		sourceRepo.On("ReassignContactID", mock.Anything, table, "c-new", "c-primary").Return(int64(0), nil).Once()
	}
	contactRepo.On("Delete", mock.Anything, "c-new").Return(nil).Once()

	report, err := engine.RunFullDeduplication(ctx, model.DedupOptions{})

	require.NoError(t, err)
	require.Len(t, report.DetailedResults.SuccessfulMerges, 1)
	assert.Equal(t, "c-primary", report.DetailedResults.SuccessfulMerges[0].BaseContactID)
	assert.Equal(t, []string{"c-new"}, report.DetailedResults.SuccessfulMerges[0].MergedContactIDs)
	contactRepo.AssertNotCalled(t, "Delete", mock.Anything, "c-old")
	contactRepo.AssertNotCalled(t, "Delete", mock.Anything, "c-primary")
	contactRepo.AssertExpectations(t)
	sourceRepo.AssertExpectations(t)
}

func TestRunFullDeduplication_GroupFailureContinues(t *testing.T) {
	engine, contactRepo, sourceRepo := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)

	contacts := singlePage(
		duplicateContact("a-old", "Ahmed", "971501111111", model.RoleClient, 40),
		duplicateContact("a-new", "Ahmed", "971501111111", model.RoleClient, 30),
		duplicateContact("b-old", "Mariam", "971502222222", model.RoleOwner, 20),
		duplicateContact("b-new", "Mariam", "971502222222", model.RoleOwner, 10),
	)
	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(contacts, nil).Once()
	contactRepo.On("FindChannels", mock.Anything, mock.AnythingOfType("string")).Return(nil, apperrors.ErrNotFound)

	// First group's save fails; the run must still merge the second group.
	contactRepo.On("Save", mock.Anything, mock.MatchedBy(func(c model.EnhancedContact) bool {
		return c.ID == "a-old"
	})).Return(nil, fmt.Errorf("%w: write failed", apperrors.ErrDatabase)).Once()
	contactRepo.On("Save", mock.Anything, mock.MatchedBy(func(c model.EnhancedContact) bool {
		return c.ID == "b-old"
	})).Return(&model.EnhancedContact{ID: "b-old"}, nil).Once()
	for _, table := range model.SourceTables() {
		sourceRepo.On("DeleteByContactID", mock.Anything, table, "b-new").Return(int64(0), nil).Once()
	}
	contactRepo.On("Delete", mock.Anything, "b-new").Return(nil).Once()

	report, err := engine.RunFullDeduplication(ctx, model.DedupOptions{})

	require.NoError(t, err, "per-group failures do not fail the run")
	assert.Equal(t, model.DedupStateCompleted, report.State)
	assert.Equal(t, 2, report.GroupsFound)
	assert.Len(t, report.DetailedResults.SuccessfulMerges, 1)
	require.Len(t, report.DetailedResults.FailedMerges, 1)
	assert.Equal(t, "971501111111", report.DetailedResults.FailedMerges[0].PhoneNumber)
	assert.Len(t, report.Errors, 1)
	contactRepo.AssertExpectations(t)
	sourceRepo.AssertExpectations(t)
}

func TestRunFullDeduplication_ConcurrentRunRejected(t *testing.T) {
	engine, contactRepo, _ := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)

	engine.mu.Lock()
	engine.running = true
	engine.mu.Unlock()

	report, err := engine.RunFullDeduplication(ctx, model.DedupOptions{})

	assert.Nil(t, report)
	assert.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	contactRepo.AssertNotCalled(t, "ListPaginated", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunFullDeduplication_CancelledBetweenGroups(t *testing.T) {
	engine, contactRepo, _ := newDedupTestEngine(t, config.DedupConfig{})

	cancelledCtx, cancel := context.WithCancel(testCtx(t))
	cancel()

	contacts := singlePage(
		duplicateContact("c-old", "Ahmed", "971501234567", model.RoleClient, 30),
		duplicateContact("c-new", "Ahmed", "971501234567", model.RoleBroker, 10),
	)
	contactRepo.On("ListPaginated", mock.Anything, dedupPageSize, 0).Return(contacts, nil).Once()

	report, err := engine.RunFullDeduplication(cancelledCtx, model.DedupOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report, "a cancelled run still returns its partial report")
	assert.Equal(t, model.DedupStateFailed, report.State)
	assert.Equal(t, 1, report.GroupsFound)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "run cancelled after 0 of 1 groups")
	contactRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Equal(t, model.DedupStateFailed, engine.State())
}

func TestNormalizeOptions(t *testing.T) {
	engine, _, _ := newDedupTestEngine(t, config.DedupConfig{SimilarityThreshold: 85, BatchSize: 50})

	opts := engine.normalizeOptions(model.DedupOptions{})
	assert.Equal(t, 85, opts.SimilarityThreshold)
	assert.Equal(t, 50, opts.BatchSize)
	assert.False(t, opts.PreserveData)

	opts = engine.normalizeOptions(model.DedupOptions{SimilarityThreshold: 150})
	assert.Equal(t, 85, opts.SimilarityThreshold, "out-of-range thresholds fall back to the default")

	opts = engine.normalizeOptions(model.DedupOptions{SimilarityThreshold: 90, BatchSize: 10})
	assert.Equal(t, 90, opts.SimilarityThreshold)
	assert.Equal(t, 10, opts.BatchSize)
}

func TestNormalizeOptions_ConfigForcesPreserve(t *testing.T) {
	engine, _, _ := newDedupTestEngine(t, config.DedupConfig{PreserveData: true})

	opts := engine.normalizeOptions(model.DedupOptions{PreserveData: false})
	assert.True(t, opts.PreserveData, "destructive merges need the config switch flipped first")
}

func TestMergeFields(t *testing.T) {
	engine, contactRepo, _ := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)

	base := duplicateContact("c-old", "Ahmed", "971501234567", model.RoleClient, 30)
	base.Notes = "met at viewing"
	base.Rating = 3

	other := duplicateContact("c-new", "Ahmed Al Mansoori", "971501234567", model.RoleBroker, 10)
	other.Notes = "prefers email"
	other.Rating = 5
	other.IDNumber = "784199012345678"
	other.OfficeName = "Gulf Realty"

	contactRepo.On("FindChannels", mock.Anything, mock.AnythingOfType("string")).Return(nil, apperrors.ErrNotFound)

	merged := engine.mergeFields(ctx, base, []model.GroupMember{{Contact: base}, {Contact: other}})

	assert.Equal(t, "c-old", merged.ID)
	assert.Equal(t, "Ahmed Al Mansoori", merged.FullName, "the longest name wins")
	assert.Equal(t, "met at viewing\nprefers email", merged.Notes)
	assert.Equal(t, 5, merged.Rating)
	assert.Equal(t, "784199012345678", merged.IDNumber)
	assert.Equal(t, "Gulf Realty", merged.OfficeName)
	assert.True(t, merged.HasRole(model.RoleClient))
	assert.True(t, merged.HasRole(model.RoleBroker))
}

func TestMergeChannels_DedupesAndKeepsOnePrimaryPerType(t *testing.T) {
	engine, contactRepo, _ := newDedupTestEngine(t, config.DedupConfig{})
	ctx := testCtx(t)

	contactRepo.On("FindChannels", mock.Anything, "c-old").Return([]model.ContactChannel{
		{ID: "ch-1", ContactID: "c-old", Type: model.ChannelTypePhone, Value: "971501234567", IsPrimary: true},
	}, nil).Once()
	contactRepo.On("FindChannels", mock.Anything, "c-new").Return([]model.ContactChannel{
		{ID: "ch-2", ContactID: "c-new", Type: model.ChannelTypePhone, Value: "971501234567", IsPrimary: true},
		{ID: "ch-3", ContactID: "c-new", Type: model.ChannelTypePhone, Value: "971509999999", IsPrimary: true},
		{ID: "ch-4", ContactID: "c-new", Type: model.ChannelTypeEmail, Value: "ahmed@example.com", IsPrimary: true},
	}, nil).Once()

	ordered := []model.EnhancedContact{{ID: "c-old"}, {ID: "c-new"}}
	channels := engine.mergeChannels(ctx, "c-old", ordered, logger.FromContext(ctx))

	require.Len(t, channels, 3, "duplicate (type, value) pairs collapse")
	primariesByType := map[string]int{}
	for _, ch := range channels {
		assert.Equal(t, "c-old", ch.ContactID)
		assert.Empty(t, ch.ID, "merged channels are re-inserted fresh")
		if ch.IsPrimary {
			primariesByType[ch.Type]++
		}
	}
	// Primary flags are scoped per channel type: a second primary phone gets
	// demoted, the primary email survives alongside the primary phone.
	assert.Equal(t, 1, primariesByType[model.ChannelTypePhone])
	assert.Equal(t, 1, primariesByType[model.ChannelTypeEmail])
}

func TestExportReport(t *testing.T) {
	engine, _, _ := newDedupTestEngine(t, config.DedupConfig{})

	report := &model.DedupReport{
		CompanyID:   testCompanyID,
		State:       model.DedupStateCompleted,
		GroupsFound: 2,
		Errors:      []string{},
		Warnings:    []string{},
	}
	data, err := engine.ExportReport(report)

	require.NoError(t, err)
	assert.Contains(t, string(data), `"state": "completed"`)
	assert.Contains(t, string(data), `"groups_found": 2`)
}
