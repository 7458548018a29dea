package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gitlab.com/aqarsync/api/contact-identity-service/internal/adapter"
	apperrors "gitlab.com/aqarsync/api/contact-identity-service/internal/apperrors"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/cache"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/config"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/matching"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/observer"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/storage"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/tenant"
	"gitlab.com/aqarsync/api/contact-identity-service/pkg/logger"
	"gitlab.com/aqarsync/api/contact-identity-service/pkg/utils"
	"go.uber.org/zap"
)

// dedupPageSize bounds how many canonical contacts a scan loads per query.
const dedupPageSize = 500

// DedupEngine finds and merges duplicate canonical contacts. At most one run
// is in flight at a time; a concurrent trigger fails with ErrConflict. Runs
// happen only on explicit invocation, never on a schedule.
type DedupEngine struct {
	contactRepo storage.ContactRepo
	sourceRepo  storage.SourceRepo
	adapters    *adapter.Registry
	scorer      *matching.Scorer
	cfg         config.DedupConfig
	reports     *cache.ReportCache

	mu      sync.Mutex
	running bool
	state   model.DedupState
}

// NewDedupEngine creates a deduplication engine over the given repositories.
func NewDedupEngine(contactRepo storage.ContactRepo, sourceRepo storage.SourceRepo, adapters *adapter.Registry, cfg config.DedupConfig) *DedupEngine {
	return &DedupEngine{
		contactRepo: contactRepo,
		sourceRepo:  sourceRepo,
		adapters:    adapters,
		scorer:      matching.NewScorer(),
		cfg:         cfg,
		reports:     cache.NewReportCache(cfg.ReportTTL),
		state:       model.DedupStateIdle,
	}
}

// State returns the engine's current lifecycle state.
func (e *DedupEngine) State() model.DedupState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastReport returns the company's most recent run report, if one is still
// retained.
func (e *DedupEngine) LastReport(companyID string) (*model.DedupReport, bool) {
	return e.reports.Get(companyID)
}

// ExportReport marshals a run report into its stable JSON contract.
func (e *DedupEngine) ExportReport(report *model.DedupReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dedup report: %w", err)
	}
	return data, nil
}

// begin claims the single run slot, failing with ErrConflict when another run
// holds it.
func (e *DedupEngine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("%w: a deduplication run is already in flight", apperrors.ErrConflict)
	}
	e.running = true
	e.state = model.DedupStateScanning
	return nil
}

// finish releases the run slot, leaving the terminal state visible.
func (e *DedupEngine) finish(state model.DedupState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.state = state
}

func (e *DedupEngine) setState(state model.DedupState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
}

// normalizeOptions fills unset option fields from configuration. A configured
// preserve-data default of true forces preservation even when the trigger did
// not ask for it; destructive merges must be enabled in configuration first.
func (e *DedupEngine) normalizeOptions(opts model.DedupOptions) model.DedupOptions {
	if opts.SimilarityThreshold <= 0 || opts.SimilarityThreshold > 100 {
		opts.SimilarityThreshold = e.cfg.SimilarityThreshold
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = e.cfg.BatchSize
	}
	if e.cfg.PreserveData {
		opts.PreserveData = true
	}
	return opts
}

// PreviewDuplicates scans the tenant's canonical contacts and returns the
// duplicate groups a merge run would act on, without writing anything.
func (e *DedupEngine) PreviewDuplicates(ctx context.Context, opts model.DedupOptions) ([]model.DuplicateGroup, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil || companyID == "" {
		return nil, fmt.Errorf("%w: missing tenant for dedup preview", apperrors.ErrUnauthorized)
	}

	if err := e.begin(); err != nil {
		observer.IncDedupRun(companyID, "rejected")
		return nil, err
	}

	opts = e.normalizeOptions(opts)
	groups, err := e.scanGroups(ctx, opts.SimilarityThreshold)
	if err != nil {
		e.finish(model.DedupStateFailed)
		return nil, err
	}
	e.finish(model.DedupStatePreviewed)
	observer.AddDedupGroupsFound(companyID, len(groups))
	return groups, nil
}

// RunFullDeduplication scans for duplicate groups and merges each one into
// its oldest member. With opts.DryRun the run stops after scanning and the
// report describes what a merge would have done.
func (e *DedupEngine) RunFullDeduplication(ctx context.Context, opts model.DedupOptions) (*model.DedupReport, error) {
	log := logger.FromContext(ctx)
	start := utils.Now()

	companyID, err := tenant.FromContext(ctx)
	if err != nil || companyID == "" {
		return nil, fmt.Errorf("%w: missing tenant for dedup run", apperrors.ErrUnauthorized)
	}

	if err := e.begin(); err != nil {
		observer.IncDedupRun(companyID, "rejected")
		return nil, err
	}

	opts = e.normalizeOptions(opts)
	report := &model.DedupReport{
		CompanyID: companyID,
		DryRun:    opts.DryRun,
		StartedAt: start,
		Errors:    []string{},
		Warnings:  []string{},
	}

	groups, err := e.scanGroups(ctx, opts.SimilarityThreshold)
	if err != nil {
		report.State = model.DedupStateFailed
		report.Errors = append(report.Errors, err.Error())
		report.FinishedAt = utils.Now()
		e.finish(model.DedupStateFailed)
		observer.IncDedupRun(companyID, "failed")
		return report, err
	}
	report.GroupsFound = len(groups)
	observer.AddDedupGroupsFound(companyID, len(groups))

	if opts.DryRun {
		report.State = model.DedupStatePreviewed
		report.FinishedAt = utils.Now()
		e.reports.Put(companyID, report)
		e.finish(model.DedupStatePreviewed)
		observer.IncDedupRun(companyID, "previewed")
		observer.ObserveDedupRunDuration(companyID, time.Since(start))
		log.Info("Dry-run deduplication finished",
			zap.Int("groups_found", len(groups)),
			zap.Int("threshold", opts.SimilarityThreshold),
		)
		return report, nil
	}

	e.setState(model.DedupStateMerging)
	cancelled := false
	for i, group := range groups {
		// Cancellation takes effect between groups; the group being merged
		// always finishes so no group is left half-merged.
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("run cancelled after %d of %d groups: %v", i, len(groups), ctxErr))
			cancelled = true
			break
		}

		record, mergeErr := e.mergeGroup(ctx, group, opts.PreserveData, &report.Summary)
		if mergeErr != nil {
			report.DetailedResults.FailedMerges = append(report.DetailedResults.FailedMerges, model.MergeFailure{
				PhoneNumber: group.PhoneNumber,
				DisplayName: group.DisplayName,
				ContactIDs:  groupContactIDs(group),
				Error:       mergeErr.Error(),
			})
			report.Errors = append(report.Errors, mergeErr.Error())
			observer.IncDedupMerge(companyID, "failed")
			continue
		}
		report.DetailedResults.SuccessfulMerges = append(report.DetailedResults.SuccessfulMerges, *record)
		report.MergedContacts += len(record.MergedContactIDs)
		observer.IncDedupMerge(companyID, "success")

		if opts.BatchSize > 0 && (i+1)%opts.BatchSize == 0 {
			log.Info("Deduplication progress",
				zap.Int("groups_done", i+1),
				zap.Int("groups_total", len(groups)),
				zap.Int("merged_contacts", report.MergedContacts),
			)
		}
	}

	finalState := model.DedupStateCompleted
	if cancelled {
		finalState = model.DedupStateFailed
	}
	report.State = finalState
	report.FinishedAt = utils.Now()
	e.reports.Put(companyID, report)
	e.finish(finalState)
	observer.IncDedupRun(companyID, string(finalState))
	observer.ObserveDedupRunDuration(companyID, time.Since(start))

	log.Info("Deduplication run finished",
		zap.String("state", string(finalState)),
		zap.Int("groups_found", report.GroupsFound),
		zap.Int("merged_contacts", report.MergedContacts),
		zap.Int("failed_merges", len(report.DetailedResults.FailedMerges)),
		zap.Duration("duration", time.Since(start)),
	)
	if cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

// scanGroups loads every canonical contact and clusters likely duplicates:
// exact matches on the normalized phone first, then name similarity at or
// above the threshold for contacts no phone joined. Singleton clusters are
// dropped.
func (e *DedupEngine) scanGroups(ctx context.Context, threshold int) ([]model.DuplicateGroup, error) {
	contacts, err := e.loadAllContacts(ctx)
	if err != nil {
		return nil, err
	}

	// Stable input order: oldest first so group member order matches base
	// selection.
	sort.SliceStable(contacts, func(i, j int) bool {
		return contacts[i].CreatedAt.Before(contacts[j].CreatedAt)
	})

	var groups []model.DuplicateGroup
	grouped := make(map[string]bool, len(contacts))

	// Exact tier: identical normalized phone numbers.
	byPhone := make(map[string][]int)
	phoneOrder := make([]string, 0)
	for i, c := range contacts {
		if c.PhoneNumber == "" {
			continue
		}
		if _, seen := byPhone[c.PhoneNumber]; !seen {
			phoneOrder = append(phoneOrder, c.PhoneNumber)
		}
		byPhone[c.PhoneNumber] = append(byPhone[c.PhoneNumber], i)
	}
	for _, phone := range phoneOrder {
		idxs := byPhone[phone]
		if len(idxs) < 2 {
			continue
		}
		group := model.DuplicateGroup{
			PhoneNumber: phone,
			DisplayName: contacts[idxs[0]].FullName,
			Score:       100,
		}
		for _, i := range idxs {
			group.Members = append(group.Members, e.member(contacts[i]))
			grouped[contacts[i].ID] = true
		}
		group.Priority = classifyPriority(&group)
		groups = append(groups, group)
	}

	// Similarity tier: remaining contacts clustered greedily around the
	// oldest unassigned contact. The threshold is inclusive: a score equal
	// to it groups.
	for i, seed := range contacts {
		if grouped[seed.ID] {
			continue
		}
		group := model.DuplicateGroup{
			DisplayName: seed.FullName,
			Score:       100,
			Members:     []model.GroupMember{e.member(seed)},
		}
		for j := i + 1; j < len(contacts); j++ {
			cand := contacts[j]
			if grouped[cand.ID] {
				continue
			}
			score := e.scorer.NameScore(seed.FullName, cand.FullName)
			if score < threshold {
				continue
			}
			group.Members = append(group.Members, e.member(cand))
			grouped[cand.ID] = true
			if score < group.Score {
				group.Score = score
			}
		}
		if len(group.Members) < 2 {
			continue
		}
		grouped[seed.ID] = true
		group.Priority = classifyPriority(&group)
		groups = append(groups, group)
	}

	return groups, nil
}

// loadAllContacts pages through the tenant's canonical contacts.
func (e *DedupEngine) loadAllContacts(ctx context.Context) ([]model.EnhancedContact, error) {
	var all []model.EnhancedContact
	for offset := 0; ; offset += dedupPageSize {
		page, err := e.contactRepo.ListPaginated(ctx, dedupPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < dedupPageSize {
			break
		}
	}
	return all, nil
}

// member annotates a contact with the source tables its role tags map to.
func (e *DedupEngine) member(contact model.EnhancedContact) model.GroupMember {
	tables := make([]string, 0, 2)
	seen := make(map[string]bool, 2)
	add := func(table string) {
		if table != "" && !seen[table] {
			seen[table] = true
			tables = append(tables, table)
		}
	}
	add(contact.OriginalTable)
	for _, role := range contact.RoleList() {
		if a, err := e.adapters.ByRole(role); err == nil {
			add(a.Table())
		}
	}
	return model.GroupMember{Contact: contact, SourceTables: tables}
}

// classifyPriority grades a group by how many distinct source tables feed it.
func classifyPriority(group *model.DuplicateGroup) string {
	switch n := len(group.SourceTableSet()); {
	case n >= 3:
		return model.MergePriorityHigh
	case n == 2:
		return model.MergePriorityMedium
	default:
		return model.MergePriorityLow
	}
}

func groupContactIDs(group model.DuplicateGroup) []string {
	ids := make([]string, 0, len(group.Members))
	for _, m := range group.Members {
		ids = append(ids, m.Contact.ID)
	}
	return ids
}

// mergeGroup folds a duplicate group into its oldest member. Non-base source
// rows are relinked to the base contact when preserve is set, deleted
// otherwise, and the non-base canonical rows are removed.
func (e *DedupEngine) mergeGroup(ctx context.Context, group model.DuplicateGroup, preserve bool, summary *model.DedupSummary) (*model.MergeRecord, error) {
	if len(group.Members) < 2 {
		return nil, fmt.Errorf("%w: group %q has %d member(s)", apperrors.ErrBadRequest, group.DisplayName, len(group.Members))
	}

	base := group.Members[0].Contact
	for _, m := range group.Members[1:] {
		if m.Contact.CreatedAt.Before(base.CreatedAt) {
			base = m.Contact
		}
	}

	merged := e.mergeFields(ctx, base, group.Members)
	savedBase, err := e.contactRepo.Save(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("failed to save merged contact %s: %w", base.ID, err)
	}

	record := &model.MergeRecord{
		BaseContactID: savedBase.ID,
		BaseName:      savedBase.FullName,
		PhoneNumber:   group.PhoneNumber,
		MergedAt:      utils.Now(),
	}

	for _, m := range group.Members {
		if m.Contact.ID == base.ID || m.Contact.ID == savedBase.ID {
			continue
		}
		for _, table := range model.SourceTables() {
			var (
				moved int64
				err   error
			)
			if preserve {
				moved, err = e.sourceRepo.ReassignContactID(ctx, table, m.Contact.ID, savedBase.ID)
			} else {
				moved, err = e.sourceRepo.DeleteByContactID(ctx, table, m.Contact.ID)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to detach %s rows of contact %s: %w", table, m.Contact.ID, err)
			}
			addToSummary(summary, table, int(moved))
		}
		if err := e.contactRepo.Delete(ctx, m.Contact.ID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to delete duplicate contact %s: %w", m.Contact.ID, err)
		}
		record.MergedContactIDs = append(record.MergedContactIDs, m.Contact.ID)
		record.DeletedDuplicates++
	}

	return record, nil
}

// addToSummary counts detached rows against their source table.
func addToSummary(summary *model.DedupSummary, table string, n int) {
	if n == 0 {
		return
	}
	switch table {
	case model.TableClients:
		summary.Clients += n
	case model.TableLandBrokers:
		summary.Brokers += n
	case model.TablePropertyOwners:
		summary.Owners += n
	case model.TableRentalTenants:
		summary.Tenants += n
	case model.TableSuppliers:
		summary.Suppliers += n
	}
	summary.TotalSavedSpace += n
}

// mergeFields builds the surviving contact record: the base keeps its
// identity, provenance and status; names, addresses and company fields take
// the longest non-empty value; notes concatenate; identifiers take the first
// non-empty value in member order; ratings take the maximum; roles and
// channels union.
func (e *DedupEngine) mergeFields(ctx context.Context, base model.EnhancedContact, members []model.GroupMember) model.EnhancedContact {
	log := logger.FromContext(ctx)
	merged := base

	// Member field values in a stable order, base first.
	ordered := make([]model.EnhancedContact, 0, len(members))
	ordered = append(ordered, base)
	for _, m := range members {
		if m.Contact.ID != base.ID {
			ordered = append(ordered, m.Contact)
		}
	}

	var notes []string
	noteSeen := make(map[string]bool)
	for _, c := range ordered {
		merged.FullName = longestNonEmpty(merged.FullName, c.FullName)
		merged.Address = longestNonEmpty(merged.Address, c.Address)
		merged.CompanyName = longestNonEmpty(merged.CompanyName, c.CompanyName)
		merged.OfficeName = longestNonEmpty(merged.OfficeName, c.OfficeName)

		merged.ShortName = firstNonEmpty(merged.ShortName, c.ShortName)
		merged.Language = firstNonEmpty(merged.Language, c.Language)
		merged.Nationality = firstNonEmpty(merged.Nationality, c.Nationality)
		merged.Iban = firstNonEmpty(merged.Iban, c.Iban)
		merged.IDNumber = firstNonEmpty(merged.IDNumber, c.IDNumber)
		merged.CrNumber = firstNonEmpty(merged.CrNumber, c.CrNumber)
		merged.PreferredContactMethod = firstNonEmpty(merged.PreferredContactMethod, c.PreferredContactMethod)

		if c.Rating > merged.Rating {
			merged.Rating = c.Rating
		}
		for _, role := range c.RoleList() {
			merged.AddRole(role)
		}
		if trimmed := strings.TrimSpace(c.Notes); trimmed != "" && !noteSeen[trimmed] {
			noteSeen[trimmed] = true
			notes = append(notes, trimmed)
		}
	}
	merged.Notes = strings.Join(notes, "\n")

	merged.Channels = e.mergeChannels(ctx, base.ID, ordered, log)
	return merged
}

// mergeChannels unions the members' channel batches, dropping duplicate
// (type, value) pairs and keeping at most one primary channel per type.
func (e *DedupEngine) mergeChannels(ctx context.Context, baseID string, ordered []model.EnhancedContact, log *zap.Logger) []model.ContactChannel {
	var out []model.ContactChannel
	seen := make(map[string]bool)
	primaryByType := make(map[string]bool)

	for _, c := range ordered {
		channels, err := e.contactRepo.FindChannels(ctx, c.ID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				log.Warn("Failed to load channels during merge, skipping member's channels",
					zap.String("contact_id", c.ID),
					zap.Error(err),
				)
			}
			continue
		}
		for _, ch := range channels {
			key := ch.Type + "\x00" + ch.Value
			if seen[key] {
				continue
			}
			seen[key] = true
			ch.ID = ""
			ch.ContactID = baseID
			if ch.IsPrimary {
				if primaryByType[ch.Type] {
					ch.IsPrimary = false
				}
				primaryByType[ch.Type] = true
			}
			out = append(out, ch)
		}
	}
	return out
}

func longestNonEmpty(current, candidate string) string {
	if len(strings.TrimSpace(candidate)) > len(strings.TrimSpace(current)) {
		return candidate
	}
	return current
}

func firstNonEmpty(current, candidate string) string {
	if current != "" {
		return current
	}
	return candidate
}
