package model

import "time"

// DedupState is the lifecycle state of a deduplication run.
type DedupState string

const (
	DedupStateIdle      DedupState = "idle"
	DedupStateScanning  DedupState = "scanning"
	DedupStatePreviewed DedupState = "previewed"
	DedupStateMerging   DedupState = "merging"
	DedupStateCompleted DedupState = "completed"
	DedupStateFailed    DedupState = "failed"
)

// Merge priorities, classified by how many distinct source tables contribute
// members to a group.
const (
	MergePriorityHigh   = "high"   // 3+ source tables
	MergePriorityMedium = "medium" // 2 source tables
	MergePriorityLow    = "low"    // single table
)

// DedupOptions tunes a deduplication run.
type DedupOptions struct {
	DryRun              bool `json:"dry_run"`
	BatchSize           int  `json:"batch_size,omitempty"`           // groups per progress report, 0 = default
	SimilarityThreshold int  `json:"similarity_threshold,omitempty"` // 0-100, 0 = default
	PreserveData        bool `json:"preserve_data"`                  // relink non-base source rows instead of deleting them
}

// GroupMember is one canonical contact inside a duplicate group, annotated
// with the source tables it originated from.
type GroupMember struct {
	Contact      EnhancedContact `json:"contact"`
	SourceTables []string        `json:"source_tables,omitempty"`
}

// DuplicateGroup is a computed cluster of canonical contacts believed to be
// the same person. Groups are never persisted; every run recomputes them.
type DuplicateGroup struct {
	PhoneNumber string        `json:"phone_number"` // normalized join key, may be empty for name-only groups
	DisplayName string        `json:"display_name"`
	Score       int           `json:"score"` // 0-100 similarity confidence
	Priority    string        `json:"priority"`
	Members     []GroupMember `json:"members"`
}

// SourceTableSet returns the distinct source tables contributing to the group.
func (g *DuplicateGroup) SourceTableSet() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range g.Members {
		for _, t := range m.SourceTables {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return out
}

// MergeRecord describes one merged group in the run report.
type MergeRecord struct {
	BaseContactID     string    `json:"base_contact_id"`
	BaseName          string    `json:"base_name"`
	PhoneNumber       string    `json:"phone_number,omitempty"`
	MergedContactIDs  []string  `json:"merged_contact_ids"`
	DeletedDuplicates int       `json:"deleted_duplicates"`
	MergedAt          time.Time `json:"merged_at"`
}

// MergeFailure describes one group whose merge did not complete. The rest of
// the run continues past it.
type MergeFailure struct {
	PhoneNumber string   `json:"phone_number,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	ContactIDs  []string `json:"contact_ids"`
	Error       string   `json:"error"`
}

// DedupSummary counts merged members per originating source table.
type DedupSummary struct {
	Brokers         int `json:"brokers"`
	Clients         int `json:"clients"`
	Owners          int `json:"owners"`
	Tenants         int `json:"tenants"`
	Suppliers       int `json:"suppliers"`
	TotalSavedSpace int `json:"total_saved_space"` // duplicate rows removed or relinked
}

// DetailedResults splits the per-group outcomes of a run.
type DetailedResults struct {
	SuccessfulMerges []MergeRecord  `json:"successful_merges"`
	FailedMerges     []MergeFailure `json:"failed_merges"`
}

// DedupReport is the exported outcome of a deduplication run. Its JSON shape
// is a stable contract consumed by the CRM frontend.
type DedupReport struct {
	CompanyID       string          `json:"company_id,omitempty"`
	State           DedupState      `json:"state"`
	DryRun          bool            `json:"dry_run"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at,omitempty"`
	GroupsFound     int             `json:"groups_found"`
	MergedContacts  int             `json:"merged_contacts"`
	Summary         DedupSummary    `json:"summary"`
	DetailedResults DetailedResults `json:"detailed_results"`
	Errors          []string        `json:"errors"`
	Warnings        []string        `json:"warnings"`
}
