package prpo

import (
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/utils"
	"github.com/sirupsen/logrus"
)

// DiagnosticLimit caps each diagnostic block of the process log.
const DiagnosticLimit = 32000

// Diagnostics collects unmatched site and equipment codes of one file.
// Each line is "<code> (<document number>-<line number>)".
type Diagnostics struct {
	sites     strings.Builder
	equipment strings.Builder
}

func (d *Diagnostics) AddSite(code string, rowRef string) {
	d.sites.WriteString(code + " (" + rowRef + ")\n")
}

func (d *Diagnostics) AddEquipment(code string, rowRef string) {
	d.equipment.WriteString(code + " (" + rowRef + ")\n")
}

func (d *Diagnostics) Sites() string     { return d.sites.String() }
func (d *Diagnostics) Equipment() string { return d.equipment.String() }

// Description is the process-log text, each block truncated to DiagnosticLimit.
func (d *Diagnostics) Description() string {
	return "SAP Site Code not found in gh_sites:\n" + utils.Truncate(d.Sites(), DiagnosticLimit) +
		"\naq_id not found in gh_bom_equipment:\n" + utils.Truncate(d.Equipment(), DiagnosticLimit)
}

// Counters is the detailed tally of one file.
type Counters struct {
	Loaded         int `json:"loaded"`
	Added          int `json:"added"`
	Issues         int `json:"issues"`
	Updated        int `json:"updated"`
	Cancelled      int `json:"cancelled"`
	NoMatch        int `json:"no_match"`
	IgnoredDeletes int `json:"ignored_deletes"`
	RawInserted    int `json:"raw_inserted"`
	RawUpdated     int `json:"raw_updated"`
	FilesRecorded  int `json:"files_recorded"`
	InvalidAdded   int `json:"invalid_added"`
	InvalidUpdated int `json:"invalid_updated"`
	Resolved       int `json:"resolved"`
}

// Ignored is every loaded row that neither added a line item nor had an issue.
func (c Counters) Ignored() int {
	return c.Loaded - c.Added - c.Issues
}

func (c Counters) fields() logrus.Fields {
	return logrus.Fields{
		"loaded":          c.Loaded,
		"added":           c.Added,
		"ignored":         c.Ignored(),
		"issues":          c.Issues,
		"updated":         c.Updated,
		"cancelled":       c.Cancelled,
		"no_match":        c.NoMatch,
		"ignored_deletes": c.IgnoredDeletes,
		"raw_inserted":    c.RawInserted,
		"raw_updated":     c.RawUpdated,
		"invalid_added":   c.InvalidAdded,
		"invalid_updated": c.InvalidUpdated,
		"resolved":        c.Resolved,
	}
}

// FileResult is what ProcessFile hands back to its caller.
type FileResult struct {
	DocumentType models.DocumentType
	Label        string
	Log          models.FileProcessLog
	Invalid      []models.InvalidRecord
	Counters     Counters
	Diagnostics  *Diagnostics
}

func newProcessLog(b Batch, loadedAt time.Time, c Counters, d *Diagnostics) models.FileProcessLog {
	return models.FileProcessLog{
		LoadedDateTime:    loadedAt,
		FileName:          b.SourcePath,
		FileSavedTo:       b.SavedTo,
		NumRecsLoaded:     c.Loaded,
		NumNewRecsAdded:   c.Added,
		NumRecsIgnored:    c.Ignored(),
		NumRecsWithIssues: c.Issues,
		Description:       d.Description(),
	}
}
