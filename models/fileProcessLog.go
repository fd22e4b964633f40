package models

import "time"

// FileProcessLog is written once per successfully processed batch file.
type FileProcessLog struct {
	ID                int       `gorm:"primary_key" json:"id"`
	LoadedDateTime    time.Time `gorm:"not null;index" json:"loaded_date_time"`
	FileName          string    `gorm:"size:512;not null" json:"file_name"`
	FileSavedTo       string    `gorm:"size:512" json:"file_saved_to"`
	NumRecsLoaded     int       `gorm:"not null;default:0" json:"num_recs_loaded"`
	NumNewRecsAdded   int       `gorm:"not null;default:0" json:"num_new_recs_added"`
	NumRecsIgnored    int       `gorm:"not null;default:0" json:"num_recs_ignored"`
	NumRecsWithIssues int       `gorm:"not null;default:0" json:"num_recs_with_issues"`
	Description       string    `gorm:"type:mediumtext" json:"description"`
}

func (FileProcessLog) TableName() string { return "gh_pr_po_file_process_log" }
