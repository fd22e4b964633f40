// Package notify tells operators about failed batches and invalid records.
package notify

import (
	"context"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/utils"
	"github.com/sirupsen/logrus"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityInfo     Severity = "info"
)

// Alert is a critical condition that needs manual attention.
type Alert struct {
	Severity      Severity  `json:"severity"`
	Host          string    `json:"host"`
	DocumentType  string    `json:"document_type,omitempty"`
	Batch         string    `json:"batch,omitempty"`
	Error         string    `json:"error"`
	CorrelationId string    `json:"correlation_id,omitempty"`
	At            time.Time `json:"at"`
}

// InvalidRecordsNotice announces the invalid records of one batch.
type InvalidRecordsNotice struct {
	Severity      Severity               `json:"severity"`
	Host          string                 `json:"host"`
	DocumentType  string                 `json:"document_type"`
	Batch         string                 `json:"batch"`
	Count         int                    `json:"count"`
	ReportUrl     string                 `json:"report_url,omitempty"`
	Records       []models.InvalidRecord `json:"records"`
	CorrelationId string                 `json:"correlation_id,omitempty"`
	At            time.Time              `json:"at"`
}

type Notifier interface {
	Alert(ctx context.Context, alert Alert) error
	InvalidRecords(ctx context.Context, notice InvalidRecordsNotice) error
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// NewAlert fills host, time and the batch fields carried by ctx.
func NewAlert(ctx context.Context, err error) Alert {
	a := Alert{
		Severity: SeverityCritical,
		Host:     hostname(),
		At:       time.Now().UTC(),
	}
	if err != nil {
		a.Error = err.Error()
	}
	a.DocumentType, _ = utils.GetDocumentTypeFromContext(ctx)
	a.Batch, _ = utils.GetBatchLabelFromContext(ctx)
	a.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
	return a
}

func NewInvalidRecordsNotice(ctx context.Context, doc models.DocumentType, batch string, records []models.InvalidRecord, reportUrl string) InvalidRecordsNotice {
	n := InvalidRecordsNotice{
		Severity:     SeverityInfo,
		Host:         hostname(),
		DocumentType: string(doc),
		Batch:        batch,
		Count:        len(records),
		ReportUrl:    reportUrl,
		Records:      records,
		At:           time.Now().UTC(),
	}
	n.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
	return n
}

// LogNotifier writes notifications to the log only. It is used when no alert topic is configured.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n LogNotifier) Alert(ctx context.Context, alert Alert) error {
	n.Logger.WithFields(logrus.Fields{
		"severity":       alert.Severity,
		"host":           alert.Host,
		"document_type":  alert.DocumentType,
		"batch":          alert.Batch,
		"correlation_id": alert.CorrelationId,
	}).Error("ALERT: " + alert.Error)
	return nil
}

func (n LogNotifier) InvalidRecords(ctx context.Context, notice InvalidRecordsNotice) error {
	n.Logger.WithFields(logrus.Fields{
		"document_type": notice.DocumentType,
		"batch":         notice.Batch,
		"count":         notice.Count,
		"report_url":    notice.ReportUrl,
	}).Warn("invalid records found")
	return nil
}
