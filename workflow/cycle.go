package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"bitbucket.org/mmdatafocus/prpo_backend/inbox"
	"bitbucket.org/mmdatafocus/prpo_backend/notify"
	"bitbucket.org/mmdatafocus/prpo_backend/prpo"
	"bitbucket.org/mmdatafocus/prpo_backend/reports"
	"bitbucket.org/mmdatafocus/prpo_backend/utils"
	"github.com/sirupsen/logrus"
)

// ConnectionChecker reports whether both stores are reachable.
type ConnectionChecker interface {
	Ping(ctx context.Context) error
}

// ReportArchive stores a rendered report and returns where it went.
type ReportArchive interface {
	Upload(ctx context.Context, object string, data []byte, contentType string) (string, error)
}

// GCSArchive uploads reports to a bucket.
type GCSArchive struct {
	Bucket string
}

func (a GCSArchive) Upload(ctx context.Context, object string, data []byte, contentType string) (string, error) {
	return utils.UploadBytesToGCS(ctx, a.Bucket, object, data, contentType)
}

// Store is everything one cycle touches.
type Store interface {
	prpo.Store
	prpo.SummaryStore
}

// Cycle processes every pending batch of each inbox in order, then consolidates.
type Cycle struct {
	Store       Store
	Inboxes     []*inbox.Inbox
	Notifier    notify.Notifier
	Archive     ReportArchive
	Connections ConnectionChecker
	// automation windows are compared in this zone
	Location *time.Location
	Clock    func() time.Time
	Logger   *logrus.Logger
}

type CycleResult struct {
	Processed     int
	Failed        int
	Consolidation *prpo.ConsolidationResult
}

func (c *Cycle) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Cycle) logger() *logrus.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return config.GetLogger()
}

// Run returns config.ErrConnectionLost when a store dropped mid-file; that file stays pending.
func (c *Cycle) Run(ctx context.Context) (*CycleResult, error) {
	ctx, correlationId := utils.WithNewCorrelationId(ctx)
	log := c.logger().WithField("correlation_id", correlationId)
	result := &CycleResult{}
	processor := prpo.NewProcessor(c.Store, prpo.WithClock(c.now), prpo.WithLogger(c.logger()))

	for _, in := range c.Inboxes {
		names, err := in.Pending()
		if err != nil {
			return result, err
		}
		for _, name := range names {
			if ctx.Err() != nil {
				return result, context.Cause(ctx)
			}
			ok, err := c.runFile(ctx, processor, in, name)
			if err != nil {
				return result, err
			}
			if ok {
				result.Processed++
			} else {
				result.Failed++
			}
		}
	}

	if result.Processed == 0 {
		log.Info("no batch files processed")
		return result, nil
	}
	log.WithField("files", result.Processed).Info("processing consolidation")

	now := c.now()
	asOf := now
	if c.Location != nil {
		asOf = now.In(c.Location)
	}
	consolidation, err := prpo.Consolidate(ctx, c.Store, asOf, now)
	result.Consolidation = consolidation
	if err != nil {
		config.LogError(c.logger(), "cycle.go", "Run", "consolidation", nil, err)
		c.alert(ctx, err)
	}
	return result, nil
}

// runFile reports whether the file was processed. A returned error stops the cycle.
func (c *Cycle) runFile(ctx context.Context, processor *prpo.Processor, in *inbox.Inbox, name string) (bool, error) {
	batch := in.Batch(name)
	ctx = utils.SetDocumentTypeInContext(ctx, string(batch.DocumentType))
	ctx = utils.SetBatchLabelInContext(ctx, batch.Label)
	log := c.logger().WithFields(utils.LogFields(ctx))
	log.Info("starting batch")

	reader, err := in.Open(name)
	if err != nil {
		return false, c.fail(ctx, in, name, err)
	}

	result, err := processor.ProcessFile(ctx, batch, prpo.NewDelimitedSource(reader))
	if err != nil && !errors.Is(err, prpo.ErrEmptyBatch) {
		var perr *prpo.PersistenceError
		if errors.As(err, &perr) && ctx.Err() != nil {
			log.WithField("error", err.Error()).Warn("cycle cancelled, batch left pending")
			return false, context.Cause(ctx)
		}
		if errors.As(err, &perr) && c.Connections != nil {
			if pingErr := c.Connections.Ping(ctx); pingErr != nil {
				log.WithField("error", err.Error()).Error("connection lost, batch left pending")
				c.alert(ctx, pingErr)
				return false, pingErr
			}
		}
		return false, c.fail(ctx, in, name, err)
	}

	if err := in.MarkProcessed(name); err != nil {
		return true, err
	}
	if result != nil && len(result.Invalid) > 0 {
		c.announceInvalid(ctx, result)
	}
	return true, nil
}

// fail marks the batch as failed and raises an alert. Only a marker write failure is returned.
func (c *Cycle) fail(ctx context.Context, in *inbox.Inbox, name string, cause error) error {
	config.LogError(c.logger(), "cycle.go", "runFile", "batch failed", name, cause)
	c.alert(ctx, cause)
	return in.MarkError(name, cause)
}

func (c *Cycle) alert(ctx context.Context, err error) {
	if c.Notifier == nil {
		return
	}
	if nerr := c.Notifier.Alert(ctx, notify.NewAlert(ctx, err)); nerr != nil {
		config.LogError(c.logger(), "cycle.go", "alert", "publish alert", err.Error(), nerr)
	}
}

func (c *Cycle) announceInvalid(ctx context.Context, result *prpo.FileResult) {
	log := c.logger().WithFields(utils.LogFields(ctx))
	reportUrl := ""
	if c.Archive != nil {
		data, err := reports.InvalidRecordsWorkbook(result.Invalid)
		if err != nil {
			config.LogError(c.logger(), "cycle.go", "announceInvalid", "render workbook", result.Label, err)
		} else {
			object := reports.InvalidRecordsObjectName(result.DocumentType, result.Label, c.now())
			reportUrl, err = c.Archive.Upload(ctx, object, data, reports.XlsxContentType)
			if err != nil {
				config.LogError(c.logger(), "cycle.go", "announceInvalid", "archive workbook", object, err)
				reportUrl = ""
			}
		}
	}
	if c.Notifier == nil {
		return
	}
	notice := notify.NewInvalidRecordsNotice(ctx, result.DocumentType, result.Label, result.Invalid, reportUrl)
	if err := c.Notifier.InvalidRecords(ctx, notice); err != nil {
		config.LogError(c.logger(), "cycle.go", "announceInvalid", "publish notice", result.Label, err)
		return
	}
	log.WithField("count", len(result.Invalid)).Info("invalid records announced")
}
