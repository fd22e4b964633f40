package prpo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("bitbucket.org/mmdatafocus/prpo_backend/prpo")

// Batch identifies one input file.
type Batch struct {
	DocumentType models.DocumentType
	// file name, recorded against every staged row
	Label      string
	SourcePath string
	SavedTo    string
}

type Processor struct {
	store  Store
	clock  func() time.Time
	logger *logrus.Logger
}

type Option func(*Processor)

func WithClock(clock func() time.Time) Option {
	return func(p *Processor) { p.clock = clock }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

func NewProcessor(store Store, opts ...Option) *Processor {
	p := &Processor{
		store:  store,
		clock:  time.Now,
		logger: config.GetLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type fileState struct {
	batch    Batch
	layout   layout
	resolver *Resolver
	rules    *ValidityRules
	snap     *Snapshot
	result   *FileResult
}

// ProcessFile reconciles one batch against the stores, one row at a time.
//
// The header is checked before any row is read. Every row's writes commit on their own;
// a PersistenceError stops the file and is returned with the partial result.
// The process log is written only when every row went through.
func (p *Processor) ProcessFile(ctx context.Context, batch Batch, rows RowSource) (*FileResult, error) {
	ctx = utils.SetDocumentTypeInContext(ctx, string(batch.DocumentType))
	ctx = utils.SetBatchLabelInContext(ctx, batch.Label)
	ctx, span := tracer.Start(ctx, "prpo.ProcessFile")
	defer span.End()
	span.SetAttributes(
		attribute.String("prpo.document_type", string(batch.DocumentType)),
		attribute.String("prpo.batch", batch.Label),
	)

	result, err := p.processFile(ctx, batch, rows)
	if err != nil && !errors.Is(err, ErrEmptyBatch) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (p *Processor) processFile(ctx context.Context, batch Batch, rows RowSource) (*FileResult, error) {
	log := p.logger.WithFields(utils.LogFields(ctx))
	l := layoutFor(batch.DocumentType)

	header, err := rows.Header()
	if err != nil {
		if errors.Is(err, ErrEmptyBatch) {
			log.Warn("batch file is empty")
		}
		return nil, err
	}
	if err := checkHeaders(l, header); err != nil {
		return nil, err
	}

	loadedAt := p.clock()
	log.Info("begin processing batch")

	st, err := p.prepare(ctx, batch, l)
	if err != nil {
		return nil, err
	}

	for {
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st.result, fmt.Errorf("read %s: %w", batch.Label, err)
		}
		if err := p.processRow(ctx, st, row); err != nil {
			log.WithFields(st.result.Counters.fields()).Error("batch aborted")
			return st.result, err
		}
	}

	st.result.Log = newProcessLog(batch, loadedAt, st.result.Counters, st.result.Diagnostics)
	if err := p.store.InsertProcessLog(ctx, &st.result.Log); err != nil {
		return st.result, &PersistenceError{Op: "insert process log", Err: err}
	}

	if sites := st.result.Diagnostics.Sites(); sites != "" {
		log.WithField("unmatched_sites", sites).Info("SAP site codes not found")
	}
	log.WithFields(st.result.Counters.fields()).
		WithField("invalid_records", len(st.result.Invalid)).
		Info("end processing batch")
	return st.result, nil
}

// prepare loads reference data and the identity snapshot once for the file.
func (p *Processor) prepare(ctx context.Context, batch Batch, l layout) (*fileState, error) {
	diag := &Diagnostics{}
	resolver, err := NewResolver(ctx, p.store, diag)
	if err != nil {
		return nil, &PersistenceError{Op: "load references", Err: err}
	}
	rules, err := LoadValidityRules(ctx, p.store)
	if err != nil {
		return nil, &PersistenceError{Op: "load validity rules", Err: err}
	}
	snap, err := LoadSnapshot(ctx, p.store, l.doc)
	if err != nil {
		return nil, &PersistenceError{Op: "load snapshot", Err: err}
	}
	return &fileState{
		batch:    batch,
		layout:   l,
		resolver: resolver,
		rules:    rules,
		snap:     snap,
		result: &FileResult{
			DocumentType: l.doc,
			Label:        batch.Label,
			Diagnostics:  diag,
		},
	}, nil
}

func (p *Processor) processRow(ctx context.Context, st *fileState, row Row) error {
	l := st.layout
	c := &st.result.Counters
	c.Loaded++

	rowRef := row.Get(l.numberCol) + "-" + row.Get(l.lineCol)
	id, ok := l.identity(row)
	if !ok {
		c.Issues++
		p.logger.WithFields(utils.LogFields(ctx)).WithField("row", rowRef).Warn("row has no usable identity")
		return nil
	}

	res := Resolved{SpendType: row.Get(l.spendTypeCol)}
	if product, ok := st.resolver.ResolveProduct(row.Get(l.productCol)); ok {
		res.Product = &product
	}
	res.SiteId, res.SiteName, _ = st.resolver.ResolveSite(row.Get(l.siteCol), rowRef)

	rawAqid := row.Get(l.aqidCol)
	code, equipment, err := st.resolver.ResolveEquipment(ctx, rawAqid, res.SpendType, rowRef)
	if err != nil && !isUnresolved(err) {
		return &PersistenceError{Op: "lookup equipment", Identity: id, Err: err}
	}
	res.Aqid = code
	res.Equipment = equipment

	rt := models.RecordType(strings.ToUpper(row.Get(l.recordTypeCol)))
	if rawAqid == "" || !rt.IsValid() {
		c.Issues++
	}
	// no staging copy either: the row is logged and dropped
	if !rt.IsValid() {
		p.logger.WithFields(utils.LogFields(ctx)).
			WithFields(logrus.Fields{"identity": id.String(), "record_type": string(rt)}).
			Warn("unknown record type")
		return nil
	}

	now := p.clock()
	recs := l.build(row, id, res, rt, now)
	recs.file.FileName = st.batch.Label

	if err := upsertStaging(ctx, p.store, st.snap, recs, now, c); err != nil {
		return err
	}

	eligible := res.Eligible()
	action := Decide(l.doc, eligible, rt, st.snap.Primary.Has(id))
	if err := applyAction(ctx, p.store, action, recs.primary, now, c); err != nil {
		return err
	}
	if action == ActionInsert || action == ActionInsertCancelled {
		st.snap.Primary.Add(id)
	}
	if !eligible || action == ActionIgnoreDelete {
		return nil
	}

	v := st.rules.Evaluate(res.Key())
	rec := invalidRecord(l, row, id, res, recs, v)
	outcome, err := applyValidity(ctx, p.store, st.snap, v, rec, now)
	if err != nil {
		return err
	}
	switch outcome {
	case ledgerInserted:
		c.InvalidAdded++
	case ledgerUpdated:
		c.InvalidUpdated++
	case ledgerResolved:
		c.Resolved++
	}
	if v != Valid {
		st.result.Invalid = append(st.result.Invalid, rec)
	}
	return nil
}

func invalidRecord(l layout, row Row, id models.Identity, res Resolved, recs lineRecords, v Validity) models.InvalidRecord {
	key := res.Key()
	rec := models.InvalidRecord{
		DocumentType:  l.doc,
		Identity:      id,
		PrNbr:         recs.prNbr,
		PrLineNbr:     recs.prLineNbr,
		PoNbr:         recs.poNbr,
		PoLineNbr:     recs.poLineNbr,
		AqId:          res.Aqid,
		ProductId:     utils.IntPtr(key.ProductId),
		SiteId:        utils.IntPtr(key.SiteId),
		EquipmentId:   utils.IntPtr(key.EquipmentId),
		EquipmentDbId: utils.IntPtr(key.EquipmentDbId),
		ProductName:   res.ProductName(),
		SiteName:      res.SiteName,
	}
	if v != Valid {
		rec.Category = v.Category()
		rec.Description = invalidDescription(v, row, l, res.Aqid)
	}
	return rec
}
