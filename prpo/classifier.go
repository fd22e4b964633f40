package prpo

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
)

// Action is the primary-store decision for one row.
type Action int

const (
	ActionNone Action = iota
	ActionInsert
	ActionUpdate
	ActionCancel
	ActionInsertCancelled
	ActionIgnoreDelete
	ActionNoMatch
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	case ActionCancel:
		return "cancel"
	case ActionInsertCancelled:
		return "insert_cancelled"
	case ActionIgnoreDelete:
		return "ignore_delete"
	case ActionNoMatch:
		return "no_match"
	}
	return "none"
}

// Decide maps eligibility, record type and snapshot membership to an action.
//
//	eligible I/U: known -> update (status 1), unknown -> insert (status 1)
//	eligible D:   known -> cancel (D, status 0), unknown -> PR ignored, PO inserted cancelled
//	not eligible: known -> C, status 0; unknown -> nothing
func Decide(doc models.DocumentType, eligible bool, rt models.RecordType, known bool) Action {
	if !eligible {
		if known {
			return ActionNoMatch
		}
		return ActionNone
	}
	switch rt {
	case models.RecordTypeInsert, models.RecordTypeUpdate:
		if known {
			return ActionUpdate
		}
		return ActionInsert
	case models.RecordTypeDelete:
		if known {
			return ActionCancel
		}
		if layoutFor(doc).insertCancelledOnUnknownDelete {
			return ActionInsertCancelled
		}
		return ActionIgnoreDelete
	}
	return ActionNone
}

// applyAction performs the primary-store write for an action. An insert that hits an
// existing identity falls back to a full update with the same status.
func applyAction(ctx context.Context, store LineItemWriter, action Action, item models.LineItem, now time.Time, c *Counters) error {
	id := item.Identity()
	doc := item.DocumentType()

	switch action {
	case ActionInsert, ActionInsertCancelled:
		if action == ActionInsert {
			item.SetStatus(models.StatusActive)
		} else {
			item.SetStatus(models.StatusInactive)
		}
		err := store.InsertLineItem(ctx, item)
		if errors.Is(err, models.ErrDuplicateIdentity) {
			item.SetUpdated(now)
			if err = store.UpdateLineItem(ctx, item); err != nil {
				return &PersistenceError{Op: "update line item", Identity: id, Err: err}
			}
			if action == ActionInsert {
				c.Updated++
			} else {
				c.Cancelled++
			}
			return nil
		}
		if err != nil {
			return &PersistenceError{Op: "insert line item", Identity: id, Err: err}
		}
		if action == ActionInsert {
			c.Added++
		} else {
			c.Cancelled++
		}
	case ActionUpdate:
		item.SetStatus(models.StatusActive)
		item.SetUpdated(now)
		if err := store.UpdateLineItem(ctx, item); err != nil {
			return &PersistenceError{Op: "update line item", Identity: id, Err: err}
		}
		c.Updated++
	case ActionCancel:
		if err := store.SetLineItemStatus(ctx, doc, id, models.RecordTypeDelete, models.StatusInactive, now); err != nil {
			return &PersistenceError{Op: "cancel line item", Identity: id, Err: err}
		}
		c.Cancelled++
	case ActionNoMatch:
		if err := store.SetLineItemStatus(ctx, doc, id, models.RecordTypeNoMatch, models.StatusInactive, now); err != nil {
			return &PersistenceError{Op: "mark line item", Identity: id, Err: err}
		}
		c.NoMatch++
	case ActionIgnoreDelete:
		c.IgnoredDeletes++
	}
	return nil
}

// upsertStaging keeps the staging copy of every row, against the staging snapshot.
func upsertStaging(ctx context.Context, store LineItemWriter, snap *Snapshot, recs lineRecords, now time.Time, c *Counters) error {
	row := recs.staging
	id := row.Identity()

	if err := store.InsertFileRecord(ctx, recs.file); err != nil {
		return &PersistenceError{Op: "insert file record", Identity: id, Err: err}
	}
	c.FilesRecorded++

	if !snap.Staging.Has(id) {
		err := store.InsertStagingRow(ctx, row)
		if err == nil {
			snap.Staging.Add(id)
			c.RawInserted++
			return nil
		}
		if !errors.Is(err, models.ErrDuplicateIdentity) {
			return &PersistenceError{Op: "insert staging row", Identity: id, Err: err}
		}
	}
	row.SetUpdated(now)
	if err := store.UpdateStagingRow(ctx, row); err != nil {
		return &PersistenceError{Op: "update staging row", Identity: id, Err: err}
	}
	c.RawUpdated++
	return nil
}
