package prpo

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
)

// Snapshot is the identity state taken once at file start. It is never reloaded;
// identities written by earlier rows of the same file are added as they go, so a
// repeated identity sees its own earlier write.
type Snapshot struct {
	Primary models.IdentitySet
	Staging models.IdentitySet
	Invalid models.IdentitySet
}

func LoadSnapshot(ctx context.Context, store SnapshotReader, doc models.DocumentType) (*Snapshot, error) {
	primary, err := store.ExistingIdentities(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot primary: %w", err)
	}
	staging, err := store.ExistingStagingIdentities(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot staging: %w", err)
	}
	invalid, err := store.ExistingInvalidIdentities(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot invalid: %w", err)
	}
	return &Snapshot{Primary: primary, Staging: staging, Invalid: invalid}, nil
}
