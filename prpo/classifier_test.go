package prpo

import (
	"testing"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name     string
		doc      models.DocumentType
		eligible bool
		rt       models.RecordType
		known    bool
		want     Action
	}{
		{"insert unknown", models.DocumentTypePr, true, models.RecordTypeInsert, false, ActionInsert},
		{"insert known", models.DocumentTypePr, true, models.RecordTypeInsert, true, ActionUpdate},
		{"update unknown", models.DocumentTypePo, true, models.RecordTypeUpdate, false, ActionInsert},
		{"update known", models.DocumentTypePo, true, models.RecordTypeUpdate, true, ActionUpdate},
		{"delete known pr", models.DocumentTypePr, true, models.RecordTypeDelete, true, ActionCancel},
		{"delete known po", models.DocumentTypePo, true, models.RecordTypeDelete, true, ActionCancel},
		{"delete unknown pr", models.DocumentTypePr, true, models.RecordTypeDelete, false, ActionIgnoreDelete},
		{"delete unknown po", models.DocumentTypePo, true, models.RecordTypeDelete, false, ActionInsertCancelled},
		{"ineligible known", models.DocumentTypePr, false, models.RecordTypeInsert, true, ActionNoMatch},
		{"ineligible known delete", models.DocumentTypePo, false, models.RecordTypeDelete, true, ActionNoMatch},
		{"ineligible unknown", models.DocumentTypePr, false, models.RecordTypeInsert, false, ActionNone},
		{"unknown record type", models.DocumentTypePr, true, models.RecordType("X"), true, ActionNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.doc, tc.eligible, tc.rt, tc.known); got != tc.want {
				t.Fatalf("Decide = %s, want %s", got, tc.want)
			}
		})
	}
}
