package prpo

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
)

func TestNormalizeAqid(t *testing.T) {
	cases := []struct {
		code, spend, want string
	}{
		{"12345-01", "EQ", "12345-01"},
		{"12345-01", "RETRO", "12345-01-R"},
		{"12345-01-R", "RETRO", "12345-01-R"},
		{"", "RETRO", ""},
	}
	for _, tc := range cases {
		if got := NormalizeAqid(tc.code, tc.spend); got != tc.want {
			t.Fatalf("NormalizeAqid(%q, %q) = %q, want %q", tc.code, tc.spend, got, tc.want)
		}
	}
}

func TestParseAqid(t *testing.T) {
	aqid, err := ParseAqid("12345-01")
	if err != nil || aqid != (models.Aqid{BaseId: "12345", Version: "01"}) {
		t.Fatalf("ParseAqid two parts = %+v, %v", aqid, err)
	}
	aqid, err = ParseAqid("12345-01-R")
	if err != nil || aqid.Type != "R" {
		t.Fatalf("ParseAqid three parts = %+v, %v", aqid, err)
	}
	for _, bad := range []string{"12345", "1-2-3-4"} {
		_, err := ParseAqid(bad)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("ParseAqid(%q) error = %v, want ParseError", bad, err)
		}
	}
}

func TestResolverSites(t *testing.T) {
	store := newFixtureStore()
	diag := &Diagnostics{}
	r, err := NewResolver(context.Background(), store, diag)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	id, name, ok := r.ResolveSite("SITE-2", "P1-1")
	if !ok || *id != 2 || name != "Site Two" {
		t.Fatalf("ResolveSite = %v, %q, %v", id, name, ok)
	}
	id, _, ok = r.ResolveSite(SiteSentinel, "P1-2")
	if !ok || *id != 0 {
		t.Fatalf("sentinel should resolve to site 0")
	}
	if _, _, ok := r.ResolveSite("", "P1-3"); ok {
		t.Fatalf("an empty site code must not resolve")
	}
	if got := diag.Sites(); got != " (P1-3)\n" {
		t.Fatalf("site diagnostics = %q", got)
	}
}

func TestResolverEquipment(t *testing.T) {
	store := newFixtureStore()
	diag := &Diagnostics{}
	r, err := NewResolver(context.Background(), store, diag)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	ctx := context.Background()

	code, ref, err := r.ResolveEquipment(ctx, "12345-01", "EQ", "P1-1")
	if err != nil || code != "12345-01" || *ref != (models.EquipmentRef{EquipmentId: 9, EquipmentDbId: 1}) {
		t.Fatalf("ResolveEquipment = %q, %v, %v", code, ref, err)
	}

	_, _, err = r.ResolveEquipment(ctx, "99999-01", "EQ", "P1-2")
	if !errors.Is(err, ErrResolutionAbsent) {
		t.Fatalf("expected ErrResolutionAbsent, got %v", err)
	}

	_, _, err = r.ResolveEquipment(ctx, "", "EQ", "P1-3")
	if !errors.Is(err, ErrResolutionAbsent) {
		t.Fatalf("expected ErrResolutionAbsent for an empty code, got %v", err)
	}
	if got := diag.Equipment(); got != "99999-01 (P1-2)\n" {
		t.Fatalf("equipment diagnostics = %q", got)
	}
}

func TestResolverStoreFailure(t *testing.T) {
	store := newFixtureStore()
	r, err := NewResolver(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	store.ReadErr = errors.New("gone away")

	_, _, err = r.ResolveEquipment(context.Background(), "12345-01", "EQ", "P1-1")
	if err == nil || isUnresolved(err) {
		t.Fatalf("a store failure must not be treated as unresolved, got %v", err)
	}
}
