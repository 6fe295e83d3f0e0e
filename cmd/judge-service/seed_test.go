package main

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"codearena/internal/common/db"
	"codearena/internal/judge/model"
)

type seedDB struct {
	db.Database
	events *[]string
	err    error
}

func (d *seedDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	*d.events = append(*d.events, "begin")
	if err := fn(nil); err != nil {
		*d.events = append(*d.events, "rollback")
		return err
	}
	if d.err != nil {
		*d.events = append(*d.events, "rollback")
		return d.err
	}
	*d.events = append(*d.events, "commit")
	return nil
}

type seedRepo struct {
	events *[]string
}

func (r *seedRepo) GetBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	return nil, errors.New("not implemented")
}

func (r *seedRepo) Upsert(ctx context.Context, tx db.Transaction, problem *model.Problem) error {
	*r.events = append(*r.events, "upsert "+problem.Slug)
	return nil
}

func (r *seedRepo) Invalidate(ctx context.Context, slugs ...string) error {
	for _, slug := range slugs {
		*r.events = append(*r.events, "invalidate "+slug)
	}
	return nil
}

func TestSeedProblemsInvalidatesAfterCommit(t *testing.T) {
	var events []string
	problems := []*model.Problem{{Slug: "a"}, {Slug: "b"}}
	if err := seedProblems(context.Background(), &seedDB{events: &events}, &seedRepo{events: &events}, problems); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	want := []string{"begin", "upsert a", "upsert b", "commit", "invalidate a", "invalidate b"}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestSeedProblemsSkipsInvalidateOnFailedCommit(t *testing.T) {
	var events []string
	commitErr := errors.New("commit failed")
	err := seedProblems(context.Background(), &seedDB{events: &events, err: commitErr}, &seedRepo{events: &events}, []*model.Problem{{Slug: "a"}})
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}
	want := []string{"begin", "upsert a", "rollback"}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("unexpected events %v", events)
	}
}
