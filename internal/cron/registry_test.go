package cron

import (
	"context"
	"testing"
)

type namedJob struct {
	name string
}

func (j *namedJob) Name() string                { return j.name }
func (j *namedJob) Run(_ context.Context) error { return nil }

func TestRegistry_PreservesOrderAndSkipsNil(t *testing.T) {
	first := &namedJob{name: "first"}
	second := &namedJob{name: "second"}

	registry := NewRegistry(first, nil, second)
	registry.Register(nil)
	registry.Register(&namedJob{name: "third"})

	jobs := registry.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if jobs[i].Name() != want {
			t.Fatalf("job %d = %s, want %s", i, jobs[i].Name(), want)
		}
	}
}

func TestRegistry_JobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(&namedJob{name: "only"})

	jobs := registry.Jobs()
	jobs[0] = &namedJob{name: "mutated"}

	if registry.Jobs()[0].Name() != "only" {
		t.Fatal("mutating the returned slice must not affect the registry")
	}
}
