package static

import (
	"context"
	"errors"
	"testing"

	"github.com/yoockh/careerportal/internal/models"
	"github.com/yoockh/careerportal/internal/utils"
)

func TestJobRepoListKeepsOrder(t *testing.T) {
	repo := NewDefaultJobRepo()

	jobs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"software-engineer", "data-analyst", "marketing-intern"}
	if len(jobs) != len(want) {
		t.Fatalf("expected %d jobs, got %d", len(want), len(jobs))
	}
	for i, id := range want {
		if jobs[i].ID != id {
			t.Fatalf("job %d: expected %q, got %q", i, id, jobs[i].ID)
		}
	}
}

func TestJobRepoIsImmutable(t *testing.T) {
	src := []models.JobPosting{{ID: "a", Title: "A", Requirements: []string{"x"}}}
	repo := NewJobRepo(src)
	src[0].Title = "changed"
	src[0].Requirements[0] = "changed"

	jobs, _ := repo.List(context.Background())
	jobs[0].Responsibilities = append(jobs[0].Responsibilities, "leak")

	got, err := repo.GetByID(context.Background(), "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "A" || got.Requirements[0] != "x" || len(got.Responsibilities) != 0 {
		t.Fatalf("catalog mutated: %+v", got)
	}
}

func TestJobRepoGetByIDMissing(t *testing.T) {
	_, err := NewDefaultJobRepo().GetByID(context.Background(), "nope")
	if !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
