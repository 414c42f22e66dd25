package static

import (
	"context"

	"github.com/yoockh/careerportal/internal/models"
	"github.com/yoockh/careerportal/internal/utils"
)

type JobRepository interface {
	List(ctx context.Context) ([]models.JobPosting, error)
	GetByID(ctx context.Context, id string) (*models.JobPosting, error)
}

type jobRepo struct {
	jobs []models.JobPosting
}

// NewJobRepo serves a fixed, ordered set of postings. The slice is copied so
// callers cannot mutate the catalog afterwards.
func NewJobRepo(jobs []models.JobPosting) JobRepository {
	out := make([]models.JobPosting, len(jobs))
	for i, j := range jobs {
		out[i] = cloneJob(j)
	}
	return &jobRepo{jobs: out}
}

func NewDefaultJobRepo() JobRepository { return NewJobRepo(DefaultJobs()) }

func (r *jobRepo) List(ctx context.Context) ([]models.JobPosting, error) {
	out := make([]models.JobPosting, len(r.jobs))
	for i, j := range r.jobs {
		out[i] = cloneJob(j)
	}
	return out, nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.JobPosting, error) {
	for _, j := range r.jobs {
		if j.ID == id {
			c := cloneJob(j)
			return &c, nil
		}
	}
	return nil, utils.ErrNotFound
}

func cloneJob(j models.JobPosting) models.JobPosting {
	j.Responsibilities = append([]string(nil), j.Responsibilities...)
	j.Requirements = append([]string(nil), j.Requirements...)
	return j
}

func DefaultJobs() []models.JobPosting {
	return []models.JobPosting{
		{
			ID:          "software-engineer",
			Title:       "Software Engineer",
			Department:  "Engineering",
			Location:    "Istanbul, Turkey",
			Type:        "Full-time",
			Description: "We are looking for a talented Software Engineer to join our growing team.",
			Responsibilities: []string{
				"Design and develop scalable web applications",
				"Collaborate with cross-functional teams",
				"Write clean, maintainable code",
				"Participate in code reviews",
			},
			Requirements: []string{
				"3+ years of software development experience",
				"Proficiency in JavaScript/TypeScript",
				"Experience with React or similar frameworks",
				"Strong problem-solving skills",
			},
		},
		{
			ID:          "data-analyst",
			Title:       "Data Analyst",
			Department:  "Analytics",
			Location:    "Remote",
			Type:        "Full-time",
			Description: "Join our data team to help drive business decisions through data analysis.",
			Responsibilities: []string{
				"Analyze complex datasets",
				"Create dashboards and reports",
				"Collaborate with stakeholders",
				"Present insights to leadership",
			},
			Requirements: []string{
				"2+ years of data analysis experience",
				"Proficiency in SQL and Python",
				"Experience with visualization tools",
				"Strong analytical skills",
			},
		},
		{
			ID:          "marketing-intern",
			Title:       "Marketing Intern",
			Department:  "Marketing",
			Location:    "Istanbul, Turkey",
			Type:        "Internship",
			Description: "Gain hands-on experience in digital marketing and brand management.",
			Responsibilities: []string{
				"Assist with social media campaigns",
				"Create marketing content",
				"Conduct market research",
				"Support the marketing team",
			},
			Requirements: []string{
				"Currently pursuing degree in Marketing or related field",
				"Strong communication skills",
				"Creative thinking",
				"Familiarity with social media platforms",
			},
		},
	}
}
