package seed

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/johnwards/talentflow/internal/domain"
	"github.com/johnwards/talentflow/internal/store"
)

type applicationDef struct {
	name  string
	email string
	stage string
}

type jobDef struct {
	title        string
	department   string
	location     string
	template     string
	applications []applicationDef
}

var demoJobs = []jobDef{
	{
		title:      "Senior Backend Engineer",
		department: "Engineering",
		location:   "Remote",
		template:   "engineering",
		applications: []applicationDef{
			{name: "Ada Lovelace", email: "ada@example.com", stage: "applied"},
			{name: "Grace Hopper", email: "grace@example.com", stage: "applied"},
			{name: "Alan Turing", email: "alan@example.com", stage: "recruiter-screen"},
			{name: "Barbara Liskov", email: "barbara@example.com", stage: "tech-screen"},
			{name: "Ken Thompson", email: "ken@example.com", stage: "onsite"},
			{name: "Margaret Hamilton", email: "margaret@example.com", stage: "offer"},
		},
	},
	{
		title:      "Account Executive",
		department: "Sales",
		location:   "London",
		template:   "standard",
		applications: []applicationDef{
			{name: "Jordan Lee", email: "jordan@example.com", stage: "applied"},
			{name: "Sam Rivera", email: "sam@example.com", stage: "screen"},
			{name: "Alex Kim", email: "alex@example.com", stage: "interview"},
		},
	},
}

// Seed inserts demo jobs with their pipelines and applications. It is
// idempotent: nothing is written once any job exists.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return fmt.Errorf("count jobs: %w", err)
	}
	if count > 0 {
		return nil
	}

	s := store.New(db)
	for _, jd := range demoJobs {
		if err := seedJob(ctx, s, jd); err != nil {
			return fmt.Errorf("seed job %q: %w", jd.title, err)
		}
	}
	log.WithField("jobs", len(demoJobs)).Info("seeded demo data")
	return nil
}

func seedJob(ctx context.Context, s *store.Store, jd jobDef) error {
	p, err := NewPipeline(jd.template, jd.title)
	if err != nil {
		return err
	}
	job, _, err := s.Jobs.CreateWithPipeline(ctx, &domain.Job{
		Title:      jd.title,
		Department: jd.department,
		Location:   jd.location,
		Status:     domain.JobOpen,
	}, p)
	if err != nil {
		return err
	}

	for _, ad := range jd.applications {
		if _, err := s.Applications.Create(ctx, &domain.Application{
			JobID:           job.ID,
			CandidateName:   ad.name,
			CandidateEmail:  ad.email,
			CurrentStageKey: ad.stage,
			Status:          domain.StatusActive,
		}); err != nil {
			return fmt.Errorf("insert application %s: %w", ad.email, err)
		}
	}
	return nil
}
