//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/avery/hireflow/internal/application"
	"github.com/avery/hireflow/internal/auth"
	"github.com/avery/hireflow/internal/database"
	"github.com/avery/hireflow/internal/job"
	"github.com/avery/hireflow/internal/membership"
	"github.com/avery/hireflow/internal/pipeline"
	"github.com/avery/hireflow/pkg/config"
	"github.com/avery/hireflow/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	ledger := membership.NewService(db, logger)
	authService := auth.NewService(db, jwtService, ledger)
	pipelineService := pipeline.NewService(db, logger)
	jobService := job.NewService(db, logger, pipelineService)
	applicationService := application.NewService(db, logger, nil, nil)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}
	if name == "" {
		name = "Admin"
	}

	ctx := context.Background()

	resp, err := authService.Register(ctx, auth.RegisterInput{
		Email:       email,
		Password:    password,
		Name:        name,
		CompanyName: "Demo Recruiting Co",
	})
	if err != nil {
		if err == auth.ErrUserExists {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	companyID := resp.Membership.CompanyID

	posting, err := jobService.Create(ctx, job.CreateInput{
		CompanyID:       companyID,
		Title:           "Backend Engineer",
		Description:     "Build and run the services behind our hiring platform.",
		Location:        "Remote",
		ExperienceLevel: "senior",
		PipelineName:    "Engineering",
		Stages: []pipeline.StageSpec{
			{Name: "Applied", Order: 0},
			{Name: "Phone Screen", Order: 1},
			{Name: "Technical Interview", Order: 2},
			{Name: "Offer", Order: 3},
		},
	})
	if err != nil {
		log.Fatalf("failed to create demo job: %v", err)
	}

	for _, candidate := range []struct{ name, email string }{
		{"Dana Brooks", "dana@example.com"},
		{"Sam Ortiz", "sam@example.com"},
	} {
		if _, err := applicationService.Submit(ctx, application.SubmitInput{
			JobID:          posting.ID,
			CandidateName:  candidate.name,
			CandidateEmail: candidate.email,
		}); err != nil {
			log.Fatalf("failed to create demo application: %v", err)
		}
	}

	fmt.Printf("Seed complete!\n")
	fmt.Printf("Email: %s\n", resp.User.Email)
	fmt.Printf("Company: Demo Recruiting Co\n")
	fmt.Printf("Job: %s (%s)\n", posting.Title, posting.Slug)
	fmt.Printf("Token: %s\n", resp.Token)
}
