package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/pageza/clientpulse/backend/config"
	"github.com/pageza/clientpulse/backend/internal/database"
	"github.com/pageza/clientpulse/backend/internal/models"
	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/types"
)

type seedUser struct {
	name  string
	email string
	role  string
}

var seedUsers = []seedUser{
	{"Admin User", "admin@example.com", models.RoleAdmin},
	{"Una Consultant", "una@example.com", models.RoleConsultant},
	{"Ben Consultant", "ben@example.com", models.RoleConsultant},
}

func main() {
	instances := flag.Int("instances", 4, "Number of weekly instances to generate")
	migrationsDir := flag.String("migrations", "migrations", "Directory containing the SQL migration files")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, *migrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	users := service.NewUserService(db)
	catalog := service.NewCatalogService(db)
	assignments := service.NewAssignmentService(db)
	generator := service.NewGeneratorService(db)
	tokens := service.NewTokenService(cfg.JWTSecret)

	// Users
	var consultantIDs []uuid.UUID
	for _, u := range seedUsers {
		user, err := users.CreateUser(ctx, &types.CreateUserRequest{Name: u.name, Email: u.email, Role: u.role})
		if errors.Is(err, service.ErrValidation) {
			log.Printf("User %s already exists, skipping", u.email)
			continue
		}
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", u.email, err)
		}
		if u.role == models.RoleConsultant {
			consultantIDs = append(consultantIDs, user.ID)
		}

		token, err := tokens.GenerateToken(&types.TokenClaims{UserID: user.ID, Email: user.Email, Role: user.Role})
		if err != nil {
			log.Fatalf("Failed to issue token for %s: %v", u.email, err)
		}
		fmt.Printf("%-20s %s\n  token: %s\n", user.Email, user.ID, token)
	}
	if len(consultantIDs) == 0 {
		log.Println("Users already seeded; nothing else to do")
		return
	}

	// Client, questions and template
	client, err := catalog.CreateClient(ctx, &types.ClientRequest{Name: "Acme", Description: "Demo client"})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	questionReqs := []types.QuestionRequest{
		{Text: "What went well this week?", Type: string(models.QuestionTypeFreeText), Theme: "delivery"},
		{Text: "How satisfied is the client?", Type: string(models.QuestionTypeMultipleChoice), Theme: "relationship", Options: []string{"Low", "Medium", "High"}},
		{Text: "Which area needs attention?", Type: string(models.QuestionTypeDropDown), Theme: "risk", ClientID: &client.ID, Options: []string{"Scope", "Budget", "Timeline", "None"}},
	}
	var inputs []types.TemplateQuestionInput
	for i := range questionReqs {
		q, err := catalog.CreateQuestion(ctx, &questionReqs[i])
		if err != nil {
			log.Fatalf("Failed to create question: %v", err)
		}
		inputs = append(inputs, types.TemplateQuestionInput{QuestionID: q.ID, Order: i + 1})
	}

	start := models.DateOnly(time.Now())
	tmpl, err := catalog.CreateTemplate(ctx, &types.TemplateRequest{
		Name:               "Weekly Check-in",
		ClientID:           client.ID,
		RecurrenceInterval: 7,
		StartDate:          types.NewDate(start),
	})
	if err != nil {
		log.Fatalf("Failed to create template: %v", err)
	}
	if _, err := catalog.SetTemplateQuestions(ctx, tmpl.ID, inputs); err != nil {
		log.Fatalf("Failed to attach questions: %v", err)
	}

	// Assignments and instances
	if _, err := assignments.AssignUsersToTemplate(ctx, tmpl.ID, consultantIDs); err != nil {
		log.Fatalf("Failed to assign users: %v", err)
	}
	result, err := generator.GenerateForms(ctx, tmpl.ID, start, tmpl.RecurrenceInterval, *instances)
	if err != nil {
		log.Fatalf("Failed to generate forms: %v", err)
	}

	log.Printf("Seeded client %s, template %s with %d instances and %d tracking records",
		client.Name, tmpl.Name, len(result.FormIDs), result.TrackingRecords)
}
