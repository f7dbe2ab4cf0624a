package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avery/hireflow/internal/auth"
	"github.com/avery/hireflow/internal/database/models"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Membership{},
		&models.Invitation{},
		&models.PipelineTemplate{},
		&models.TemplateStage{},
		&models.Job{},
		&models.PipelineStage{},
		&models.Application{},
		&models.Activity{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestCompany creates a test company
func CreateTestCompany(t *testing.T, db *gorm.DB) *models.Company {
	t.Helper()

	company := &models.Company{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name: "Test Company",
		Slug: "test-company-" + uuid.New().String()[:8],
	}

	if err := db.Create(company).Error; err != nil {
		t.Fatalf("failed to create test company: %v", err)
	}

	return company
}

// CreateTestUser creates a test user with no membership
func CreateTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	if email == "" {
		email = "test-" + uuid.New().String()[:8] + "@example.com"
	}

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:         email,
		PasswordHash:  hash,
		Name:          "Test User",
		EmailVerified: true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestMembership creates an active membership linking user to company
func CreateTestMembership(t *testing.T, db *gorm.DB, user *models.User, company *models.Company, role models.Role) *models.Membership {
	t.Helper()

	m := &models.Membership{
		Base: models.Base{
			ID: uuid.New(),
		},
		UserID:    user.ID,
		CompanyID: company.ID,
		Role:      role,
		Status:    models.MembershipActive,
	}

	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}

	m.User = user
	m.Company = company
	return m
}

// CreateTestJob creates a job with an ordered stage list
func CreateTestJob(t *testing.T, db *gorm.DB, companyID uuid.UUID, stageNames ...string) *models.Job {
	t.Helper()

	if len(stageNames) == 0 {
		stageNames = []string{"Applied", "Screening"}
	}

	job := &models.Job{
		Base: models.Base{
			ID: uuid.New(),
		},
		CompanyID:       companyID,
		Title:           "Test Job",
		Slug:            "test-job-" + uuid.New().String()[:8],
		ExperienceLevel: models.ExperienceMid,
		Status:          models.JobOpen,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("failed to create test job: %v", err)
	}

	for i, name := range stageNames {
		stage := models.PipelineStage{
			Base:  models.Base{ID: uuid.New()},
			JobID: job.ID,
			Name:  name,
			Order: i,
		}
		if err := db.Create(&stage).Error; err != nil {
			t.Fatalf("failed to create test stage: %v", err)
		}
		job.Stages = append(job.Stages, stage)
	}

	return job
}

// CreateTestApplication creates an application sitting at the job's first stage
func CreateTestApplication(t *testing.T, db *gorm.DB, job *models.Job) *models.Application {
	t.Helper()

	app := &models.Application{
		Base: models.Base{
			ID: uuid.New(),
		},
		JobID:          job.ID,
		CandidateName:  "Test Candidate",
		CandidateEmail: "candidate-" + uuid.New().String()[:8] + "@example.com",
		Status:         models.ApplicationApplied,
	}
	if len(job.Stages) > 0 {
		app.PipelineStageID = &job.Stages[0].ID
	}

	if err := db.Create(app).Error; err != nil {
		t.Fatalf("failed to create test application: %v", err)
	}

	return app
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given membership
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User, companyID uuid.UUID, role models.Role) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, companyID, user.Email, role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Company    *models.Company
	Admin      *models.User
	Membership *models.Membership
	Token      string
}

// NewTestContext creates a complete test setup: DB, company, admin user with
// an active admin membership, and a matching token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	company := CreateTestCompany(t, db)
	admin := CreateTestUser(t, db, "")
	m := CreateTestMembership(t, db, admin, company, models.RoleAdmin)
	token := GenerateTestToken(t, jwtService, admin, company.ID, models.RoleAdmin)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Company:    company,
		Admin:      admin,
		Membership: m,
		Token:      token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
