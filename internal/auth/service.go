package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/membership"
	"github.com/avery/hireflow/pkg/util"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoMembership       = errors.New("user has no active membership")
)

type Service struct {
	db     *gorm.DB
	jwt    *JWTService
	ledger *membership.Service
}

func NewService(db *gorm.DB, jwt *JWTService, ledger *membership.Service) *Service {
	return &Service{db: db, jwt: jwt, ledger: ledger}
}

type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	CompanyName string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token      string             `json:"token"`
	User       *models.User       `json:"user"`
	Membership *models.Membership `json:"membership"`
}

// Register creates a company, its founding user, and the admin membership in
// one transaction.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	if input.CompanyName == "" {
		input.CompanyName = input.Name + "'s Company"
	}

	company := models.Company{
		Name: input.CompanyName,
		Slug: util.UniqueSlug(input.CompanyName),
	}

	var user models.User
	var member *models.Membership
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&company).Error; err != nil {
			return err
		}

		user = models.User{
			Email:         input.Email,
			PasswordHash:  hash,
			Name:          input.Name,
			EmailVerified: false,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		member, err = s.ledger.WithTx(tx).CreateOwnerMembership(ctx, user.ID, company.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID, company.ID, user.Email, member.Role)
	if err != nil {
		return nil, err
	}

	member.Company = &company

	return &AuthResponse{
		Token:      token,
		User:       &user,
		Membership: member,
	}, nil
}

// Login authenticates a user and issues a token scoped to their active
// membership, if any.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", input.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	member, err := s.ledger.ActiveForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	companyID := uuid.Nil
	role := models.Role("")
	if member != nil {
		companyID = member.CompanyID
		role = member.Role
	}

	token, err := s.jwt.GenerateToken(user.ID, companyID, user.Email, role)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:      token,
		User:       &user,
		Membership: member,
	}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
