package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cipherquest-service/internal/domain"
	"cipherquest-service/internal/notify"
)

const (
	bcryptCost          = 12
	minPasswordLength   = 6
	resetTokenLifetime  = time.Hour
	sessionTokenExpires = 72 * time.Hour
)

// PasswordHasher is the opaque credential capability: services only ever hash
// and verify, never inspect.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// BcryptHasher is the production PasswordHasher.
type BcryptHasher struct{}

func (BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AuthService handles team registration, login and credential recovery.
type AuthService struct {
	repos     *Repositories
	hasher    PasswordHasher
	notifier  notify.Notifier
	jwtSecret string
	now       func() time.Time
}

func NewAuthService(repos *Repositories, hasher PasswordHasher, notifier notify.Notifier, jwtSecret string) *AuthService {
	return &AuthService{
		repos:     repos,
		hasher:    hasher,
		notifier:  notifier,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	TeamName    string
	LeadEmail   string
	Password    string
	TeamMembers []string
}

// Register creates a team and sends a best-effort verification email.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Team, error) {
	if in.TeamName == "" || in.LeadEmail == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: team name, lead email and password are required", domain.ErrInvalidInput)
	}

	exists, err := s.repos.Teams.TeamExists(ctx, in.TeamName, in.LeadEmail)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateTeam
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	members := in.TeamMembers
	if members == nil {
		members = []string{}
	}
	now := s.now().UTC()
	team := &domain.Team{
		ID:                uuid.NewString(),
		TeamName:          in.TeamName,
		LeadEmail:         in.LeadEmail,
		PasswordHash:      hash,
		TeamMembers:       members,
		VerificationToken: uuid.NewString(),
		CurrentStage:      1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repos.Teams.CreateTeam(ctx, team); err != nil {
		return nil, err
	}

	if !s.notifier.Notify(ctx, notify.KindVerification, team.LeadEmail, notify.Payload{
		"team_name": team.TeamName,
		"token":     team.VerificationToken,
	}) {
		log.Printf("verification email for %s not delivered", team.LeadEmail)
	}
	return team, nil
}

// Login checks credentials and issues a signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Team, string, error) {
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	team, err := s.repos.Teams.TeamByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !team.EmailVerified {
		return nil, "", domain.ErrEmailNotVerified
	}
	if team.IsDisqualified {
		return nil, "", domain.ErrTeamDisqualified
	}
	if !s.hasher.Verify(password, team.PasswordHash) {
		return nil, "", domain.ErrInvalidCredentials
	}

	team.UpdatedAt = s.now().UTC()
	if err := s.repos.Teams.UpdateTeam(ctx, team); err != nil {
		return nil, "", err
	}

	token, err := IssueToken(team.ID, s.jwtSecret, s.now())
	if err != nil {
		return nil, "", err
	}
	return team, token, nil
}

// VerifyEmail consumes a verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.Team, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: verification token is required", domain.ErrInvalidInput)
	}
	team, err := s.repos.Teams.TeamByVerificationToken(ctx, token)
	if err != nil {
		return nil, err
	}
	team.EmailVerified = true
	team.VerificationToken = ""
	team.UpdatedAt = s.now().UTC()
	if err := s.repos.Teams.UpdateTeam(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// ResendVerification rotates the verification token and resends the email.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	team, err := s.repos.Teams.TeamByEmail(ctx, email)
	if err != nil {
		return err
	}
	if team.EmailVerified {
		return fmt.Errorf("%w: email already verified", domain.ErrInvalidInput)
	}
	team.VerificationToken = uuid.NewString()
	team.UpdatedAt = s.now().UTC()
	if err := s.repos.Teams.UpdateTeam(ctx, team); err != nil {
		return err
	}
	if !s.notifier.Notify(ctx, notify.KindVerification, team.LeadEmail, notify.Payload{
		"team_name": team.TeamName,
		"token":     team.VerificationToken,
	}) {
		log.Printf("verification email for %s not delivered", team.LeadEmail)
	}
	return nil
}

// ForgotPassword issues a reset token when the email is registered. It never
// discloses whether the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	team, err := s.repos.Teams.TeamByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil
		}
		return err
	}

	token := &domain.PasswordResetToken{
		ID:        uuid.NewString(),
		TeamID:    team.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().UTC().Add(resetTokenLifetime),
	}
	if err := s.repos.ResetTokens.CreateResetToken(ctx, token); err != nil {
		return err
	}
	if !s.notifier.Notify(ctx, notify.KindPasswordReset, team.LeadEmail, notify.Payload{
		"team_name": team.TeamName,
		"token":     token.Token,
	}) {
		log.Printf("password reset email for %s not delivered", team.LeadEmail)
	}
	return nil
}

// ResetPassword consumes a single-use reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return fmt.Errorf("%w: token and new password are required", domain.ErrInvalidInput)
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	reset, err := s.repos.ResetTokens.ResetTokenByToken(ctx, token)
	if err != nil {
		return err
	}
	if reset.Used || s.now().After(reset.ExpiresAt) {
		return domain.ErrInvalidToken
	}

	team, err := s.repos.Teams.TeamByID(ctx, reset.TeamID)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	team.PasswordHash = hash
	team.UpdatedAt = s.now().UTC()
	if err := s.repos.Teams.UpdateTeam(ctx, team); err != nil {
		return err
	}
	return s.repos.ResetTokens.MarkResetTokenUsed(ctx, reset.ID)
}
