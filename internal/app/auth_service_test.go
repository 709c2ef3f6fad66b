package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "cipherquest-service/internal/app"
	"cipherquest-service/internal/domain"
	"cipherquest-service/internal/infra/memory"
	"cipherquest-service/internal/notify"
)

// plainHasher keeps auth tests fast; bcrypt at cost 12 is exercised in the
// integration suite.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hash:" + password, nil }
func (plainHasher) Verify(password, hash string) bool    { return "hash:"+password == hash }

type authEnv struct {
	repos    *Repositories
	service  *AuthService
	notifier *recordingNotifier
	now      time.Time
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	env := &authEnv{
		repos:    memory.NewStore().Repositories(),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	env.service = NewAuthService(env.repos, plainHasher{}, env.notifier, "test-secret")
	env.service.SetNow(func() time.Time { return env.now })
	return env
}

func (env *authEnv) register(t *testing.T) *domain.Team {
	t.Helper()
	team, err := env.service.Register(context.Background(), RegisterInput{
		TeamName:  "ciphers",
		LeadEmail: "lead@example.com",
		Password:  "hunter22",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return team
}

func (env *authEnv) registerVerified(t *testing.T) *domain.Team {
	t.Helper()
	team := env.register(t)
	verified, err := env.service.VerifyEmail(context.Background(), team.VerificationToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return verified
}

func TestRegisterCreatesTeamAndNotifies(t *testing.T) {
	env := newAuthEnv(t)
	team := env.register(t)

	if team.ID == "" || team.VerificationToken == "" {
		t.Fatalf("expected generated identifiers, got %+v", team)
	}
	if team.EmailVerified {
		t.Fatal("new teams start unverified")
	}
	if team.CurrentStage != 1 {
		t.Fatalf("expected stage 1, got %d", team.CurrentStage)
	}
	if team.TeamMembers == nil {
		t.Fatal("members must default to an empty list")
	}
	if !env.notifier.sent(notify.KindVerification) {
		t.Fatal("expected verification email")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	env := newAuthEnv(t)
	env.register(t)

	_, err := env.service.Register(context.Background(), RegisterInput{
		TeamName:  "ciphers",
		LeadEmail: "other@example.com",
		Password:  "password",
	})
	if !errors.Is(err, domain.ErrDuplicateTeam) {
		t.Fatalf("expected ErrDuplicateTeam for reused name, got %v", err)
	}

	_, err = env.service.Register(context.Background(), RegisterInput{
		TeamName:  "others",
		LeadEmail: "lead@example.com",
		Password:  "password",
	})
	if !errors.Is(err, domain.ErrDuplicateTeam) {
		t.Fatalf("expected ErrDuplicateTeam for reused email, got %v", err)
	}
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	env := newAuthEnv(t)
	env.register(t)

	if _, _, err := env.service.Login(context.Background(), "lead@example.com", "hunter22"); !errors.Is(err, domain.ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}

func TestLoginIssuesParsableToken(t *testing.T) {
	env := newAuthEnv(t)
	team := env.registerVerified(t)

	_, token, err := env.service.Login(context.Background(), "lead@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	teamID, err := ParseToken(token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if teamID != team.ID {
		t.Fatalf("token team mismatch: got %s want %s", teamID, team.ID)
	}
	if _, err := ParseToken(token, "wrong-secret"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestLoginMasksUnknownEmail(t *testing.T) {
	env := newAuthEnv(t)
	if _, _, err := env.service.Login(context.Background(), "nobody@example.com", "pw"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRejectsDisqualifiedTeam(t *testing.T) {
	env := newAuthEnv(t)
	team := env.registerVerified(t)
	team.IsDisqualified = true
	if err := env.repos.Teams.UpdateTeam(context.Background(), team); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, _, err := env.service.Login(context.Background(), "lead@example.com", "hunter22"); !errors.Is(err, domain.ErrTeamDisqualified) {
		t.Fatalf("expected ErrTeamDisqualified, got %v", err)
	}
}

func TestVerifyEmailConsumesToken(t *testing.T) {
	env := newAuthEnv(t)
	team := env.register(t)

	verified, err := env.service.VerifyEmail(context.Background(), team.VerificationToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.EmailVerified || verified.VerificationToken != "" {
		t.Fatalf("token not consumed: %+v", verified)
	}
	if _, err := env.service.VerifyEmail(context.Background(), team.VerificationToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on reuse, got %v", err)
	}
}

func TestResendVerificationRotatesToken(t *testing.T) {
	env := newAuthEnv(t)
	team := env.register(t)
	old := team.VerificationToken

	if err := env.service.ResendVerification(context.Background(), "lead@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if _, err := env.service.VerifyEmail(context.Background(), old); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected old token rejected, got %v", err)
	}
}

func TestForgotPasswordDoesNotDiscloseAccounts(t *testing.T) {
	env := newAuthEnv(t)
	if err := env.service.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected silent success for unknown email, got %v", err)
	}
	if env.notifier.sent(notify.KindPasswordReset) {
		t.Fatal("no reset email for unknown accounts")
	}
}

func TestResetPasswordFlow(t *testing.T) {
	env := newAuthEnv(t)
	team := env.registerVerified(t)

	if err := env.service.ForgotPassword(context.Background(), "lead@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	if !env.notifier.sent(notify.KindPasswordReset) {
		t.Fatal("expected reset email")
	}

	reset := findResetToken(t, env, team.ID)

	if err := env.service.ResetPassword(context.Background(), reset.Token, "short"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected length validation, got %v", err)
	}
	if err := env.service.ResetPassword(context.Background(), reset.Token, "newpassword"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, _, err := env.service.Login(context.Background(), "lead@example.com", "newpassword"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	// Single use.
	if err := env.service.ResetPassword(context.Background(), reset.Token, "anotherpass"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected spent token rejected, got %v", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	env := newAuthEnv(t)
	team := env.registerVerified(t)
	if err := env.service.ForgotPassword(context.Background(), "lead@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	reset := findResetToken(t, env, team.ID)

	env.now = env.now.Add(2 * time.Hour)
	if err := env.service.ResetPassword(context.Background(), reset.Token, "newpassword"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func findResetToken(t *testing.T, env *authEnv, teamID string) *domain.PasswordResetToken {
	t.Helper()
	// The repository interface only resolves by token value; the memory store
	// additionally exposes a by-team lookup for tests.
	store, ok := env.repos.ResetTokens.(interface {
		ResetTokenByTeam(ctx context.Context, teamID string) (*domain.PasswordResetToken, error)
	})
	if !ok {
		t.Fatal("memory store must expose ResetTokenByTeam for tests")
	}
	token, err := store.ResetTokenByTeam(context.Background(), teamID)
	if err != nil {
		t.Fatalf("reset token lookup: %v", err)
	}
	return token
}
