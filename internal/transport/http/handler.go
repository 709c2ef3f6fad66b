package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"cipherquest-service/internal/app"
	"cipherquest-service/internal/domain"
)

// Handler is the REST boundary. It stays thin: decode, delegate to a service,
// map the error, encode. Clients poll; nothing here pushes.
type Handler struct {
	auth        *app.AuthService
	quest       *app.QuestService
	submissions *app.SubmissionService
	judging     *app.JudgingService
	teams       *app.TeamService
	jwtSecret   string
}

func NewHandler(auth *app.AuthService, quest *app.QuestService, submissions *app.SubmissionService, judging *app.JudgingService, teams *app.TeamService, jwtSecret string) *Handler {
	return &Handler{
		auth:        auth,
		quest:       quest,
		submissions: submissions,
		judging:     judging,
		teams:       teams,
		jwtSecret:   jwtSecret,
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/verify-email", h.verifyEmail)
	mux.HandleFunc("POST /api/auth/resend-verification", h.resendVerification)
	mux.HandleFunc("POST /api/auth/forgot-password", h.forgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", h.resetPassword)

	mux.HandleFunc("POST /api/quest/start", h.requireTeam(h.startQuest))
	mux.HandleFunc("POST /api/quest/guess", h.requireTeam(h.submitGuess))
	mux.HandleFunc("POST /api/quest/reset", h.requireTeam(h.resetQuest))
	mux.HandleFunc("GET /api/quest/status/{teamId}", h.requireTeamMatch("teamId", h.questStatus))
	mux.HandleFunc("GET /api/quest/current-question/{sessionId}", h.requireTeam(h.currentQuestion))
	mux.HandleFunc("GET /api/quest/questions/{sessionId}", h.requireTeam(h.questQuestions))
	mux.HandleFunc("GET /api/quest/leaderboard", h.questLeaderboard)

	mux.HandleFunc("GET /api/submissions/problem/{teamId}", h.requireTeamMatch("teamId", h.submissionProblem))
	mux.HandleFunc("POST /api/submissions/submit", h.requireTeam(h.submitProject))
	mux.HandleFunc("GET /api/submissions/status/{teamId}", h.requireTeamMatch("teamId", h.submissionStatus))
	mux.HandleFunc("GET /api/submissions/deadline", h.submissionDeadline)
	mux.HandleFunc("GET /api/submissions/guidelines", h.submissionGuidelines)

	mux.HandleFunc("GET /api/leaderboard", h.finalLeaderboard)
	mux.HandleFunc("GET /api/leaderboard/top-teams", h.topTeams)
	mux.HandleFunc("GET /api/leaderboard/stats", h.eventStats)
	mux.HandleFunc("POST /api/leaderboard/judge", h.judgeTeam)

	mux.HandleFunc("GET /api/teams/dashboard/{teamId}", h.requireTeamMatch("teamId", h.teamDashboard))
	mux.HandleFunc("GET /api/teams/progress/{teamId}", h.requireTeamMatch("teamId", h.teamProgress))
	mux.HandleFunc("PUT /api/teams/profile/{teamId}", h.requireTeamMatch("teamId", h.updateProfile))

	return mux
}

// teamHandler receives the authenticated team ID alongside the request.
type teamHandler func(w http.ResponseWriter, r *http.Request, teamID string)

// requireTeam authenticates the bearer token and passes the team ID through.
func (h *Handler) requireTeam(next teamHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := h.teamFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, teamID)
	}
}

// requireTeamMatch additionally checks the path parameter names the
// authenticated team, so one team cannot read another's state.
func (h *Handler) requireTeamMatch(param string, next teamHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := h.teamFromRequest(r)
		if err != nil || r.PathValue(param) != teamID {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, teamID)
	}
}

func (h *Handler) teamFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", domain.ErrInvalidToken
	}
	return app.ParseToken(token, h.jwtSecret)
}

// --- auth ---

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TeamName    string   `json:"team_name"`
		LeadEmail   string   `json:"lead_email"`
		Password    string   `json:"password"`
		TeamMembers []string `json:"team_members"`
	}
	if !decode(w, r, &body) {
		return
	}
	team, err := h.auth.Register(r.Context(), app.RegisterInput{
		TeamName:    body.TeamName,
		LeadEmail:   body.LeadEmail,
		Password:    body.Password,
		TeamMembers: body.TeamMembers,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "registration successful, check your email to verify your account",
		"team":    team,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &body) {
		return
	}
	team, token, err := h.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "team": team})
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &body) {
		return
	}
	team, err := h.auth.VerifyEmail(r.Context(), body.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "email verified", "team": team})
}

func (h *Handler) resendVerification(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := h.auth.ResendVerification(r.Context(), body.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "verification email sent"})
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), body.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	// Same response whether or not the email is registered.
	writeJSON(w, http.StatusOK, map[string]any{"message": "if the email is registered, a reset link has been sent"})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), body.Token, body.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
}

// --- quest ---

func (h *Handler) startQuest(w http.ResponseWriter, r *http.Request, teamID string) {
	session, created, err := h.quest.Start(r.Context(), teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"session": session, "created": created})
}

func (h *Handler) submitGuess(w http.ResponseWriter, r *http.Request, teamID string) {
	var body struct {
		SessionID  string `json:"session_id"`
		QuestionID string `json:"question_id"`
		Guess      string `json:"guess"`
	}
	if !decode(w, r, &body) {
		return
	}
	result, err := h.quest.SubmitGuess(r.Context(), body.SessionID, body.QuestionID, body.Guess, teamID)
	if err != nil {
		var timeErr *domain.TimeExceededError
		if errors.As(err, &timeErr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":     timeErr.Error(),
				"completed": true,
				"qualified": timeErr.Qualified,
			})
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) resetQuest(w http.ResponseWriter, r *http.Request, teamID string) {
	if err := h.quest.Reset(r.Context(), teamID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "quest progress reset"})
}

func (h *Handler) questStatus(w http.ResponseWriter, r *http.Request, teamID string) {
	status, err := h.quest.Status(r.Context(), teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) currentQuestion(w http.ResponseWriter, r *http.Request, _ string) {
	question, progress, err := h.quest.CurrentQuestion(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"question": question, "progress": progress})
}

func (h *Handler) questQuestions(w http.ResponseWriter, r *http.Request, _ string) {
	questions, err := h.quest.Questions(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (h *Handler) questLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.quest.Leaderboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

// --- submissions ---

func (h *Handler) submissionProblem(w http.ResponseWriter, r *http.Request, teamID string) {
	view, err := h.submissions.Problem(r.Context(), teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) submitProject(w http.ResponseWriter, r *http.Request, teamID string) {
	var body struct {
		PptURL       string `json:"ppt_url"`
		PrototypeURL string `json:"prototype_url"`
		GithubURL    string `json:"github_url"`
		Description  string `json:"description"`
	}
	if !decode(w, r, &body) {
		return
	}
	submission, err := h.submissions.Submit(r.Context(), app.SubmitInput{
		TeamID:       teamID,
		PptURL:       body.PptURL,
		PrototypeURL: body.PrototypeURL,
		GithubURL:    body.GithubURL,
		Description:  body.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "submission recorded", "submission": submission})
}

func (h *Handler) submissionStatus(w http.ResponseWriter, r *http.Request, teamID string) {
	submission, submitted, err := h.submissions.Status(r.Context(), teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submitted": submitted, "submission": submission})
}

func (h *Handler) submissionDeadline(w http.ResponseWriter, r *http.Request) {
	view, err := h.submissions.Deadline(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deadline":       view.Deadline,
		"time_remaining": view.TimeRemaining,
		"is_overdue":     view.IsOverdue,
	})
}

func (h *Handler) submissionGuidelines(w http.ResponseWriter, r *http.Request) {
	title, guidelines, err := h.submissions.Guidelines(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"title": title, "guidelines": guidelines})
}

// --- judging and leaderboard ---

func (h *Handler) finalLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.judging.Leaderboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

func (h *Handler) topTeams(w http.ResponseWriter, r *http.Request) {
	top, err := h.judging.TopTeams(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"top_teams": top})
}

func (h *Handler) eventStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.judging.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) judgeTeam(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TeamID              string `json:"team_id"`
		SubmissionID        string `json:"submission_id"`
		InnovationScore     int    `json:"innovation_score"`
		ImplementationScore int    `json:"implementation_score"`
		PresentationScore   int    `json:"presentation_score"`
		JudgeNotes          string `json:"judge_notes"`
		JudgedBy            string `json:"judged_by"`
	}
	if !decode(w, r, &body) {
		return
	}
	score, err := h.judging.Record(r.Context(), app.JudgeInput{
		TeamID:              body.TeamID,
		SubmissionID:        body.SubmissionID,
		InnovationScore:     body.InnovationScore,
		ImplementationScore: body.ImplementationScore,
		PresentationScore:   body.PresentationScore,
		JudgeNotes:          body.JudgeNotes,
		JudgedBy:            body.JudgedBy,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, score)
}

// --- teams ---

func (h *Handler) teamDashboard(w http.ResponseWriter, r *http.Request, teamID string) {
	dashboard, err := h.teams.Dashboard(r.Context(), teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) teamProgress(w http.ResponseWriter, r *http.Request, teamID string) {
	progress, err := h.teams.Progress(r.Context(), teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, teamID string) {
	var body struct {
		TeamMembers []string `json:"team_members"`
	}
	if !decode(w, r, &body) {
		return
	}
	team, err := h.teams.UpdateProfile(r.Context(), teamID, body.TeamMembers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// --- plumbing ---

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTeamNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrProblemNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateTeam):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrEmailNotVerified),
		errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrTeamDisqualified),
		errors.Is(err, domain.ErrQuestCompleted),
		errors.Is(err, domain.ErrAlreadySolved),
		errors.Is(err, domain.ErrMaxAttemptsReached),
		errors.Is(err, domain.ErrNoQuestionsAvailable),
		errors.Is(err, domain.ErrNotQualified):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
