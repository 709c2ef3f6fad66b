package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// Quest tuning constants shared by the engine and its read-side projections.
const (
	QuestQuestionCount     = 5
	QualificationThreshold = 3
	QuestDuration          = 1800 // seconds
	PointsPerDifficulty    = 10
)

// Team is the registered unit of participation. The quest engine only touches
// QuestScore, CurrentStage and IsDisqualified; everything else belongs to auth.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID                string    `bun:"id,pk" json:"id"`
	TeamName          string    `bun:"team_name,notnull,unique" json:"team_name"`
	LeadEmail         string    `bun:"lead_email,notnull,unique" json:"lead_email"`
	PasswordHash      string    `bun:"password,notnull" json:"-"`
	TeamMembers       []string  `bun:"team_members,type:jsonb" json:"team_members"`
	EmailVerified     bool      `bun:"email_verified,notnull,default:false" json:"email_verified"`
	VerificationToken string    `bun:"verification_token,nullzero" json:"-"`
	IsDisqualified    bool      `bun:"is_disqualified,notnull,default:false" json:"is_disqualified"`
	CurrentStage      int       `bun:"current_stage,notnull,default:1" json:"current_stage"`
	QuestScore        int       `bun:"quest_score,notnull,default:0" json:"quest_score"`
	CreatedAt         time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// CipherQuestion is immutable reference data; sessions snapshot it at start.
type CipherQuestion struct {
	bun.BaseModel `bun:"table:cipher_questions,alias:cq"`

	ID            string `bun:"id,pk" json:"id"`
	Hint          string `bun:"hint,notnull" json:"hint"`
	Category      string `bun:"category,notnull" json:"category"`
	ProblemDomain string `bun:"problem_domain,notnull" json:"problem_domain"`
	CipherType    string `bun:"cipher_type,notnull" json:"cipher_type"`
	Difficulty    int    `bun:"difficulty,notnull" json:"difficulty"`
	CorrectAnswer string `bun:"correct_answer,notnull" json:"-"`
	MaxAttempts   int    `bun:"max_attempts,notnull" json:"max_attempts"`
	IsActive      bool   `bun:"is_active,notnull,default:true" json:"is_active"`
}

// SanitizedQuestion is the client-facing view of a question. The correct
// answer never leaves the server.
type SanitizedQuestion struct {
	ID            string `json:"id"`
	Hint          string `json:"hint"`
	Category      string `json:"category"`
	ProblemDomain string `json:"problem_domain"`
	CipherType    string `json:"cipher_type"`
	Difficulty    int    `json:"difficulty"`
	MaxAttempts   int    `json:"max_attempts"`
}

// Sanitize strips the answer from a question.
func (q CipherQuestion) Sanitize() SanitizedQuestion {
	return SanitizedQuestion{
		ID:            q.ID,
		Hint:          q.Hint,
		Category:      q.Category,
		ProblemDomain: q.ProblemDomain,
		CipherType:    q.CipherType,
		Difficulty:    q.Difficulty,
		MaxAttempts:   q.MaxAttempts,
	}
}

// QuestSession is the central mutable aggregate: one per team, exactly five
// questions snapshotted at creation. Counters only ever grow while the session
// is active and freeze once IsCompleted flips.
type QuestSession struct {
	bun.BaseModel `bun:"table:quest_sessions,alias:qs"`

	ID                   string           `bun:"id,pk" json:"id"`
	TeamID               string           `bun:"team_id,notnull,unique" json:"team_id"`
	Questions            []CipherQuestion `bun:"questions,type:jsonb" json:"-"`
	StartedAt            time.Time        `bun:"started_at,notnull" json:"started_at"`
	QuestDuration        int              `bun:"quest_duration,notnull" json:"quest_duration"`
	CurrentQuestionIndex int              `bun:"current_question_index,notnull,default:0" json:"current_question_index"`
	Score                int              `bun:"score,notnull,default:0" json:"score"`
	CorrectAnswers       int              `bun:"correct_answers,notnull,default:0" json:"correct_answers"`
	IsCompleted          bool             `bun:"is_completed,notnull,default:false" json:"is_completed"`
	CompletedAt          *time.Time       `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
	AssignedProblemID    *string          `bun:"assigned_problem_id,nullzero" json:"assigned_problem_id,omitempty"`
}

// QuestionByID resolves a question from the session snapshot, never the live
// question bank, so mid-quest edits cannot leak in.
func (s *QuestSession) QuestionByID(id string) (CipherQuestion, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return CipherQuestion{}, false
}

// QuestionAttempt records every guess a team makes against one question of
// their session. The guess list is append-only and IsCorrect is one-way.
type QuestionAttempt struct {
	bun.BaseModel `bun:"table:question_attempts,alias:qa"`

	ID             string     `bun:"id,pk" json:"id"`
	QuestSessionID string     `bun:"quest_session_id,notnull" json:"quest_session_id"`
	QuestionID     string     `bun:"question_id,notnull" json:"question_id"`
	TeamID         string     `bun:"team_id,notnull" json:"team_id"`
	Attempts       []string   `bun:"attempts,type:jsonb" json:"attempts"`
	IsCorrect      bool       `bun:"is_correct,notnull,default:false" json:"is_correct"`
	CompletedAt    *time.Time `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
}

// ProblemStatement is the downstream assignment target for qualified teams.
type ProblemStatement struct {
	bun.BaseModel `bun:"table:problem_statements,alias:ps"`

	ID                 string    `bun:"id,pk" json:"id"`
	Domain             string    `bun:"domain,notnull" json:"domain"`
	Title              string    `bun:"title,notnull" json:"title"`
	Description        string    `bun:"description" json:"description"`
	Guidelines         string    `bun:"guidelines" json:"guidelines"`
	SubmissionDeadline time.Time `bun:"submission_deadline" json:"submission_deadline"`
	IsActive           bool      `bun:"is_active,notnull,default:true" json:"is_active"`
	CreatedAt          time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Submission is the one-per-team project artifact. QuestCompletionTime is
// stamped by the completion routine and immutable afterwards.
type Submission struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID                  string     `bun:"id,pk" json:"id"`
	TeamID              string     `bun:"team_id,notnull,unique" json:"team_id"`
	ProblemID           string     `bun:"problem_id,notnull" json:"problem_id"`
	PptURL              string     `bun:"ppt_url,nullzero" json:"ppt_url,omitempty"`
	PrototypeURL        string     `bun:"prototype_url,nullzero" json:"prototype_url,omitempty"`
	GithubURL           string     `bun:"github_url,nullzero" json:"github_url,omitempty"`
	Description         string     `bun:"description,nullzero" json:"description,omitempty"`
	QuestCompletionTime int        `bun:"quest_completion_time,notnull,default:0" json:"quest_completion_time"`
	IsSubmitted         bool       `bun:"is_submitted,notnull,default:false" json:"is_submitted"`
	SubmissionTime      *time.Time `bun:"submission_time,nullzero" json:"submission_time,omitempty"`
}

// JudgingScore holds the panel's per-team verdict. Component scores are on a
// 0-100 scale; TotalScore averages the three components plus the capped quest
// score.
type JudgingScore struct {
	bun.BaseModel `bun:"table:judging_scores,alias:js"`

	ID                  string    `bun:"id,pk" json:"id"`
	TeamID              string    `bun:"team_id,notnull" json:"team_id"`
	SubmissionID        string    `bun:"submission_id,nullzero" json:"submission_id,omitempty"`
	InnovationScore     int       `bun:"innovation_score,notnull" json:"innovation_score"`
	ImplementationScore int       `bun:"implementation_score,notnull" json:"implementation_score"`
	PresentationScore   int       `bun:"presentation_score,notnull" json:"presentation_score"`
	QuestScore          int       `bun:"quest_score,notnull" json:"quest_score"`
	TotalScore          int       `bun:"total_score,notnull" json:"total_score"`
	JudgeNotes          string    `bun:"judge_notes,nullzero" json:"judge_notes,omitempty"`
	JudgedBy            string    `bun:"judged_by,nullzero" json:"judged_by,omitempty"`
	CreatedAt           time.Time `bun:"created_at,notnull" json:"created_at"`
}

// PasswordResetToken is single-use and expires an hour after issuance.
type PasswordResetToken struct {
	bun.BaseModel `bun:"table:password_reset_tokens,alias:prt"`

	ID        string    `bun:"id,pk" json:"id"`
	TeamID    string    `bun:"team_id,notnull" json:"team_id"`
	Token     string    `bun:"token,notnull,unique" json:"-"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expires_at"`
	Used      bool      `bun:"used,notnull,default:false" json:"used"`
}
