package domain

import "time"

// GuessResult is the per-guess outcome returned by the quest engine. When the
// guess tripped a terminal condition, QuestCompleted is set and the
// qualification fields are populated.
type GuessResult struct {
	IsCorrect         bool              `json:"isCorrect"`
	Feedback          []LetterFeedback  `json:"feedback"`
	Attempts          int               `json:"attempts"`
	MaxAttempts       int               `json:"maxAttempts"`
	AttemptsRemaining int               `json:"attemptsRemaining"`
	TimeElapsed       int               `json:"timeElapsed"`
	TimeRemaining     int               `json:"timeRemaining"`
	CorrectAnswers    int               `json:"correctAnswers"`
	TotalQuestions    int               `json:"totalQuestions"`
	Score             int               `json:"score"`
	QuestCompleted    bool              `json:"questCompleted"`
	Qualified         bool              `json:"qualified"`
	AssignedProblem   *ProblemStatement `json:"assignedProblem,omitempty"`
}

// QuestProgress summarizes how far a session has come.
type QuestProgress struct {
	Current        int  `json:"current"`
	Total          int  `json:"total"`
	CorrectAnswers int  `json:"correctAnswers"`
	Qualified      bool `json:"qualified"`
}

// QuestStatus is the read-only projection served to polling clients. IsTimeUp
// is informational; status queries never complete a session.
type QuestStatus struct {
	Session         *QuestSession      `json:"questSession"`
	Attempts        []*QuestionAttempt `json:"attempts"`
	CurrentQuestion *SanitizedQuestion `json:"currentQuestion,omitempty"`
	TimeElapsed     int                `json:"timeElapsed"`
	TimeRemaining   int                `json:"timeRemaining"`
	IsTimeUp        bool               `json:"isTimeUp"`
	Progress        QuestProgress      `json:"progress"`
}

// QuestLeaderboardEntry ranks completed sessions by quest score.
type QuestLeaderboardEntry struct {
	Rank           int    `json:"rank"`
	TeamName       string `json:"teamName"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
	Accuracy       int    `json:"accuracy"`
}

// LeaderboardEntry is one row of the judged final standings.
type LeaderboardEntry struct {
	Rank                int    `json:"rank"`
	TeamName            string `json:"teamName"`
	InnovationScore     int    `json:"innovationScore"`
	ImplementationScore int    `json:"implementationScore"`
	PresentationScore   int    `json:"presentationScore"`
	QuestScore          int    `json:"questScore"`
	TotalScore          int    `json:"totalScore"`
	QuestTime           int    `json:"questTime"`
	Description         string `json:"description,omitempty"`
	JudgeNotes          string `json:"judgeNotes,omitempty"`
}

// TopTeamEntry decorates the podium with medals.
type TopTeamEntry struct {
	Position   int    `json:"position"`
	TeamName   string `json:"teamName"`
	TotalScore int    `json:"totalScore"`
	QuestScore int    `json:"questScore"`
	QuestTime  int    `json:"questTime"`
	Medal      string `json:"medal"`
}

// EventStats aggregates event-wide funnel numbers.
type EventStats struct {
	TotalTeams        int `json:"totalTeams"`
	QualifiedTeams    int `json:"qualifiedTeams"`
	SubmittedTeams    int `json:"submittedTeams"`
	AverageQuestScore int `json:"averageQuestScore"`
	QualificationRate int `json:"qualificationRate"`
}

// ProblemView pairs an assigned problem with its deadline countdown.
type ProblemView struct {
	Problem       *ProblemStatement `json:"problem"`
	Deadline      time.Time         `json:"deadline"`
	TimeRemaining int               `json:"timeRemaining"`
	IsOverdue     bool              `json:"isOverdue"`
}

// StageStatus describes one stage of a team's event journey.
type StageStatus struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// Dashboard is the team-facing overview across all three stages.
type Dashboard struct {
	Team            *Team             `json:"teamInfo"`
	QuestStage      StageStatus       `json:"questStage"`
	SubmitStage     StageStatus       `json:"submitStage"`
	FinalsStage     StageStatus       `json:"finalsStage"`
	QuestScore      int               `json:"questScore"`
	CorrectAnswers  int               `json:"correctAnswers"`
	Qualified       bool              `json:"qualified"`
	AssignedProblem *ProblemStatement `json:"assignedProblem,omitempty"`
	Submission      *Submission       `json:"submission,omitempty"`
	JudgingScore    *JudgingScore     `json:"judgingScore,omitempty"`
	OverallProgress int               `json:"overallProgress"`
}

// TeamProgress is the compact polling view of a team's standing.
type TeamProgress struct {
	CurrentStage   int  `json:"currentStage"`
	IsDisqualified bool `json:"isDisqualified"`
	QuestScore     int  `json:"questScore"`
	QuestCompleted bool `json:"questCompleted"`
	CorrectAnswers int  `json:"correctAnswers"`
	Qualified      bool `json:"qualified"`
	SubmissionMade bool `json:"submissionMade"`
	CanProceed     bool `json:"canProceed"`
}
