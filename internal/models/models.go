package models

import (
	"time"

	"github.com/google/uuid"
)

type Language string

const (
	LanguageC      Language = "c"
	LanguageCPP    Language = "cpp"
	LanguageJava   Language = "java"
	LanguagePython Language = "python"
)

type SubmissionStatus string

const (
	SubmissionStatusPending             SubmissionStatus = "PENDING"
	SubmissionStatusRunning             SubmissionStatus = "RUNNING"
	SubmissionStatusAccepted            SubmissionStatus = "ACCEPTED"
	SubmissionStatusWrongAnswer         SubmissionStatus = "WRONG_ANSWER"
	SubmissionStatusTimeLimitExceeded   SubmissionStatus = "TIME_LIMIT_EXCEEDED"
	SubmissionStatusMemoryLimitExceeded SubmissionStatus = "MEMORY_LIMIT_EXCEEDED"
	SubmissionStatusCompileError        SubmissionStatus = "COMPILE_ERROR"
	SubmissionStatusRuntimeError        SubmissionStatus = "RUNTIME_ERROR"
	SubmissionStatusSystemError         SubmissionStatus = "SYSTEM_ERROR"
)

// IsTerminal reports whether the status is one of the verdict states.
// A terminal submission is never re-judged implicitly; it must be reset to
// PENDING by an explicit rejudge first.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionStatusAccepted,
		SubmissionStatusWrongAnswer,
		SubmissionStatusTimeLimitExceeded,
		SubmissionStatusMemoryLimitExceeded,
		SubmissionStatusCompileError,
		SubmissionStatusRuntimeError,
		SubmissionStatusSystemError:
		return true
	}
	return false
}

type Problem struct {
	ID                  uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Title               string     `json:"title" gorm:"size:128;not null"`
	TimeLimitMs         int32      `json:"time_limit_ms" gorm:"not null;default:1000"`
	MemoryLimitMb       int32      `json:"memory_limit_mb" gorm:"not null;default:256"`
	TotalSubmissions    int64      `json:"total_submissions" gorm:"not null;default:0"`
	AcceptedSubmissions int64      `json:"accepted_submissions" gorm:"not null;default:0"`
	CreatedAt           time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	Testcases           []Testcase `json:"testcases,omitempty" gorm:"foreignKey:ProblemID;constraint:OnDelete:CASCADE"`
}

type Testcase struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ProblemID uuid.UUID `json:"problem_id" gorm:"type:uuid;not null;index"`
	Input     string    `json:"input" gorm:"type:text;not null"`
	Output    string    `json:"output" gorm:"type:text;not null"`
	IsSample  bool      `json:"is_sample" gorm:"not null;default:false"`
	TestOrder int32     `json:"test_order" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

type Submission struct {
	ID            uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ProblemID     uuid.UUID        `json:"problem_id" gorm:"type:uuid;not null;index"`
	UserID        uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;index"`
	Code          string           `json:"code" gorm:"type:text;not null"`
	Language      Language         `json:"language" gorm:"size:32;not null"`
	Status        SubmissionStatus `json:"status" gorm:"type:submission_status;not null;default:'PENDING'"`
	ExecutionTime int32            `json:"execution_time" gorm:"not null;default:0"`
	MemoryUsed    int32            `json:"memory_used" gorm:"not null;default:0"`
	ErrorMessage  string           `json:"error_message" gorm:"type:text"`
	// AcceptedCounted marks that this submission has already bumped its
	// problem's accepted counter, so a rejudge cannot bump it twice.
	AcceptedCounted bool      `json:"-" gorm:"not null;default:false"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	Problem         *Problem  `json:"problem,omitempty" gorm:"foreignKey:ProblemID"`
}

type Contest struct {
	ID           uuid.UUID            `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Title        string               `json:"title" gorm:"size:128;not null"`
	StartTime    time.Time            `json:"start_time" gorm:"not null"`
	EndTime      time.Time            `json:"end_time" gorm:"not null"`
	CreatedAt    time.Time            `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time            `json:"updated_at" gorm:"autoUpdateTime"`
	Problems     []ContestProblem     `json:"problems,omitempty" gorm:"foreignKey:ContestID;constraint:OnDelete:CASCADE"`
	Participants []ContestParticipant `json:"participants,omitempty" gorm:"foreignKey:ContestID;constraint:OnDelete:CASCADE"`
}

func (c *Contest) IsActive(now time.Time) bool {
	return !now.Before(c.StartTime) && !now.After(c.EndTime)
}

// ContestProblem attaches a problem to a contest with a display order and a
// point value. The same problem can carry different scores in different
// contests.
type ContestProblem struct {
	ContestID    uuid.UUID `json:"contest_id" gorm:"type:uuid;primaryKey"`
	ProblemID    uuid.UUID `json:"problem_id" gorm:"type:uuid;primaryKey"`
	ProblemOrder int32     `json:"problem_order" gorm:"not null"`
	Score        int32     `json:"score" gorm:"not null;default:100"`
}

func (ContestProblem) TableName() string {
	return "contest_problems"
}

// ContestParticipant holds derived standings data. Score and Rank are
// recomputed by the ranking engine, never hand-edited.
type ContestParticipant struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ContestID uuid.UUID `json:"contest_id" gorm:"type:uuid;not null;index:idx_contest_user,unique"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_contest_user,unique"`
	Score     int32     `json:"score" gorm:"not null;default:0"`
	Rank      int32     `json:"rank" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ContestParticipant) TableName() string {
	return "contest_participants"
}
