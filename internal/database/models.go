package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 账号角色。
const (
	RoleCandidate = "candidate"
	RoleCompany   = "company"
	RoleAdmin     = "admin"
)

// User 表示系统中的账号信息（候选人、企业或管理员）。
type User struct {
	gorm.Model
	Username           string `gorm:"uniqueIndex;size:64"`
	PasswordHash       string `gorm:"size:255"`
	Role               string `gorm:"size:16;index"`
	DisplayName        string `gorm:"size:128"`
	CompanyName        string `gorm:"size:255"`
	MustChangePassword bool   `gorm:"default:false"`
}

// 职位状态。
const (
	PositionDraft  = "draft"
	PositionActive = "active"
	PositionClosed = "closed"
)

// Position 表示企业发布的职位。
type Position struct {
	gorm.Model
	Title              string `gorm:"size:255"`
	Department         string `gorm:"size:128"`
	CompanyID          uint   `gorm:"index"`
	Company            User   `gorm:"constraint:OnDelete:CASCADE"`
	Description        string `gorm:"type:text"`
	Requirements       datatypes.JSONSlice[string]
	Questions          datatypes.JSONSlice[string]
	ExperienceMinYears int
	ExperienceMaxYears int
	SalaryMin          int
	SalaryMax          int
	Deadline           time.Time `gorm:"index"`
	Status             string    `gorm:"size:16;index"`
}

// 投递状态。
const (
	ApplicationPending   = "pending"
	ApplicationScheduled = "scheduled"
	ApplicationAccepted  = "accepted"
	ApplicationRejected  = "rejected"
)

// Application 表示候选人对职位的一次投递，(candidate, position) 唯一。
type Application struct {
	gorm.Model
	CandidateID uint     `gorm:"uniqueIndex:idx_application_candidate_position"`
	Candidate   User     `gorm:"constraint:OnDelete:CASCADE"`
	PositionID  uint     `gorm:"uniqueIndex:idx_application_candidate_position;index"`
	Position    Position `gorm:"constraint:OnDelete:CASCADE"`
	Status      string   `gorm:"size:16"`
}

// InterviewStatus 是面试状态的七个取值之一。
type InterviewStatus string

const (
	InterviewPending     InterviewStatus = "pending"
	InterviewScheduled   InterviewStatus = "scheduled"
	InterviewInProgress  InterviewStatus = "in-progress"
	InterviewCompleted   InterviewStatus = "completed"
	InterviewCancelled   InterviewStatus = "cancelled"
	InterviewShortlisted InterviewStatus = "shortlisted"
	InterviewRejected    InterviewStatus = "rejected"
)

// AnswerRecord 是嵌入在 Interview 中的单条问答记录。
type AnswerRecord struct {
	Index    int        `json:"index"`
	Question string     `json:"question"`
	Answer   string     `json:"answer"`
	Score    *int       `json:"score,omitempty"`
	Feedback string     `json:"feedback,omitempty"`
	ScoredAt *time.Time `json:"scored_at,omitempty"`
}

// Ratings 是 rubric 评分的四个维度，取值 0-10。
type Ratings struct {
	Technical      float64 `json:"technical"`
	Communication  float64 `json:"communication"`
	ProblemSolving float64 `json:"problem_solving"`
	Experience     float64 `json:"experience"`
}

// Feedback 是面试结束后的整体评价。
type Feedback struct {
	Ratings        *Ratings `json:"ratings,omitempty"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Summary        string   `json:"summary"`
	Recommendation string   `json:"recommendation"`
}

// Interview 表示一位候选人针对某职位的完整面试。
type Interview struct {
	gorm.Model
	PositionID           uint `gorm:"index"`
	Position             Position
	CandidateID          *uint           `gorm:"index"`
	CandidateName        string          `gorm:"size:128"`
	CandidateEmail       string          `gorm:"size:255"`
	ApplicationID        *uint           `gorm:"index"`
	IsPublic             bool            `gorm:"default:false"`
	LinkToken            string          `gorm:"size:64;index"`
	AccessToken          string          `gorm:"size:64;index"`
	Status               InterviewStatus `gorm:"size:16;index"`
	IsStarted            bool            `gorm:"default:false"`
	CurrentQuestionIndex int
	CurrentQuestion      string `gorm:"type:text"`
	QuestionsAsked       int
	Answers              datatypes.JSONSlice[AnswerRecord]
	Score                *float64
	ScoringPolicy        string `gorm:"size:16"`
	Feedback             datatypes.JSONType[*Feedback]
	ReportObjectKey      string `gorm:"size:512"`
	StartedAt            *time.Time
	CompletedAt          *time.Time
	Version              int `gorm:"default:0"`
}

// InterviewLink 是匿名发起面试的凭证。
type InterviewLink struct {
	ID         uint   `gorm:"primaryKey"`
	Token      string `gorm:"uniqueIndex;size:64"`
	PositionID uint   `gorm:"index"`
	Position   Position
	CompanyID  uint `gorm:"index"`
	Active     bool `gorm:"default:true"`
	CreatedAt  time.Time
}

// Message 是对话记录中的一条消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation 保存面试过程中的语音/文字转录。
type Conversation struct {
	ID          uint `gorm:"primaryKey"`
	InterviewID uint `gorm:"uniqueIndex"`
	Messages    datatypes.JSONSlice[Message]
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Resume 记录候选人上传到对象存储的简历文件。
type Resume struct {
	gorm.Model
	UserID      uint   `gorm:"index"`
	ObjectKey   string `gorm:"size:512"`
	FileName    string `gorm:"size:255"`
	ContentType string `gorm:"size:128"`
	Size        int64
}

// AllModels lists every record migrated at startup.
func AllModels() []any {
	return []any{
		&User{},
		&Position{},
		&Application{},
		&Interview{},
		&InterviewLink{},
		&Conversation{},
		&Resume{},
	}
}
