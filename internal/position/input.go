package position

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// descriptionPolicy 允许职位描述保留常见富文本标签，脚本与事件属性会被移除。
	descriptionPolicy = bluemonday.UGCPolicy()
	fieldValidator    = validator.New()
)

// Input 是创建或修改职位时的请求体。
type Input struct {
	Title              string    `json:"title"`
	Department         string    `json:"department"`
	Description        string    `json:"description"`
	Requirements       []string  `json:"requirements"`
	Questions          []string  `json:"questions"`
	ExperienceMinYears int       `json:"experience_min_years"`
	ExperienceMaxYears int       `json:"experience_max_years"`
	SalaryMin          int       `json:"salary_min"`
	SalaryMax          int       `json:"salary_max"`
	Deadline           time.Time `json:"deadline"`
	GenerateQuestions  bool      `json:"generate_questions"`
	Draft              bool      `json:"draft"`
}

func (in *Input) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Department = strings.TrimSpace(in.Department)
	in.Description = strings.TrimSpace(descriptionPolicy.Sanitize(in.Description))
	in.Requirements = compact(in.Requirements)
	in.Questions = compact(in.Questions)
}

// Validate 检查所有字段并一次性返回全部错误。
func (in *Input) Validate(now time.Time) error {
	in.normalize()
	v := &ValidationError{}
	if in.Title == "" {
		v.add("title", "is required")
	} else if len(in.Title) > 255 {
		v.add("title", "must be at most 255 characters")
	}
	if in.Description == "" {
		v.add("description", "is required")
	}
	if len(in.Requirements) == 0 {
		v.add("requirements", "must list at least one requirement")
	}
	if len(in.Questions) == 0 && !in.GenerateQuestions {
		v.add("questions", "must list at least one question or set generate_questions")
	}
	if in.ExperienceMinYears < 0 {
		v.add("experience_min_years", "must not be negative")
	}
	if in.ExperienceMaxYears < in.ExperienceMinYears {
		v.add("experience_max_years", "must not be less than experience_min_years")
	}
	if in.SalaryMin <= 0 {
		v.add("salary_min", "must be positive")
	}
	if in.SalaryMax < in.SalaryMin {
		v.add("salary_max", "must not be less than salary_min")
	}
	if in.Deadline.IsZero() {
		v.add("deadline", "is required")
	} else if !in.Deadline.After(now) {
		v.add("deadline", "must be in the future")
	}
	return v.orNil()
}

// Candidate 是公开链接面试中自报的候选人信息。
type Candidate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *Candidate) validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	v := &ValidationError{}
	if c.Name == "" {
		v.add("name", "is required")
	}
	if c.Email != "" {
		if err := fieldValidator.Var(c.Email, "email,max=255"); err != nil {
			v.add("email", "is not a valid address")
		}
	}
	return v.orNil()
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
