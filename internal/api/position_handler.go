package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hireLoop/internal/api/middleware"
	"hireLoop/internal/database"
	"hireLoop/internal/export"
	"hireLoop/internal/interview"
	"hireLoop/internal/position"
)

// PositionHandler 处理职位、投递看板、公开链接与结果导出。
type PositionHandler struct {
	db         *gorm.DB
	registry   *position.Registry
	interviews *interview.Manager
	baseURL    string
}

// NewPositionHandler 构造 PositionHandler。baseURL 用于拼接公开面试链接。
func NewPositionHandler(db *gorm.DB, registry *position.Registry, interviews *interview.Manager, baseURL string) *PositionHandler {
	return &PositionHandler{
		db:         db,
		registry:   registry,
		interviews: interviews,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

type linkResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *PositionHandler) newLinkResponse(link *database.InterviewLink) linkResponse {
	return linkResponse{
		Token:     link.Token,
		URL:       h.baseURL + "/interview/public/" + link.Token,
		Active:    link.Active,
		CreatedAt: link.CreatedAt,
	}
}

type positionResponse struct {
	ID                 uint      `json:"id"`
	Title              string    `json:"title"`
	Department         string    `json:"department"`
	CompanyID          uint      `json:"company_id"`
	Description        string    `json:"description"`
	Requirements       []string  `json:"requirements"`
	Questions          []string  `json:"questions,omitempty"`
	ExperienceMinYears int       `json:"experience_min_years"`
	ExperienceMaxYears int       `json:"experience_max_years"`
	SalaryMin          int       `json:"salary_min"`
	SalaryMax          int       `json:"salary_max"`
	Deadline           time.Time `json:"deadline"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
}

// newPositionResponse 只有所属企业能看到题目列表。
func newPositionResponse(p *database.Position, caller interview.Caller) positionResponse {
	out := positionResponse{
		ID:                 p.ID,
		Title:              p.Title,
		Department:         p.Department,
		CompanyID:          p.CompanyID,
		Description:        p.Description,
		Requirements:       p.Requirements,
		ExperienceMinYears: p.ExperienceMinYears,
		ExperienceMaxYears: p.ExperienceMaxYears,
		SalaryMin:          p.SalaryMin,
		SalaryMax:          p.SalaryMax,
		Deadline:           p.Deadline,
		Status:             p.Status,
		CreatedAt:          p.CreatedAt,
	}
	if caller.UserID == p.CompanyID || caller.Role == database.RoleAdmin {
		out.Questions = p.Questions
	}
	return out
}

// CreatePosition 创建职位并返回首条公开链接。
func (h *PositionHandler) CreatePosition(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var in position.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}

	res, err := h.registry.CreatePosition(c.Request.Context(), caller.UserID, in)
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{
		"position": newPositionResponse(res.Position, caller),
		"link":     h.newLinkResponse(res.Link),
	}
	if res.Warning != nil {
		body["warning"] = res.Warning.Error()
	}
	c.JSON(http.StatusCreated, body)
}

// UpdatePosition 修改职位，仅所属企业可操作。
func (h *PositionHandler) UpdatePosition(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	var in position.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	pos, err := h.registry.UpdatePosition(c.Request.Context(), id, caller, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPositionResponse(pos, caller))
}

// ClosePosition 关闭职位，不再接受投递与公开面试。
func (h *PositionHandler) ClosePosition(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	if err := h.registry.ClosePosition(c.Request.Context(), id, caller); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPosition 返回职位详情。
func (h *PositionHandler) GetPosition(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	pos, err := h.registry.GetPosition(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPositionResponse(pos, caller))
}

// ListPositions 列出开放中的职位；企业可用 ?mine=true 查看自己的全部职位。
func (h *PositionHandler) ListPositions(c *gin.Context) {
	caller, _ := callerFromContext(c)
	filter := position.ListFilter{}
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine && caller.Role == database.RoleCompany {
		filter.CompanyID = caller.UserID
		filter.IncludeClosed = true
	} else if raw := c.Query("company_id"); raw != "" {
		companyID, err := parseID(raw)
		if err != nil {
			BadRequest(c, "invalid company_id")
			return
		}
		filter.CompanyID = companyID
	}

	list, err := h.registry.ListPositions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]positionResponse, 0, len(list))
	for i := range list {
		items = append(items, newPositionResponse(&list[i], caller))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Counts 返回职位看板统计。
func (h *PositionHandler) Counts(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	counts, err := h.registry.CountsByPosition(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

type applicationResponse struct {
	ID            uint      `json:"id"`
	CandidateID   uint      `json:"candidate_id"`
	CandidateName string    `json:"candidate_name,omitempty"`
	PositionID    uint      `json:"position_id"`
	PositionTitle string    `json:"position_title,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func newApplicationResponse(a *database.Application) applicationResponse {
	name := a.Candidate.DisplayName
	if name == "" {
		name = a.Candidate.Username
	}
	return applicationResponse{
		ID:            a.ID,
		CandidateID:   a.CandidateID,
		CandidateName: name,
		PositionID:    a.PositionID,
		PositionTitle: a.Position.Title,
		Status:        a.Status,
		CreatedAt:     a.CreatedAt,
	}
}

// ListApplications 列出职位下的投递。
func (h *PositionHandler) ListApplications(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	apps, err := h.registry.ListApplications(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]applicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, newApplicationResponse(&apps[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListInterviews 列出职位下的面试，供企业看板使用。
func (h *PositionHandler) ListInterviews(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	if _, err := h.registry.OwnedPosition(c.Request.Context(), id, caller); err != nil {
		respondError(c, err)
		return
	}
	list, err := h.interviews.ListByPosition(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]interviewResponse, 0, len(list))
	for i := range list {
		items = append(items, newInterviewResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ExportResults 导出职位面试结果为 Excel。
func (h *PositionHandler) ExportResults(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	ctx := c.Request.Context()

	pos, err := h.registry.OwnedPosition(ctx, id, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	list, err := h.interviews.ListByPosition(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	names, err := h.candidateNames(c, list)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := export.PositionResults(pos, list, names)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.LoggerFromContext(c).Info("position results exported",
		slog.Uint64("position_id", uint64(id)),
		slog.Int("interviews", len(list)),
	)
	fileName := fmt.Sprintf("position-%d-results.xlsx", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// candidateNames 把登录候选人的面试映射到其显示名。
func (h *PositionHandler) candidateNames(c *gin.Context, list []database.Interview) (map[uint]string, error) {
	ids := make([]uint, 0, len(list))
	for _, iv := range list {
		if iv.CandidateID != nil {
			ids = append(ids, *iv.CandidateID)
		}
	}
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var users []database.User
	if err := h.db.WithContext(c.Request.Context()).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	byID := make(map[uint]string, len(users))
	for _, u := range users {
		name := u.DisplayName
		if name == "" {
			name = u.Username
		}
		byID[u.ID] = name
	}
	for _, iv := range list {
		if iv.CandidateID != nil {
			names[iv.ID] = byID[*iv.CandidateID]
		}
	}
	return names, nil
}

// MintLink 为职位新增一条公开面试链接。
func (h *PositionHandler) MintLink(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	link, err := h.registry.MintLink(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.newLinkResponse(link))
}

// ListLinks 列出职位的全部公开链接。
func (h *PositionHandler) ListLinks(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	links, err := h.registry.ListLinks(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]linkResponse, 0, len(links))
	for i := range links {
		items = append(items, h.newLinkResponse(&links[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DeactivateLink 停用公开链接。
func (h *PositionHandler) DeactivateLink(c *gin.Context) {
	caller, _ := callerFromContext(c)
	if err := h.registry.DeactivateLink(c.Request.Context(), c.Param("token"), caller); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
