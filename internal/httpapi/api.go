package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/yuqie6/habitpath/internal/eventbus"
	"github.com/yuqie6/habitpath/internal/pkg/config"
	"github.com/yuqie6/habitpath/internal/schema"
	"github.com/yuqie6/habitpath/internal/service"
)

// 单机模式下未显式传 user 时使用的用户标识
const defaultUserID = "local"

// ========== DTOs（与前端契约保持稳定） ==========

type HabitDTO struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Level       int      `json:"level"`
	DomainCodes []string `json:"domain_codes"`
	Schedule    string   `json:"schedule"`
	Active      bool     `json:"active"`
	CreatedAt   int64    `json:"created_at"`
}

type CreateHabitRequestDTO struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DomainCodes []string `json:"domain_codes"`
	Schedule    string   `json:"schedule"`
	User        string   `json:"user"`
}

type HabitStreakDTO struct {
	HabitID    int64 `json:"habit_id"`
	StreakDays int   `json:"streak_days"`
}

type SetHabitActiveRequestDTO struct {
	ID     int64 `json:"id"`
	Active bool  `json:"active"`
}

type RecordActivityRequestDTO struct {
	HabitID   int64   `json:"habit_id"`
	Kind      string  `json:"kind"`
	Amount    float64 `json:"amount"`
	Note      string  `json:"note"`
	Timestamp int64   `json:"timestamp"`
	User      string  `json:"user"`
}

type RecordActivityResponseDTO struct {
	Activity ActivityDTO          `json:"activity"`
	Award    *service.AwardResult `json:"award,omitempty"`
}

type ActivityDTO struct {
	ID        int64   `json:"id"`
	HabitID   int64   `json:"habit_id"`
	Kind      string  `json:"kind"`
	Amount    float64 `json:"amount"`
	Completed bool    `json:"completed"`
	Timestamp int64   `json:"timestamp"`
	Note      string  `json:"note"`
}

type ExpertiseDTO struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Points    int64  `json:"points"`
	Level     int    `json:"level"`
	NextLevel int64  `json:"next_level_points"` // 下一等级所需累计经验
}

type AwardLogDTO struct {
	ID         int64  `json:"id"`
	HabitID    int64  `json:"habit_id"`
	ActivityID int64  `json:"activity_id"`
	Code       string `json:"code"`
	Points     int64  `json:"points"`
	HabitLevel int    `json:"habit_level"`
	StreakDays int    `json:"streak_days"`
	Timestamp  int64  `json:"timestamp"`
}

type CoachChatRequestDTO struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	User      string `json:"user"`
}

type CoachChatResponseDTO struct {
	Reply string `json:"reply"`
}

type SettingsDTO struct {
	ConfigPath string `json:"config_path"`

	CoachAPIKeySet bool   `json:"coach_api_key_set"`
	CoachBaseURL   string `json:"coach_base_url"`
	CoachModel     string `json:"coach_model"`

	EmbeddingsAPIKeySet bool   `json:"embeddings_api_key_set"`
	EmbeddingsBaseURL   string `json:"embeddings_base_url"`
	EmbeddingsModel     string `json:"embeddings_model"`

	DBPath     string `json:"db_path"`
	MemoryPath string `json:"memory_path"`
}

type SaveSettingsRequestDTO struct {
	CoachAPIKey  *string `json:"coach_api_key"`
	CoachBaseURL *string `json:"coach_base_url"`
	CoachModel   *string `json:"coach_model"`

	EmbeddingsAPIKey  *string `json:"embeddings_api_key"`
	EmbeddingsBaseURL *string `json:"embeddings_base_url"`
	EmbeddingsModel   *string `json:"embeddings_model"`

	DBPath     *string `json:"db_path"`
	MemoryPath *string `json:"memory_path"`
}

type SaveSettingsResponseDTO struct {
	RestartRequired bool `json:"restart_required"`
}

// ========== routes ==========

func (a *apiServer) registerJSONRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/habits", a.wrapAny(a.habits))
	mux.HandleFunc("/api/habits/detail", a.wrapGET(a.getHabitDetail))
	mux.HandleFunc("/api/habits/streak", a.wrapGET(a.getHabitStreak))
	mux.HandleFunc("/api/habits/active", a.wrapPOST(a.setHabitActive))

	mux.HandleFunc("/api/activities", a.wrapPOST(a.recordActivity))
	mux.HandleFunc("/api/activities/by-date", a.wrapGET(a.getActivitiesByDate))

	mux.HandleFunc("/api/expertise", a.wrapGET(a.getExpertise))
	mux.HandleFunc("/api/awards/recent", a.wrapGET(a.getRecentAwards))
	mux.HandleFunc("/api/trends", a.wrapGET(a.getTrends))

	mux.HandleFunc("/api/coach/chat", a.wrapPOST(a.coachChat))

	mux.HandleFunc("/api/settings", a.wrapAny(a.settings))
}

func (a *apiServer) wrapGET(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

func (a *apiServer) wrapPOST(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

func (a *apiServer) wrapAny(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { fn(w, r) }
}

func userParam(r *http.Request) string {
	if u := strings.TrimSpace(r.URL.Query().Get("user")); u != "" {
		return u
	}
	return defaultUserID
}

// ========== handlers ==========

func (a *apiServer) habits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listHabits(w, r)
	case http.MethodPost:
		a.createHabit(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *apiServer) listHabits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	habits, err := a.core.Services.Habits.ListHabits(ctx, userParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := make([]HabitDTO, 0, len(habits))
	for _, h := range habits {
		result = append(result, habitToDTO(&h))
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) createHabit(w http.ResponseWriter, r *http.Request) {
	var req CreateHabitRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误: "+err.Error())
		return
	}
	if req.User == "" {
		req.User = defaultUserID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	habit := &schema.Habit{
		UserID:      req.User,
		Name:        req.Name,
		Description: req.Description,
		DomainCodes: schema.JSONArray(req.DomainCodes),
		Schedule:    req.Schedule,
	}
	if err := a.core.Services.Habits.CreateHabit(ctx, habit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, habitToDTO(habit))
}

func (a *apiServer) getHabitDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id 无效")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	habit, err := a.core.Services.Habits.GetHabit(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if habit == nil {
		writeError(w, http.StatusNotFound, "习惯不存在")
		return
	}
	writeJSON(w, http.StatusOK, habitToDTO(habit))
}

func (a *apiServer) getHabitStreak(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id 无效")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	streak := a.core.Services.Streaks.CurrentStreak(ctx, id)
	writeJSON(w, http.StatusOK, HabitStreakDTO{HabitID: id, StreakDays: streak})
}

func (a *apiServer) setHabitActive(w http.ResponseWriter, r *http.Request) {
	var req SetHabitActiveRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.core.Services.Habits.SetHabitActive(ctx, req.ID, req.Active); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) recordActivity(w http.ResponseWriter, r *http.Request) {
	var req RecordActivityRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误: "+err.Error())
		return
	}
	if req.User == "" {
		req.User = defaultUserID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	activity, award, err := a.core.Services.Activities.RecordActivity(ctx, service.RecordActivityInput{
		UserID:    req.User,
		HabitID:   req.HabitID,
		Kind:      req.Kind,
		Amount:    req.Amount,
		Note:      req.Note,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, RecordActivityResponseDTO{
		Activity: ActivityDTO{
			ID:        activity.ID,
			HabitID:   activity.HabitID,
			Kind:      activity.Kind,
			Amount:    activity.Amount,
			Completed: activity.Completed,
			Timestamp: activity.Timestamp,
			Note:      activity.Note,
		},
		Award: award,
	})
}

func (a *apiServer) getActivitiesByDate(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	activities, err := a.core.Services.Activities.GetActivitiesByDate(ctx, userParam(r), date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := make([]ActivityDTO, 0, len(activities))
	for _, act := range activities {
		result = append(result, ActivityDTO{
			ID:        act.ID,
			HabitID:   act.HabitID,
			Kind:      act.Kind,
			Amount:    act.Amount,
			Completed: act.Completed,
			Timestamp: act.Timestamp,
			Note:      act.Note,
		})
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) getExpertise(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	records, err := a.core.Repos.Expertise.GetByUser(ctx, userParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := make([]ExpertiseDTO, 0, len(records))
	for _, rec := range records {
		result = append(result, ExpertiseDTO{
			Code:      rec.Code,
			Name:      rec.Name,
			Points:    rec.Points,
			Level:     rec.Level,
			NextLevel: service.ThresholdForLevel(rec.Level + 1),
		})
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) getRecentAwards(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
		if n, err := parseInt64Param(s); err == nil && n > 0 && n <= 200 {
			limit = int(n)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entries, err := a.core.Repos.AwardLog.GetRecent(ctx, userParam(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := make([]AwardLogDTO, 0, len(entries))
	for _, e := range entries {
		result = append(result, AwardLogDTO{
			ID:         e.ID,
			HabitID:    e.HabitID,
			ActivityID: e.ActivityID,
			Code:       e.Code,
			Points:     e.Points,
			HabitLevel: e.HabitLevel,
			StreakDays: e.StreakDays,
			Timestamp:  e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) getTrends(w http.ResponseWriter, r *http.Request) {
	period := service.TrendPeriod(strings.TrimSpace(r.URL.Query().Get("period")))
	if period != service.TrendPeriod30Days {
		period = service.TrendPeriod7Days
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	report, err := a.core.Services.Trends.GetTrendReport(ctx, userParam(r), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *apiServer) coachChat(w http.ResponseWriter, r *http.Request) {
	var req CoachChatRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message 不能为空")
		return
	}
	if req.User == "" {
		req.User = defaultUserID
	}
	if req.SessionID == "" {
		req.SessionID = req.User
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	reply, err := a.core.Services.Coach.Chat(ctx, req.SessionID, req.User, req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CoachChatResponseDTO{Reply: reply})
}

func (a *apiServer) settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getSettings(w, r)
	case http.MethodPost:
		a.saveSettings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *apiServer) getSettings(w http.ResponseWriter, r *http.Request) {
	cfg := a.core.Cfg
	writeJSON(w, http.StatusOK, SettingsDTO{
		ConfigPath: a.cfgPath,

		CoachAPIKeySet: cfg.AI.Coach.APIKey != "",
		CoachBaseURL:   cfg.AI.Coach.BaseURL,
		CoachModel:     cfg.AI.Coach.Model,

		EmbeddingsAPIKeySet: cfg.AI.Embeddings.APIKey != "",
		EmbeddingsBaseURL:   cfg.AI.Embeddings.BaseURL,
		EmbeddingsModel:     cfg.AI.Embeddings.Model,

		DBPath:     cfg.Storage.DBPath,
		MemoryPath: cfg.Storage.MemoryPath,
	})
}

func (a *apiServer) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req SaveSettingsRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误: "+err.Error())
		return
	}

	cfg := a.core.Cfg
	restart := false

	applyString := func(dst *string, src *string, needsRestart bool) {
		if src == nil {
			return
		}
		v := strings.TrimSpace(*src)
		if v == *dst {
			return
		}
		*dst = v
		if needsRestart {
			restart = true
		}
	}

	applyString(&cfg.AI.Coach.APIKey, req.CoachAPIKey, false)
	applyString(&cfg.AI.Coach.BaseURL, req.CoachBaseURL, false)
	applyString(&cfg.AI.Coach.Model, req.CoachModel, false)
	applyString(&cfg.AI.Embeddings.APIKey, req.EmbeddingsAPIKey, false)
	applyString(&cfg.AI.Embeddings.BaseURL, req.EmbeddingsBaseURL, false)
	applyString(&cfg.AI.Embeddings.Model, req.EmbeddingsModel, false)
	applyString(&cfg.Storage.DBPath, req.DBPath, true)
	applyString(&cfg.Storage.MemoryPath, req.MemoryPath, true)

	if err := config.WriteFile(a.cfgPath, cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.hub.Publish(eventbus.Event{Type: eventbus.EventSettingsUpdated})
	writeJSON(w, http.StatusOK, SaveSettingsResponseDTO{RestartRequired: restart})
}

func habitToDTO(h *schema.Habit) HabitDTO {
	return HabitDTO{
		ID:          h.ID,
		Name:        h.Name,
		Description: h.Description,
		Level:       h.Level,
		DomainCodes: []string(h.DomainCodes),
		Schedule:    h.Schedule,
		Active:      h.Active,
		CreatedAt:   h.CreatedAt.UnixMilli(),
	}
}
