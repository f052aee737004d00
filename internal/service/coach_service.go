package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yuqie6/habitpath/internal/ai"
)

// CoachIntent 教练消息意图
type CoachIntent string

const (
	IntentHabit    CoachIntent = "habit"     // 习惯/打卡相关，正常回答
	IntentOffTopic CoachIntent = "off_topic" // 与习惯无关，引导回正题
	IntentUnsafe   CoachIntent = "unsafe"    // 敏感内容，固定安抚回复，不走 LLM
)

const (
	// 连续跑题超过该次数后升级为终止话术
	coachMaxRedirects = 3
	// 会话空闲超过该时长后回收，计数随之清零
	coachSessionTTL = 30 * time.Minute
)

var unsafeKeywords = []string{
	"自杀", "自残", "轻生", "suicide", "self-harm", "kill myself",
}

var habitKeywords = []string{
	"习惯", "打卡", "连续", "坚持", "目标", "计划", "经验", "等级", "升级",
	"habit", "streak", "goal", "routine", "exercise", "锻炼", "早起", "阅读",
	"冥想", "拖延", "自律", "复盘",
}

var greetingKeywords = []string{
	"你好", "您好", "hi", "hello", "hey", "嗨",
}

// ClassifyIntent 对用户消息做范围/安全分类。纯函数，便于单测。
func ClassifyIntent(message string) CoachIntent {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return IntentOffTopic
	}

	for _, kw := range unsafeKeywords {
		if strings.Contains(msg, kw) {
			return IntentUnsafe
		}
	}
	for _, kw := range habitKeywords {
		if strings.Contains(msg, kw) {
			return IntentHabit
		}
	}
	for _, kw := range greetingKeywords {
		if strings.Contains(msg, kw) {
			return IntentHabit
		}
	}
	return IntentOffTopic
}

type coachSession struct {
	redirectCount int
	lastSeen      time.Time
}

// CoachService 习惯教练：范围守护 + 上下文组装 + LLM 调用
type CoachService struct {
	llm          CoachLLM
	memories     MemoryQuerier // 可选
	awardLogRepo AwardLogRepository

	mu       sync.Mutex
	sessions map[string]*coachSession
}

// NewCoachService 创建服务
func NewCoachService(llm CoachLLM, memories MemoryQuerier, awardLogRepo AwardLogRepository) *CoachService {
	return &CoachService{
		llm:          llm,
		memories:     memories,
		awardLogRepo: awardLogRepo,
		sessions:     make(map[string]*coachSession),
	}
}

const coachSystemPrompt = `你是一名习惯养成教练。只围绕用户的习惯、打卡记录和目标给出具体、可执行的建议。
回答保持简短（不超过 200 字），语气鼓励但不空洞。不要讨论与习惯养成无关的话题。`

// Chat 处理一条教练消息。跑题时递增会话内的引导计数，超过上限后终止引导。
func (s *CoachService) Chat(ctx context.Context, sessionID, userID, message string) (string, error) {
	switch ClassifyIntent(message) {
	case IntentUnsafe:
		return "听起来你现在很难受。我只是一个习惯教练，帮不上这方面的忙，请一定联系信任的人或专业的心理援助热线。", nil
	case IntentOffTopic:
		count := s.bumpRedirect(sessionID)
		if count > coachMaxRedirects {
			return "这个话题我帮不上忙。等你想聊习惯养成的时候再来找我吧。", nil
		}
		return "我是你的习惯教练，更擅长聊打卡、连续天数和目标拆解。要不要说说你最近的习惯进展？", nil
	}

	s.resetRedirect(sessionID)

	if s.llm == nil || !s.llm.IsConfigured() {
		return "", fmt.Errorf("教练 LLM 未配置")
	}

	prompt := s.buildPrompt(ctx, userID, message)
	messages := []ai.Message{
		{Role: "system", Content: coachSystemPrompt},
		{Role: "user", Content: prompt},
	}

	reply, err := s.llm.Reply(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("教练回复失败: %w", err)
	}
	return reply, nil
}

// buildPrompt 组装上下文：最近入账 + 相关记忆 + 用户问题
func (s *CoachService) buildPrompt(ctx context.Context, userID, message string) string {
	var sb strings.Builder

	if s.awardLogRepo != nil {
		entries, err := s.awardLogRepo.GetRecent(ctx, userID, 10)
		if err != nil {
			slog.Warn("查询最近入账失败，跳过上下文", "user", userID, "error", err)
		} else if len(entries) > 0 {
			sb.WriteString("最近的经验入账：\n")
			for _, e := range entries {
				day := time.UnixMilli(e.Timestamp).Format("01-02")
				sb.WriteString(fmt.Sprintf("- %s %s +%d（连续 %d 天）\n", day, e.Code, e.Points, e.StreakDays))
			}
			sb.WriteString("\n")
		}
	}

	if s.memories != nil {
		results, err := s.memories.Query(ctx, message, 3)
		if err != nil {
			slog.Debug("记忆检索失败，跳过", "error", err)
		} else if len(results) > 0 {
			sb.WriteString("相关的历史记录：\n")
			for _, r := range results {
				sb.WriteString("- " + r.Content + "\n")
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("用户的问题：" + message)
	return sb.String()
}

func (s *CoachService) bumpRedirect(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.pruneLocked(now)

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &coachSession{}
		s.sessions[sessionID] = sess
	}
	sess.redirectCount++
	sess.lastSeen = now
	return sess.redirectCount
}

func (s *CoachService) resetRedirect(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.pruneLocked(now)

	if sess, ok := s.sessions[sessionID]; ok {
		sess.redirectCount = 0
		sess.lastSeen = now
	}
}

// pruneLocked 回收空闲超时的会话，调用方需持有 s.mu
func (s *CoachService) pruneLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > coachSessionTTL {
			delete(s.sessions, id)
		}
	}
}
