package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"github.com/yuqie6/habitpath/internal/ai"
)

// MemoryService 教练长期记忆：按天索引习惯总结，检索后注入教练上下文
type MemoryService struct {
	db          *chromem.DB
	collection  *chromem.Collection
	embedder    *ai.EmbeddingClient
	storagePath string
}

// MemoryConfig 配置
type MemoryConfig struct {
	StoragePath string // 向量数据库存储路径
}

// NewMemoryService 创建记忆服务
func NewMemoryService(embedder *ai.EmbeddingClient, cfg *MemoryConfig) (*MemoryService, error) {
	if cfg == nil {
		cfg = &MemoryConfig{}
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = "./data/memories"
	}

	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		return nil, fmt.Errorf("创建记忆存储目录失败: %w", err)
	}

	db, err := chromem.NewPersistentDB(cfg.StoragePath, false)
	if err != nil {
		return nil, fmt.Errorf("创建向量数据库失败: %w", err)
	}

	collection, err := db.GetOrCreateCollection("habit_memories", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 collection 失败: %w", err)
	}

	return &MemoryService{
		db:          db,
		collection:  collection,
		embedder:    embedder,
		storagePath: cfg.StoragePath,
	}, nil
}

// IndexDaySummary 索引某天的习惯总结
func (s *MemoryService) IndexDaySummary(ctx context.Context, userID, date, content string) error {
	if !s.embedder.IsConfigured() {
		slog.Debug("嵌入服务未配置，跳过索引")
		return nil
	}

	embeddings, err := s.embedder.Embed(ctx, []string{content})
	if err != nil {
		return fmt.Errorf("生成嵌入失败: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("嵌入结果为空")
	}

	doc := chromem.Document{
		ID:        fmt.Sprintf("day_%s_%s", userID, date),
		Content:   content,
		Embedding: embeddings[0],
		Metadata: map[string]string{
			"type": "day_summary",
			"user": userID,
			"date": date,
		},
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("添加文档失败: %w", err)
	}

	slog.Debug("索引日总结", "user", userID, "date", date)
	return nil
}

// Query 检索与查询语义最接近的记忆
func (s *MemoryService) Query(ctx context.Context, query string, topK int) ([]MemoryResult, error) {
	if !s.embedder.IsConfigured() {
		return nil, nil
	}
	if topK <= 0 {
		topK = 3
	}
	if count := s.collection.Count(); count < topK {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	embeddings, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("生成查询嵌入失败: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("查询嵌入结果为空")
	}

	results, err := s.collection.QueryEmbedding(ctx, embeddings[0], topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("检索记忆失败: %w", err)
	}

	out := make([]MemoryResult, 0, len(results))
	for _, r := range results {
		out = append(out, MemoryResult{
			Content:  r.Content,
			Score:    r.Similarity,
			Metadata: r.Metadata,
		})
	}
	return out, nil
}
