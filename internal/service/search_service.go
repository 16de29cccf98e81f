// Package service 提供了搜索相关的业务逻辑。
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"spark-chat-go/internal/model"
	"spark-chat-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// SearchService 接口定义了会话内容的全文检索。
// 查询总是带 owner_id 过滤，调用者永远搜不到别人的消息。
type SearchService interface {
	SearchTurns(ctx context.Context, ownerID, query string, topK int) ([]model.SearchResponseDTO, error)
}

type searchService struct {
	esClient  *elasticsearch.Client
	indexName string
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(esClient *elasticsearch.Client, indexName string) SearchService {
	return &searchService{
		esClient:  esClient,
		indexName: indexName,
	}
}

// SearchTurns 在调用者自己的消息历史上执行全文检索。
func (s *searchService) SearchTurns(ctx context.Context, ownerID, query string, topK int) ([]model.SearchResponseDTO, error) {
	log.Infof("[SearchService] 开始检索, query: '%s', topK: %d", query, topK)

	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"match": map[string]interface{}{
						"text_content": query,
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"owner_id": ownerID},
				},
			},
		},
		"size": topK,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(s.indexName),
		s.esClient.Search.WithBody(&buf),
		s.esClient.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		log.Errorf("[SearchService] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[SearchService] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsTurnDocument `json:"_source"`
				Score  float64              `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]model.SearchResponseDTO, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, model.SearchResponseDTO{
			ChatID:      hit.Source.ChatID,
			Role:        hit.Source.Role,
			TextContent: hit.Source.TextContent,
			Score:       hit.Score,
		})
	}
	log.Infof("[SearchService] 检索命中 %d 条", len(results))
	return results, nil
}
