package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"carematch/internal/common/logger"
	"carematch/internal/models"
)

// ElasticCandidateStore serves candidate pool snapshots from an
// Elasticsearch index. Used in place of the SQL union when the deployment
// indexes candidates for search.
type ElasticCandidateStore struct {
	client *elasticsearch.Client
	index  string
	size   int
	logger logger.Logger
}

func NewElasticCandidateStore(client *elasticsearch.Client, index string, log logger.Logger) *ElasticCandidateStore {
	return &ElasticCandidateStore{
		client: client,
		index:  index,
		size:   5000,
		logger: log.WithFields(map[string]interface{}{"component": "elastic-candidate-store"}),
	}
}

func (s *ElasticCandidateStore) ListAllCandidates(ctx context.Context) ([]models.MatchCandidate, error) {
	return s.search(ctx, map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
	})
}

func (s *ElasticCandidateStore) ListCandidatesByRegion(ctx context.Context, region string) ([]models.MatchCandidate, error) {
	return s.search(ctx, map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"regions": region},
		},
	})
}

func (s *ElasticCandidateStore) search(ctx context.Context, query map[string]interface{}) ([]models.MatchCandidate, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode candidate query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &s.size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", s.index, res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.MatchCandidate `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]models.MatchCandidate, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}
