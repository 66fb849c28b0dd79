package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carematch/internal/common/logger"
)

type stubTransport struct {
	lastBody map[string]interface{}
	response string
	status   int
}

func (t *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &t.lastBody)
		}
	}
	status := t.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}, "X-Elastic-Product": []string{"Elasticsearch"}},
		Body:       io.NopCloser(strings.NewReader(t.response)),
	}, nil
}

func newElasticStore(t *testing.T, transport *stubTransport) *ElasticCandidateStore {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{Transport: transport})
	require.NoError(t, err)
	return NewElasticCandidateStore(client, "care-candidates", logger.NewTestLogger(t))
}

func TestElasticListCandidatesByRegion(t *testing.T) {
	transport := &stubTransport{
		response: `{
			"hits": {"hits": [
				{"_source": {"kind": "COORDINATOR", "id": "c-1", "name": "Coordinator One", "regions": ["north"], "maxLoad": 8}},
				{"_source": {"kind": "FACILITY", "id": "f-1", "name": "Facility One", "regions": ["north"], "maxLoad": 50, "evaluationGrade": "A"}}
			]}
		}`,
	}
	store := newElasticStore(t, transport)

	got, err := store.ListCandidatesByRegion(context.Background(), "north")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c-1", got[0].ID)
	assert.Equal(t, "A", got[1].EvaluationGrade)

	query := transport.lastBody["query"].(map[string]interface{})
	term := query["term"].(map[string]interface{})
	assert.Equal(t, "north", term["regions"])
}

func TestElasticListAllCandidates(t *testing.T) {
	transport := &stubTransport{response: `{"hits": {"hits": []}}`}
	store := newElasticStore(t, transport)

	got, err := store.ListAllCandidates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	query := transport.lastBody["query"].(map[string]interface{})
	assert.Contains(t, query, "match_all")
}

func TestElasticSearchError(t *testing.T) {
	transport := &stubTransport{status: http.StatusInternalServerError, response: `{"error": "boom"}`}
	store := newElasticStore(t, transport)

	_, err := store.ListAllCandidates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "care-candidates")
}
