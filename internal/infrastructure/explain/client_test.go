package explain_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprocure/tenderisk/internal/config"
	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/internal/infrastructure/explain"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
	"github.com/openprocure/tenderisk/pkg/logger"
)

func testRecordProfile() (*models.TenderRecord, *models.RiskProfile) {
	rec := &models.TenderRecord{
		ContractID:     "T-1",
		DeptName:       "Health",
		ContractAmount: 995000,
		BidderCount:    1,
		HasBidderCount: true,
		ProcMethod:     "Limited",
	}
	prof := &models.RiskProfile{
		ContractID:      "T-1",
		RiskScore:       75,
		RiskLevel:       constants.RiskLevelHigh,
		DetectionSource: constants.DetectionSourceCritical,
		TriggeredFlags:  []string{"single_bidder_flag"},
	}
	return rec, prof
}

func newClient(endpoint string) *explain.Client {
	return explain.NewClient(&config.ExplainConfig{
		Endpoint:       endpoint,
		APIKey:         "test-key",
		Model:          "test-model",
		TimeoutSeconds: 5,
	}, logger.NewNop())
}

func TestClientDisabledWithoutEndpoint(t *testing.T) {
	c := explain.NewClient(&config.ExplainConfig{}, logger.NewNop())
	assert.Nil(t, c)
}

func TestStreamConcatenatesChunks(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"This tender \"}]}}]}\n\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"is high risk.\"}]}}]}\n\n" +
				"data: [DONE]\n",
		))
	}))
	defer srv.Close()

	rec, prof := testRecordProfile()
	var buf bytes.Buffer
	err := newClient(srv.URL).Stream(context.Background(), rec, prof, &buf)
	require.NoError(t, err)

	assert.Equal(t, "This tender is high risk.", buf.String())
	assert.Equal(t, "/v1beta/models/test-model:streamGenerateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
}

func TestStreamSkipsMalformedChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(
			"data: {broken\n" +
				": keepalive comment\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"ok\"}]}}]}\n",
		))
	}))
	defer srv.Close()

	rec, prof := testRecordProfile()
	var buf bytes.Buffer
	require.NoError(t, newClient(srv.URL).Stream(context.Background(), rec, prof, &buf))
	assert.Equal(t, "ok", buf.String())
}

func TestStreamServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rec, prof := testRecordProfile()
	var buf bytes.Buffer
	err := newClient(srv.URL).Stream(context.Background(), rec, prof, &buf)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeUnavailable))
	assert.Empty(t, buf.String())
}

func TestStreamUnreachableService(t *testing.T) {
	rec, prof := testRecordProfile()
	var buf bytes.Buffer
	err := newClient("http://127.0.0.1:1").Stream(context.Background(), rec, prof, &buf)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeUnavailable))
}
