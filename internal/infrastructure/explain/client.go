// Package explain generates reviewer-facing narratives for flagged tenders
// by calling an external text-generation service. It is strictly optional:
// scoring never depends on it, and any failure here degrades to an error
// message instead of failing the pipeline.
package explain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openprocure/tenderisk/internal/config"
	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
	"github.com/openprocure/tenderisk/pkg/logger"
)

// Client streams narrative explanations from the generation endpoint.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	log      logger.Logger
}

// NewClient creates an explanation client. Returns nil when no endpoint is
// configured; callers treat a nil client as the feature being disabled.
func NewClient(cfg *config.ExplainConfig, log logger.Logger) *Client {
	if !cfg.Enabled() {
		return nil
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		http:     &http.Client{Timeout: cfg.Timeout()},
		log:      log.WithComponent("explain"),
	}
}

// request and response shapes of the generation API.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateChunk struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Stream requests an explanation for one flagged record and writes text
// chunks to w as they arrive. The writer is flushed per chunk when it
// supports flushing, so HTTP callers see incremental output.
func (c *Client) Stream(ctx context.Context, rec *models.TenderRecord, prof *models.RiskProfile, w io.Writer) error {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(rec, prof)}}}},
	})
	if err != nil {
		return errors.Wrap(err, constants.ErrCodeInternal, "marshal explanation request")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, constants.ErrCodeInternal, "build explanation request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, constants.ErrCodeUnavailable, "explanation service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn(ctx, "explanation service rejected request",
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(snippet)))
		return errors.Newf(constants.ErrCodeUnavailable,
			"explanation service returned status %d", resp.StatusCode)
	}

	flusher, _ := w.(http.Flusher)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.log.Debug(ctx, "skipping malformed stream chunk", logger.String("error", err.Error()))
			continue
		}
		for _, cand := range chunk.Candidates {
			for _, p := range cand.Content.Parts {
				if p.Text == "" {
					continue
				}
				if _, err := io.WriteString(w, p.Text); err != nil {
					return errors.Wrap(err, constants.ErrCodeInternal, "write explanation chunk")
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, constants.ErrCodeUnavailable, "read explanation stream")
	}
	return nil
}

// buildPrompt renders the audit prompt for one record.
func buildPrompt(rec *models.TenderRecord, prof *models.RiskProfile) string {
	var sb strings.Builder
	sb.WriteString("You are an expert fraud auditor for government procurement. ")
	sb.WriteString("Analyze the following flagged tender and explain why it is suspicious.\n\n")
	sb.WriteString("TENDER DETAILS:\n")
	fmt.Fprintf(&sb, "- ID: %s\n", rec.ContractID)
	fmt.Fprintf(&sb, "- Department: %s\n", rec.DeptName)
	fmt.Fprintf(&sb, "- Amount: %.2f\n", rec.ContractAmount)
	if rec.HasBidderCount {
		fmt.Fprintf(&sb, "- Bidders: %d\n", rec.BidderCount)
	} else {
		sb.WriteString("- Bidders: not recorded\n")
	}
	fmt.Fprintf(&sb, "- Procurement method: %s\n\n", rec.ProcMethod)
	sb.WriteString("RISK ASSESSMENT:\n")
	fmt.Fprintf(&sb, "- Risk Score: %d/100 (%s)\n", prof.RiskScore, prof.RiskLevel)
	fmt.Fprintf(&sb, "- Detection source: %s\n", prof.DetectionSource)
	fmt.Fprintf(&sb, "- Triggered risk factors: %s\n\n", strings.Join(prof.TriggeredFlags, ", "))
	sb.WriteString("Provide a concise, professional analysis (max 3-4 paragraphs). ")
	sb.WriteString("Start with a direct summary of why this is high risk, explain the implications ")
	sb.WriteString("of the triggered factors, and recommend specific audit steps. ")
	sb.WriteString("Format the output with Markdown and bold the key points.")
	return sb.String()
}
