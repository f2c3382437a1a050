// Package miner is the HTTP client for the process-mining service that
// discovers Petri nets from event logs and aggregates them.
package miner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/AaronLay10/SemanticZoom/internal/annotation"
	"github.com/AaronLay10/SemanticZoom/internal/petri"
)

// DefaultTimeout bounds a single mining request.
const DefaultTimeout = 60 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

var (
	ErrDiscovery   = errors.New("discovery failed")
	ErrAggregation = errors.New("aggregation failed")
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	// Message is the service's {"error": ...} text, if any.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("miner: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("miner: %s: status %d", e.Op, e.StatusCode)
}

// AggregationParams is the body of an aggregation request.
type AggregationParams struct {
	LogID        string  `json:"logId"`
	Level        float64 `json:"level"`
	SemanticMode string  `json:"semanticMode"`
	Threshold    float64 `json:"threshold"`
}

// Result is a discovered or aggregated net with its annotation tree.
type Result struct {
	LogID string
	Graph petri.Graph
	Tree  *annotation.Node
}

type resultBody struct {
	LogID string           `json:"logId"`
	Nodes []petri.Node     `json:"nodes"`
	Links []petri.Link     `json:"links"`
	Tree  *annotation.Node `json:"tree"`
}

// UnmarshalJSON decodes the flat {logId, nodes, links, tree} payload.
func (r *Result) UnmarshalJSON(data []byte) error {
	var body resultBody
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	r.LogID = body.LogID
	r.Graph = petri.Graph{Nodes: body.Nodes, Links: body.Links}
	r.Tree = body.Tree
	return nil
}

// MarshalJSON encodes r in the service's flat payload shape.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultBody{
		LogID: r.LogID,
		Nodes: r.Graph.Nodes,
		Links: r.Graph.Links,
		Tree:  r.Tree,
	})
}

// Client talks to one mining service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Discover uploads an event log and returns the discovered net. The returned
// result always carries the new log id.
func (c *Client) Discover(ctx context.Context, filename string, log io.Reader) (*Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	if _, err := io.Copy(part, log); err != nil {
		return nil, fmt.Errorf("%w: reading upload: %v", ErrDiscovery, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/discover", &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.do(req, "discover")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	if res.LogID == "" {
		return nil, fmt.Errorf("%w: response has no logId", ErrDiscovery)
	}
	return res, nil
}

// Aggregate requests an aggregated net for an already discovered log.
func (c *Client) Aggregate(ctx context.Context, p AggregationParams) (*Result, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/aggregate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.do(req, "aggregate")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAggregation, err)
	}
	return res, nil
}

// Ping reports whether the service answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(req *http.Request, op string) (*Result, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Op: op, StatusCode: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil {
			se.Message = e.Error
		}
		return nil, se
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &res, nil
}
