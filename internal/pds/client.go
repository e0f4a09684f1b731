// Phonograph - Listening History Migration for the AT Protocol
// Copyright 2026 M. Whitfield (mwhitfield)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwhitfield/phonograph

// Package pds is the XRPC client for the destination record store. It
// covers exactly the three capabilities the migration consumes: record
// listing, batched creates via applyWrites, and single-record deletes.
//
// All requests pass through a shared rate limiter and an HTTP 429
// retry loop with exponential backoff, so callers never see transient
// throttling responses.
package pds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/mwhitfield/phonograph/internal/config"
	"github.com/mwhitfield/phonograph/internal/models"
)

// MaxWritesPerCall is the destination's hard ceiling on operations in
// one applyWrites call. Protocol limit; the planner must never emit a
// batch larger than this.
const MaxWritesPerCall = 200

// ErrMissingAuthentication indicates no usable authenticated identity:
// the access token is absent, unparseable, or expired. Fatal; nothing
// can proceed without it.
var ErrMissingAuthentication = errors.New("no authenticated identity available")

// ErrTooManyWrites indicates a caller tried to exceed the applyWrites
// operation ceiling. Always a programming error in the planner.
var ErrTooManyWrites = fmt.Errorf("applyWrites limited to %d operations per call", MaxWritesPerCall)

// Client talks XRPC to a single PDS on behalf of one repository owner.
type Client struct {
	host       string
	did        string
	token      string
	httpClient *http.Client

	// limiter paces outgoing requests so that burst listing cannot
	// trip the PDS request quota independently of the write planner.
	limiter *rate.Limiter

	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient builds a client from PDS configuration. It fails with
// ErrMissingAuthentication when the access token is missing or has
// already expired; expiry is read from the token's registered claims
// without signature verification, since only the PDS can verify it.
func NewClient(cfg *config.PDSConfig) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("empty access token: %w", ErrMissingAuthentication)
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(cfg.AccessToken, &claims); err != nil {
		return nil, fmt.Errorf("malformed access token: %w", ErrMissingAuthentication)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("access token expired at %s: %w",
			claims.ExpiresAt.Format(time.RFC3339), ErrMissingAuthentication)
	}

	return &Client{
		host:  cfg.Host,
		did:   cfg.DID,
		token: cfg.AccessToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(10), 10),
		maxRetries:     5,
		retryBaseDelay: 1 * time.Second,
	}, nil
}

// DID returns the repository owner identity this client writes as.
func (c *Client) DID() string {
	return c.did
}

// ListRecordsPage is one page of a record listing.
type ListRecordsPage struct {
	Records []models.DestinationRecord `json:"records"`
	Cursor  string                     `json:"cursor"`
}

// ListRecords fetches one page of records from the collection. An
// empty returned cursor means the listing is exhausted.
func (c *Client) ListRecords(ctx context.Context, collection string, limit int, cursor string) (*ListRecordsPage, error) {
	params := url.Values{}
	params.Set("repo", c.did)
	params.Set("collection", collection)
	params.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	page := &ListRecordsPage{}
	if err := c.doRequest(ctx, http.MethodGet, "com.atproto.repo.listRecords", params, nil, page); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return page, nil
}

// CreateOp is one record-creation operation for ApplyWrites.
type CreateOp struct {
	Collection string
	RKey       string
	Value      models.PlayRecord
}

// applyWritesCreate is the wire shape of a create operation.
type applyWritesCreate struct {
	Type       string            `json:"$type"`
	Collection string            `json:"collection"`
	RKey       string            `json:"rkey,omitempty"`
	Value      models.PlayRecord `json:"value"`
}

type applyWritesRequest struct {
	Repo   string              `json:"repo"`
	Writes []applyWritesCreate `json:"writes"`
}

type applyWritesResponse struct {
	Results []struct {
		Type string `json:"$type"`
		URI  string `json:"uri"`
		CID  string `json:"cid"`
	} `json:"results"`
}

// ApplyWrites submits the operations as one atomic call and returns
// the number of operations the destination reports as applied. The
// caller must keep len(ops) within MaxWritesPerCall.
func (c *Client) ApplyWrites(ctx context.Context, ops []CreateOp) (int, error) {
	if len(ops) == 0 {
		return 0, nil
	}
	if len(ops) > MaxWritesPerCall {
		return 0, ErrTooManyWrites
	}

	req := applyWritesRequest{Repo: c.did}
	for _, op := range ops {
		req.Writes = append(req.Writes, applyWritesCreate{
			Type:       "com.atproto.repo.applyWrites#create",
			Collection: op.Collection,
			RKey:       op.RKey,
			Value:      op.Value,
		})
	}

	resp := applyWritesResponse{}
	if err := c.doRequest(ctx, http.MethodPost, "com.atproto.repo.applyWrites", nil, &req, &resp); err != nil {
		return 0, fmt.Errorf("apply writes: %w", err)
	}

	// Older PDS versions return an empty body on success; treat that
	// as full acceptance rather than a zero-accept shortfall.
	if len(resp.Results) == 0 {
		return len(ops), nil
	}
	return len(resp.Results), nil
}

type deleteRecordRequest struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	RKey       string `json:"rkey"`
}

// DeleteRecord removes a single record from the collection.
func (c *Client) DeleteRecord(ctx context.Context, collection, rkey string) error {
	req := deleteRecordRequest{
		Repo:       c.did,
		Collection: collection,
		RKey:       rkey,
	}
	if err := c.doRequest(ctx, http.MethodPost, "com.atproto.repo.deleteRecord", nil, &req, nil); err != nil {
		return fmt.Errorf("delete record %s: %w", rkey, err)
	}
	return nil
}

// doRequest executes one XRPC call with rate limiting, bearer auth,
// HTTP 429 retry with exponential backoff, and JSON decoding of the
// response into result (when non-nil).
func (c *Client) doRequest(ctx context.Context, method, nsid string, params url.Values, body, result interface{}) error {
	reqURL := fmt.Sprintf("%s/xrpc/%s", c.host, nsid)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reqBody io.Reader = http.NoBody
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request %s: %w", nsid, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()

			if attempt == c.maxRetries {
				lastErr = fmt.Errorf("%s: rate limit exceeded after %d retries", nsid, c.maxRetries)
				break
			}

			// Exponential backoff (1s, 2s, 4s, ...) unless the server
			// names its own delay.
			delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
					delay = d
				}
			}

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return c.decodeResponse(resp, nsid, result)
	}

	return lastErr
}

// decodeResponse checks the status and decodes the body into result.
func (c *Client) decodeResponse(resp *http.Response, nsid string, result interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: HTTP 401: %w", nsid, ErrMissingAuthentication)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: HTTP %d: %s", nsid, resp.StatusCode, string(body))
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		// Tolerate empty success bodies.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s: decode response: %w", nsid, err)
	}
	return nil
}
