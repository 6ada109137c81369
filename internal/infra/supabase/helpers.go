package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for PostgREST and GoTrue
// ============================================================

// doGet executes an authenticated GET against PostgREST.
// A 404 or 204 yields (nil, nil).
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, "/rest/v1/"+path, nil, c.serviceRoleKey)
}

// doRPC calls a PostgREST stored procedure.
func (c *Client) doRPC(ctx context.Context, fn string, args map[string]any) ([]byte, error) {
	return c.send(ctx, http.MethodPost, "/rest/v1/rpc/"+fn, args, c.serviceRoleKey)
}

// doAuth posts to the GoTrue API with the anon key.
func (c *Client) doAuth(ctx context.Context, path string, body map[string]any) ([]byte, error) {
	return c.send(ctx, http.MethodPost, "/auth/v1/"+path, body, c.apiKey)
}

func (c *Client) send(ctx context.Context, method, path string, payload map[string]any, bearer string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonBody)
	}

	url := fmt.Sprintf("%s%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if method == http.MethodGet && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent) {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &statusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
