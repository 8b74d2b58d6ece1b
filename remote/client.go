// remote is the HTTP boundary to the simulation service. Every endpoint speaks
// JSON. All failures, whether transport, status or decoding, wrap ErrRequest.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lifeview/models"
)

// ErrRequest is the single failure class of the remote service.
var ErrRequest = errors.New("remote request failed")

// StatusError is a non-2xx response. Message is the service's {"error": ...} text when present.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrRequest
}

// Client talks to the service rooted at baseURL, e.g. http://localhost:3000/api.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Start(ctx context.Context) (models.SimulationStatus, error) {
	return c.control(ctx, "/control/start")
}

func (c *Client) Stop(ctx context.Context) (models.SimulationStatus, error) {
	return c.control(ctx, "/control/stop")
}

func (c *Client) Pause(ctx context.Context) (models.SimulationStatus, error) {
	return c.control(ctx, "/control/pause")
}

func (c *Client) Resume(ctx context.Context) (models.SimulationStatus, error) {
	return c.control(ctx, "/control/resume")
}

func (c *Client) Step(ctx context.Context) (models.SimulationStatus, error) {
	return c.control(ctx, "/control/step")
}

func (c *Client) SetSpeed(ctx context.Context, tps int) (status models.SimulationStatus, err error) {
	body := struct {
		TPS int `json:"tps"`
	}{tps}
	err = c.do(ctx, http.MethodPost, "/control/speed", body, &status)
	return
}

func (c *Client) Status(ctx context.Context) (status models.SimulationStatus, err error) {
	err = c.do(ctx, http.MethodGet, "/control/status", nil, &status)
	return
}

// AllCells fetches the full live-cell collection.
func (c *Client) AllCells(ctx context.Context) (cells []models.Cell, err error) {
	if err = c.do(ctx, http.MethodGet, "/world/all", nil, &cells); err != nil {
		return nil, err
	}
	if cells == nil {
		cells = []models.Cell{}
	}
	return
}

func (c *Client) Presets(ctx context.Context) ([]models.PresetDescriptor, error) {
	var list models.PresetsList
	if err := c.do(ctx, http.MethodGet, "/world/presets", nil, &list); err != nil {
		return nil, err
	}
	return list.Presets, nil
}

// LoadPreset asks the service to instantiate the named preset at the passed offset.
// The acknowledgement body carries no world state and is discarded.
func (c *Client) LoadPreset(ctx context.Context, name string, offsetX, offsetY int) error {
	body := struct {
		Name    string `json:"name"`
		OffsetX int    `json:"offset_x"`
		OffsetY int    `json:"offset_y"`
	}{name, offsetX, offsetY}
	return c.do(ctx, http.MethodPost, "/world/preset", body, &json.RawMessage{})
}

func (c *Client) SetCell(ctx context.Context, x, y int, alive bool) error {
	body := struct {
		X     int  `json:"x"`
		Y     int  `json:"y"`
		Alive bool `json:"alive"`
	}{x, y, alive}
	return c.do(ctx, http.MethodPost, "/world/cell", body, &json.RawMessage{})
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/world/clear", nil, &json.RawMessage{})
}

func (c *Client) control(ctx context.Context, path string) (status models.SimulationStatus, err error) {
	err = c.do(ctx, http.MethodPost, path, nil, &status)
	return
}

// do issues one request and decodes the JSON response into out.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	in interface{},
	out interface{},
) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:  method,
			Path:    path,
			Code:    resp.StatusCode,
			Message: errorMessage(resp.Body),
		}
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: decode: %w", ErrRequest, method, path, err)
	}
	return nil
}

// errorMessage extracts the service's {"error": "..."} text, if any.
func errorMessage(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Error
}
