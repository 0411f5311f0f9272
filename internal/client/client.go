// Package client говорит с внешним бэкендом по его REST-контракту.
// Повторов и кеша нет: ошибка сразу возвращается вызывающему.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"schemapanel/internal/bulk"
	"schemapanel/internal/table"
)

// Client: HTTP-клиент бэкенда. Безопасен для конкурентного использования.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTimeout задаёт таймаут на весь запрос.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d, Transport: c.http.Transport}
		}
	}
}

// New создаёт клиента; baseURL дополняется завершающим "/".
func New(baseURL string, opts ...Option) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{
		base: baseURL,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL: адрес бэкенда с завершающим "/".
func (c *Client) BaseURL() string { return c.base }

// Response: тело ответа бэкенда как есть.
type Response map[string]any

// Status: поле status, если оно есть.
func (r Response) Status() string {
	s, _ := r["status"].(string)
	return s
}

// ID: строка id записи, если бэкенд её вернул.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*id = ID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("id: expected number or string, got %s", b)
	}
	*id = ID(s)
	return nil
}

// User: результат authenticate.
type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Type     string `json:"type"`
}

type envelope struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

type tableBody struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

type dataBody struct {
	Data [][]any `json:"data"`
}

func escape(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, url.PathEscape(p))
	}
	return strings.Join(out, "/")
}

// Read: GET read/{entity}[/{routeKey}[/{userID}]].
// userID подставляется, только если задан routeKey.
func (c *Client) Read(ctx context.Context, entity, routeKey, userID string) (table.Table, error) {
	path := "read/" + escape(entity)
	if routeKey != "" {
		path += "/" + escape(routeKey, userID)
	}
	return c.readTable(ctx, "read", path)
}

// BulkRead: GET bulk_read/{entity}/{window}.
func (c *Client) BulkRead(ctx context.Context, entity string, w TimeWindow) (table.Table, error) {
	if _, err := ParseTimeWindow(string(w)); err != nil {
		return table.Table{}, err
	}
	return c.readTable(ctx, "bulk_read", "bulk_read/"+escape(entity, string(w)))
}

func (c *Client) readTable(ctx context.Context, op, path string) (table.Table, error) {
	var body tableBody
	if err := c.do(ctx, op, http.MethodGet, path, nil, &body); err != nil {
		return table.Table{}, err
	}
	t, err := table.FromData(body.Columns, body.Data)
	if err != nil {
		return table.Table{}, &NetworkError{Op: op, URL: c.base + path, Err: fmt.Errorf("malformed table: %w", err)}
	}
	return t, nil
}

func withUser(fields map[string]string, userID string) map[string]any {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["user_id"] = userID
	return body
}

// Create: POST create/{entity}.
func (c *Client) Create(ctx context.Context, entity string, fields map[string]string, userID string) (Response, error) {
	var out Response
	err := c.do(ctx, "create", http.MethodPost, "create/"+escape(entity), withUser(fields, userID), &out)
	return out, err
}

// Update: PUT update/{entity}/{id}.
func (c *Client) Update(ctx context.Context, entity, id string, fields map[string]string, userID string) (Response, error) {
	var out Response
	err := c.do(ctx, "update", http.MethodPut, "update/"+escape(entity, id), withUser(fields, userID), &out)
	return out, err
}

// Delete: DELETE delete/{entity}/{id} с телом { user_id }.
func (c *Client) Delete(ctx context.Context, entity, id, userID string) (Response, error) {
	var out Response
	err := c.do(ctx, "delete", http.MethodDelete, "delete/"+escape(entity, id), map[string]string{"user_id": userID}, &out)
	return out, err
}

func (c *Client) BulkCreate(ctx context.Context, entity string, p bulk.CreatePayload) (Response, error) {
	var out Response
	err := c.do(ctx, "bulk_create", http.MethodPost, "bulk_create/"+escape(entity), p, &out)
	return out, err
}

func (c *Client) BulkUpdate(ctx context.Context, entity string, p bulk.UpdatePayload) (Response, error) {
	var out Response
	err := c.do(ctx, "bulk_update", http.MethodPut, "bulk_update/"+escape(entity), p, &out)
	return out, err
}

func (c *Client) BulkDelete(ctx context.Context, entity string, p bulk.DeletePayload) (Response, error) {
	var out Response
	err := c.do(ctx, "bulk_delete", http.MethodDelete, "bulk_delete/"+escape(entity), p, &out)
	return out, err
}

// Query пересылает строку серверного языка запросов без разбора.
func (c *Client) Query(ctx context.Context, entity, query string) ([][]any, error) {
	var out dataBody
	err := c.do(ctx, "query", http.MethodPost, "query/"+escape(entity), map[string]string{"query_string": query}, &out)
	return out.Data, err
}

// Search: полнотекстовый поиск на стороне бэкенда.
func (c *Client) Search(ctx context.Context, entity, search string) ([][]any, error) {
	var out dataBody
	err := c.do(ctx, "search", http.MethodPost, "search/"+escape(entity), map[string]string{"search_string": search}, &out)
	return out.Data, err
}

// Authenticate проверяет логин и пароль.
func (c *Client) Authenticate(ctx context.Context, username, password string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, "authenticate", http.MethodPost, "authenticate", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	return out.User, err
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	u := c.base + path
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &NetworkError{Op: op, URL: u, Err: err}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &NetworkError{Op: op, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", zap.String("op", op), zap.String("url", u), zap.Error(err))
		return &NetworkError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, URL: u, StatusCode: resp.StatusCode, Err: err}
	}
	c.log.Debug("backend request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	var env envelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.text()
		if msg == "" {
			msg = truncate(strings.TrimSpace(string(raw)), 200)
		}
		return &NetworkError{Op: op, URL: u, StatusCode: resp.StatusCode, Message: msg}
	}
	if env.Status != "" && env.Status != "success" {
		return &ServerStatusError{Op: op, Status: env.Status, Message: env.text()}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &NetworkError{Op: op, URL: u, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
