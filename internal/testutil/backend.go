// Package testutil provides an in-process stand-in for the secure data
// access backend, used by the client, screen and handler tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const signingKey = "test-signing-key"

// Request is a call the fake backend received.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
	ID     string
}

// Backend mimics POST /token, GET /patients and GET /download/patients.
// Zero-valued knobs mean "behave like the real service".
type Backend struct {
	Server *httptest.Server

	mu             sync.Mutex
	rows           []json.RawMessage
	requests       []Request
	tokenStatus    int
	omitToken      bool
	patientsStatus int
	patientsBody   string
	omitTotal      bool
	downloadStatus int
	csv            string
	gates          map[int]chan struct{}
}

func NewBackend() *Backend {
	gin.SetMode(gin.TestMode)
	b := &Backend{
		rows:  SampleRows(25),
		csv:   "patient_id,location,age,disease,purchase_amount\nP1,NY,45,flu,120.5\n",
		gates: make(map[int]chan struct{}),
	}

	r := gin.New()
	r.Use(b.record)
	r.POST("/token", b.token)
	r.GET("/patients", b.patients)
	r.GET("/download/patients", b.download)

	b.Server = httptest.NewServer(r)
	return b
}

func (b *Backend) Close() {
	b.mu.Lock()
	for _, g := range b.gates {
		select {
		case <-g:
		default:
			close(g)
		}
	}
	b.mu.Unlock()
	b.Server.Close()
}

func (b *Backend) URL() string {
	return b.Server.URL
}

// SetRows replaces the dataset with raw JSON rows (objects or tuples).
func (b *Backend) SetRows(rows ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = make([]json.RawMessage, len(rows))
	for i, r := range rows {
		b.rows[i] = json.RawMessage(r)
	}
}

func (b *Backend) FailToken(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenStatus = status
}

func (b *Backend) OmitToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.omitToken = true
}

func (b *Backend) FailPatients(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.patientsStatus = status
}

// PatientsBody forces the raw body of the listing endpoint.
func (b *Backend) PatientsBody(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.patientsBody = body
}

func (b *Backend) OmitTotal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.omitTotal = true
}

func (b *Backend) FailDownload(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.downloadStatus = status
}

func (b *Backend) CSV() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.csv
}

// Hold makes listing requests for offset block until Release is called.
func (b *Backend) Hold(offset int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gates[offset] = make(chan struct{})
}

func (b *Backend) Release(offset int) {
	b.mu.Lock()
	g := b.gates[offset]
	delete(b.gates, offset)
	b.mu.Unlock()
	if g != nil {
		close(g)
	}
}

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// RequestsTo filters recorded requests by path.
func (b *Backend) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// record captures every request before routing.
func (b *Backend) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(strings.NewReader(string(body)))

	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.RawQuery,
		Auth:   c.GetHeader("Authorization"),
		Body:   string(body),
		ID:     c.GetHeader("X-Request-ID"),
	})
	b.mu.Unlock()
	c.Next()
}

func (b *Backend) token(c *gin.Context) {
	b.mu.Lock()
	status, omit := b.tokenStatus, b.omitToken
	b.mu.Unlock()

	if status != 0 {
		c.JSON(status, gin.H{"detail": "token generation failed"})
		return
	}

	var req struct {
		Role string `json:"role" binding:"required,oneof=clinician researcher developer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if omit {
		c.JSON(http.StatusOK, gin.H{"token_type": "Bearer"})
		return
	}

	token, err := IssueToken(req.Role, time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "Bearer"})
}

func (b *Backend) authorized(c *gin.Context) bool {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Not authenticated"})
		return false
	}
	_, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return []byte(signingKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return false
	}
	return true
}

func (b *Backend) patients(c *gin.Context) {
	if !b.authorized(c) {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	b.mu.Lock()
	gate := b.gates[offset]
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-c.Request.Context().Done():
			return
		}
	}

	b.mu.Lock()
	status, forced, omitTotal := b.patientsStatus, b.patientsBody, b.omitTotal
	rows := b.rows
	b.mu.Unlock()

	if status != 0 {
		c.JSON(status, gin.H{"detail": "Forbidden"})
		return
	}
	if forced != "" {
		c.Data(http.StatusOK, "application/json", []byte(forced))
		return
	}

	end := offset + limit
	if offset > len(rows) {
		offset = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}
	pagination := gin.H{"limit": limit, "offset": offset, "has_next": end < len(rows)}
	if !omitTotal {
		pagination["total"] = len(rows)
	}
	c.JSON(http.StatusOK, gin.H{
		"role":       "clinician",
		"data":       rows[offset:end],
		"pagination": pagination,
	})
}

func (b *Backend) download(c *gin.Context) {
	if !b.authorized(c) {
		return
	}
	b.mu.Lock()
	status, csv := b.downloadStatus, b.csv
	b.mu.Unlock()

	if status != 0 {
		c.JSON(status, gin.H{"detail": "Forbidden"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=patients.csv")
	c.Data(http.StatusOK, "text/csv", []byte(csv))
}

// IssueToken signs a token the way the backend does: the role plus an
// expiry.
func IssueToken(role string, ttl time.Duration) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
	}).SignedString([]byte(signingKey))
}

// SampleRows builds n keyed patient rows with a stable key order.
func SampleRows(n int) []json.RawMessage {
	diseases := []string{"flu", "cold", "asthma"}
	rows := make([]json.RawMessage, n)
	for i := 0; i < n; i++ {
		rows[i] = json.RawMessage(fmt.Sprintf(
			`{"patient_id":"P%d","location":"NY","age":%d,"disease":%q,"purchase_amount":%d.5}`,
			i+1, 20+i, diseases[i%len(diseases)], 100+i,
		))
	}
	return rows
}
