package dto

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotedeck/internal/app"
	"github.com/jsamuelsen/quotedeck/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewErrorResponse(t *testing.T) {
	got := NewErrorResponse(ErrorCodeNotFound, "resource not found")

	assert.Equal(t, &ErrorResponse{
		Error: ErrorDetail{Code: ErrorCodeNotFound, Message: "resource not found"},
	}, got)

	withDetails := NewErrorResponseWithDetails(ErrorCodeValidation, "validation failed", map[string]string{"key": "this field is required"})
	assert.Equal(t, map[string]string{"key": "this field is required"}, withDetails.Error.Details)

	assert.Same(t, got, got.WithTraceID("trace-123"))
	assert.Equal(t, "trace-123", got.TraceID)
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{code: ErrorCodeNotFound, want: http.StatusNotFound},
		{code: ErrorCodePoolExhausted, want: http.StatusConflict},
		{code: ErrorCodeValidation, want: http.StatusBadRequest},
		{code: ErrorCodeBadRequest, want: http.StatusBadRequest},
		{code: ErrorCodeUnavailable, want: http.StatusServiceUnavailable},
		{code: ErrorCodeInternal, want: http.StatusInternalServerError},
		{code: "UNKNOWN_CODE", want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromCode(tt.code))
		})
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails map[string]string
	}{
		{
			name:        "not found",
			err:         domain.NewNotFoundError("quote", "abc"),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrorCodeNotFound,
			wantMessage: "quote",
		},
		{
			name:        "exhausted pool",
			err:         domain.NewExhaustedPoolError(4, 3),
			wantStatus:  http.StatusConflict,
			wantCode:    ErrorCodePoolExhausted,
			wantMessage: "no eligible quote",
			wantDetails: map[string]string{"deck_size": "4", "recent_size": "3"},
		},
		{
			name:        "empty deck",
			err:         domain.ErrExhaustedPool,
			wantStatus:  http.StatusConflict,
			wantCode:    ErrorCodePoolExhausted,
			wantMessage: "no eligible quote",
		},
		{
			name:        "validation",
			err:         domain.NewValidationError("key", "must not be empty"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeValidation,
			wantMessage: "key",
			wantDetails: map[string]string{"key": "must not be empty"},
		},
		{
			name:        "unavailable",
			err:         domain.NewUnavailableError("chat-webhook", "connection refused"),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    ErrorCodeUnavailable,
			wantMessage: "chat-webhook",
		},
		{
			name:        "unknown errors hide their message",
			err:         errors.New("disk on fire"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrorCodeInternal,
			wantMessage: "an internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := MapDomainError(tt.err)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.wantMessage)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
		})
	}

	status, resp := MapDomainError(nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, resp)
}

func TestGetTraceID(t *testing.T) {
	tests := []struct {
		name         string
		setupContext func(*gin.Context)
		want         string
	}{
		{
			name:         "trace ID in context",
			setupContext: func(c *gin.Context) { c.Set("trace_id", "context-trace-123") },
			want:         "context-trace-123",
		},
		{
			name:         "request ID header",
			setupContext: func(c *gin.Context) { c.Request.Header.Set("X-Request-ID", "header-trace-456") },
			want:         "header-trace-456",
		},
		{
			name: "context takes precedence",
			setupContext: func(c *gin.Context) {
				c.Set("trace_id", "context-trace-123")
				c.Request.Header.Set("X-Request-ID", "header-trace-456")
			},
			want: "context-trace-123",
		},
		{
			name:         "wrong type in context",
			setupContext: func(c *gin.Context) { c.Set("trace_id", 12345) },
			want:         "",
		},
		{
			name:         "nothing set",
			setupContext: func(*gin.Context) {},
			want:         "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			tt.setupContext(c)

			assert.Equal(t, tt.want, GetTraceID(c))
		})
	}
}

func TestHandleError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("trace_id", "trace-abc")

	HandleError(c, domain.NewExhaustedPoolError(2, 2))

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrorCodePoolExhausted, resp.Error.Code)
	assert.Equal(t, "trace-abc", resp.TraceID)
}

func TestValidator(t *testing.T) {
	assert.Same(t, Validator(), Validator())
}

func TestBindAndValidate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    error
		wantKey    string
		wantDetail map[string]string
	}{
		{name: "empty body", body: ""},
		{name: "key", body: `{"key":"quote_17"}`, wantKey: "quote_17"},
		{name: "empty key", body: `{"key":""}`},
		{name: "malformed", body: `{"key":`, wantErr: ErrBinding},
		{
			name:       "blank key",
			body:       `{"key":"  "}`,
			wantErr:    ErrValidation,
			wantDetail: map[string]string{"key": "must not be empty"},
		},
		{
			name:       "control characters",
			body:       `{"key":"a\tb"}`,
			wantErr:    ErrValidation,
			wantDetail: map[string]string{"key": "must be a single line without control characters"},
		},
		{
			name:       "too long",
			body:       `{"key":"` + strings.Repeat("k", 201) + `"}`,
			wantErr:    ErrValidation,
			wantDetail: map[string]string{"key": "must be at most 200 characters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req PostRequest
			err := BindAndValidate(c, &req)

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.wantKey, req.Key)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)

			if tt.wantDetail != nil {
				assert.True(t, IsValidationError(err))
				assert.Equal(t, tt.wantDetail, ValidationErrors(err))
			}
		})
	}
}

func TestNewQuoteResponse(t *testing.T) {
	sel := &app.Selection{
		Key: "linked",
		Quote: &domain.Quote{
			Submitter:   "Bob",
			Text:        "Look. Here.",
			Attribution: domain.Ptr("Carol"),
			Source:      domain.Ptr("https://example.com/clip"),
			Embed:       true,
		},
		Position: domain.NumberedPosition(3),
		Total:    9,
	}

	got := NewQuoteResponse(sel)

	assert.Equal(t, "linked", got.Key)
	assert.Equal(t, "Look. Here.", got.Text)
	assert.Equal(t, "Look.  Here. ~Carol", got.Formatted)
	assert.Equal(t, "3", got.Position)
	assert.Equal(t, "Quote 3/9, Submitted by Bob", got.Footer)
	assert.True(t, got.Embed)

	body, err := json.Marshal(NewQuoteResponse(&app.Selection{
		Key:      "<testing>",
		Quote:    domain.FallbackQuote(),
		Position: domain.Position{IsTest: true},
		Total:    9,
	}))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"position":"Test"`)
	assert.NotContains(t, string(body), "attribution")
}

func TestNewSubmittersResponse(t *testing.T) {
	counts := []domain.SubmitterCount{
		{Submitter: "Carol", Count: 2},
		{Submitter: "Bob", Count: 1},
	}

	assert.Len(t, NewSubmittersResponse(counts, SubmittersQuery{}).Submitters, 2)
	assert.Len(t, NewSubmittersResponse(counts, SubmittersQuery{Limit: 1}).Submitters, 1)
	assert.Len(t, NewSubmittersResponse(counts, SubmittersQuery{Limit: 5}).Submitters, 2)

	empty := NewSubmittersResponse(nil, SubmittersQuery{})
	assert.NotNil(t, empty.Submitters)
	assert.Equal(t, "```\n```", empty.Table)
}
