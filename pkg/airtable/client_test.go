package airtable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-sync/internal/resilience"
)

func TestListRecords(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       string
		wantTransient bool
		wantRecords   int
		wantOffset    string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{"records":[
				{"id":"rec1","createdTime":"2026-01-02T03:04:05.000Z","fields":{"Name":"Jane Doe"}},
				{"id":"rec2","createdTime":"2026-01-02T03:04:05.000Z","fields":{}}
			],"offset":"itrNEXT/rec2"}`,
			wantRecords: 2,
			wantOffset:  "itrNEXT/rec2",
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"type":"AUTHENTICATION_REQUIRED"}}`,
			wantErr: "unexpected status 401",
		},
		{
			name:          "rate_limited",
			status:        http.StatusTooManyRequests,
			body:          `{"errors":[{"error":"RATE_LIMIT_REACHED"}]}`,
			wantErr:       "unexpected status 429",
			wantTransient: true,
		},
		{
			name:    "malformed",
			status:  http.StatusOK,
			body:    `{not json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/appBASE/People", r.URL.Path)
				assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))
				assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient("pat-test", "appBASE", WithBaseURL(srv.URL), WithRateLimit(0))
			resp, err := c.ListRecords(context.Background(), "People", ListOptions{})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			assert.Len(t, resp.Records, tt.wantRecords)
			assert.Equal(t, tt.wantOffset, resp.Offset)
			assert.Equal(t, "rec1", resp.Records[0].ID)
			assert.Equal(t, "Jane Doe", resp.Records[0].Fields["Name"])
			assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), resp.Records[0].CreatedTime.UTC())
		})
	}
}

func TestListRecords_OffsetAndPageSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cursor-1", r.URL.Query().Get("offset"))
		assert.Equal(t, "25", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	c := NewClient("pat", "appBASE", WithBaseURL(srv.URL), WithRateLimit(0))
	resp, err := c.ListRecords(context.Background(), "People", ListOptions{PageSize: 25, Offset: "cursor-1"})
	require.NoError(t, err)
	assert.Empty(t, resp.Records)
	assert.Empty(t, resp.Offset)
}

func TestListRecords_TableNameEscaped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appBASE/Open Roles", r.URL.Path)
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	c := NewClient("pat", "appBASE", WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := c.ListRecords(context.Background(), "Open Roles", ListOptions{})
	require.NoError(t, err)
}

func TestListRecords_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("pat", "appBASE", WithBaseURL(srv.URL))
	_, err := c.ListRecords(ctx, "People", ListOptions{})
	require.Error(t, err)
}
