package index

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c := NewClient(0, "")
	assert.Equal(t, DefaultUserAgent, c.userAgent)
	assert.Zero(t, c.client.Timeout)

	c = NewClient(time.Second, "custom/1.0")
	assert.Equal(t, "custom/1.0", c.userAgent)
	assert.Equal(t, time.Second, c.client.Timeout)
}

func TestFetchIndex(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		want        string
		expectError string
	}{
		{
			name: "returns body verbatim",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
				_, _ = w.Write([]byte(listingPage))
			},
			want: listingPage,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			expectError: "unexpected status code",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectError: "500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c := NewClient(time.Second, "test-agent")
			got, err := c.FetchIndex(context.Background(), server.URL+"/")
			if tt.expectError != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrNetwork)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchIndex_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(time.Second, "").FetchIndex(context.Background(), url)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNetwork)
}
