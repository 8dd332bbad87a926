package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerAuthenticator(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   bool
	}{
		{name: "match", secret: "s3cret", header: "Bearer s3cret", want: true},
		{name: "wrong", secret: "s3cret", header: "Bearer nope"},
		{name: "prefix only", secret: "s3cret", header: "Bearer s3c"},
		{name: "missing", secret: "s3cret"},
		{name: "basic scheme", secret: "s3cret", header: "Basic s3cret"},
		{name: "no scheme", secret: "s3cret", header: "s3cret"},
		{name: "empty secret", secret: "", header: "Bearer "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, NewBearerAuthenticator(tt.secret).Authorized(r))
		})
	}
}
