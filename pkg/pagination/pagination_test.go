package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseFrom(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/requests"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Page: 1, Limit: 20, Offset: 0}},
		{"explicit", "?page=3&limit=10", Params{Page: 3, Limit: 10, Offset: 20}},
		{"zero page falls back", "?page=0", Params{Page: 1, Limit: 20, Offset: 0}},
		{"negative page falls back", "?page=-2", Params{Page: 1, Limit: 20, Offset: 0}},
		{"limit capped", "?limit=1000", Params{Page: 1, Limit: 100, Offset: 0}},
		{"garbage falls back", "?page=abc&limit=xyz", Params{Page: 1, Limit: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseFrom(tt.query))
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(1, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(21, 20))
	assert.Equal(t, 3, TotalPages(45, 20))
	assert.Equal(t, 0, TotalPages(45, 0))
}

func TestHasMore(t *testing.T) {
	assert.True(t, HasMore(1, 45, 20))
	assert.True(t, HasMore(2, 45, 20))
	assert.False(t, HasMore(3, 45, 20))
	assert.False(t, HasMore(1, 0, 20))
	assert.False(t, HasMore(1, 20, 20))
}
