package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithHeaders(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.100.0.7:5000"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"Public X-Real-IP", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"First Public Forwarded", map[string]string{"X-Forwarded-For": "10.0.0.1, 198.51.100.4, 203.0.113.9"}, "198.51.100.4"},
		{"All Private Forwarded", map[string]string{"X-Forwarded-For": "192.168.1.2, 10.0.0.1"}, "192.168.1.2"},
		{"Private X-Real-IP Falls Through", map[string]string{"X-Real-IP": "10.0.0.3"}, "10.100.0.7"},
		{"No Headers", nil, "10.100.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetRealIP(contextWithHeaders(tt.headers)))
		})
	}
}

func TestGetUserAgent(t *testing.T) {
	assert.Equal(t, "Unknown", GetUserAgent(contextWithHeaders(nil)))
	assert.Equal(t, "curl/8.0", GetUserAgent(contextWithHeaders(map[string]string{"User-Agent": "curl/8.0"})))
}

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name       string
		ua         string
		deviceType string
		platform   string
	}{
		{"Empty", "", "unknown", "unknown"},
		{"Android Phone", "Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0 Mobile Safari/537.36", "mobile", "android"},
		{"iPad", "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1", "tablet", "ios"},
		{"Windows Desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0 Safari/537.36", "desktop", "windows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseUserAgent(tt.ua)
			assert.Equal(t, tt.deviceType, info.DeviceType)
			assert.Equal(t, tt.platform, info.Platform)
		})
	}

	assert.True(t, ParseUserAgent("Googlebot/2.1 (+http://www.google.com/bot.html)").IsBot)
}

func TestGenerateJWTSecret(t *testing.T) {
	a, err := GenerateJWTSecret()
	require.NoError(t, err)
	b, err := GenerateJWTSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
