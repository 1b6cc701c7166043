package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo is the part of a User-Agent the request log records
type DeviceInfo struct {
	DeviceType string // mobile, tablet, desktop, unknown
	Platform   string // android, ios, windows, mac, linux, chromeos, unknown
	IsBot      bool
}

var tabletIndicators = []string{"ipad", "tablet", "kindle", "playbook", "nexus 7", "nexus 9", "nexus 10", "xoom", "sm-t"}

var platforms = []struct{ match, platform string }{
	{"android", "android"},
	{"iphone", "ios"},
	{"ipad", "ios"},
	{"ios", "ios"},
	{"windows", "windows"},
	{"mac os x", "mac"},
	{"macos", "mac"},
	{"chrome os", "chromeos"},
	{"cros", "chromeos"},
	{"ubuntu", "linux"},
	{"linux", "linux"},
}

// ParseUserAgent classifies the device behind a User-Agent string
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{DeviceType: "unknown", Platform: "unknown"}
	}

	parser := ua.New(userAgent)
	return DeviceInfo{
		DeviceType: deviceType(parser),
		Platform:   platform(parser),
		IsBot:      parser.Bot(),
	}
}

func deviceType(parser *ua.UserAgent) string {
	lower := strings.ToLower(parser.UA())
	for _, indicator := range tabletIndicators {
		if strings.Contains(lower, indicator) {
			return "tablet"
		}
	}
	if parser.Mobile() {
		return "mobile"
	}
	return "desktop"
}

// platform checks the more specific names first: Android UAs also say Linux
func platform(parser *ua.UserAgent) string {
	name := strings.ToLower(parser.Platform() + " " + parser.OSInfo().Name + " " + parser.OS())
	for _, p := range platforms {
		if strings.Contains(name, p.match) {
			return p.platform
		}
	}
	return "unknown"
}
