package platform

import (
	"fmt"
	"strings"
)

// Platform identifies the chat network an adapter speaks to.
type Platform string

const (
	PlatformWebchat  Platform = "webchat"
	PlatformConsole  Platform = "console"
	PlatformQQ       Platform = "qq"
	PlatformDingTalk Platform = "dingtalk"
)

func IsValidPlatform(p Platform) bool {
	switch p {
	case PlatformWebchat, PlatformConsole, PlatformQQ, PlatformDingTalk:
		return true
	default:
		return false
	}
}

// BuildOrigin composes the unified message origin for one conversation:
// "<platform>:<conversation id>". The origin is the routing key that maps an
// event to a tenant profile.
func BuildOrigin(p Platform, conversationID string) (string, error) {
	if !IsValidPlatform(p) {
		return "", fmt.Errorf("platform is invalid: %q", p)
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return "", fmt.Errorf("conversation id is required")
	}
	if strings.Contains(conversationID, " ") {
		return "", fmt.Errorf("conversation id must not contain spaces")
	}
	return fmt.Sprintf("%s:%s", p, conversationID), nil
}

// SplitOrigin is the inverse of BuildOrigin.
func SplitOrigin(origin string) (Platform, string, error) {
	idx := strings.IndexByte(origin, ':')
	if idx <= 0 || idx == len(origin)-1 {
		return "", "", fmt.Errorf("origin is invalid: %q", origin)
	}
	p := Platform(origin[:idx])
	if !IsValidPlatform(p) {
		return "", "", fmt.Errorf("origin platform is invalid: %q", origin)
	}
	return p, origin[idx+1:], nil
}
