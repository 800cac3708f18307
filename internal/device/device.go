package device

import "strings"

// Platform classifies the runtime a client request originates from.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformDesktop Platform = "desktop"
)

// Probe carries the observable facts a client reports about itself.
// TouchPoints mirrors the browser's maxTouchPoints capability and is used
// to recognize iPads that present a Macintosh user agent.
type Probe struct {
	UserAgent   string
	TouchPoints int
}

// Classify maps a probe to a platform. It always returns a value: an empty
// user agent (non-browser context) and anything unrecognized both classify
// as desktop.
func Classify(p Probe) Platform {
	ua := p.UserAgent
	if ua == "" {
		return PlatformDesktop
	}

	switch {
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iPod"):
		return PlatformIOS
	case strings.Contains(ua, "Macintosh") && p.TouchPoints > 1:
		// iPadOS reports a desktop Safari user agent but keeps touch input.
		return PlatformIOS
	case strings.Contains(ua, "Android"):
		return PlatformAndroid
	}
	return PlatformDesktop
}
