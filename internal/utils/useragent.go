package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
)

// appUserAgentPrefix marks requests from the passenger mobile app; the app
// sets its own User-Agent rather than a browser one.
const appUserAgentPrefix = "KjkhandalaPassenger/"

// DetectChannel classifies where a booking request came from based on its
// User-Agent string. The mobile app identifies itself explicitly; any
// recognizable browser counts as web; everything else (the counter terminal
// software sets no browser agent) maps to counter.
func DetectChannel(userAgent string) models.BookingChannel {
	if userAgent == "" {
		return models.ChannelCounter
	}
	if strings.HasPrefix(userAgent, appUserAgentPrefix) {
		return models.ChannelApp
	}

	parser := ua.New(userAgent)
	if parser.Mobile() {
		return models.ChannelWeb
	}
	if name, _ := parser.Browser(); name != "" {
		return models.ChannelWeb
	}
	return models.ChannelCounter
}
