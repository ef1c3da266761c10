package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// RouteLibraryLogs sends discordgo's internal log output to logger instead
// of the standard log package. The hook is process-wide.
func RouteLibraryLogs(logger Logger) {
	if logger == nil {
		discordgo.Logger = nil
		return
	}
	discordgo.Logger = func(level, _ int, format string, a ...any) {
		msg := strings.TrimSpace(fmt.Sprintf(format, a...))
		switch level {
		case discordgo.LogError:
			logger.Error(msg, "source", "discordgo")
		case discordgo.LogWarning:
			logger.Warn(msg, "source", "discordgo")
		case discordgo.LogInformational:
			logger.Info(msg, "source", "discordgo")
		default:
			logger.Debug(msg, "source", "discordgo")
		}
	}
}
