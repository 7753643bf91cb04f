package discord

import (
	"github.com/bwmarrin/discordgo"
)

// sessionPermissions reads permissions from the state cache and falls back to REST.
func sessionPermissions(s *discordgo.Session, userID, channelID string) (int64, error) {
	if s.State != nil {
		if perms, err := s.State.UserChannelPermissions(userID, channelID); err == nil {
			return perms, nil
		}
	}
	return s.UserChannelPermissions(userID, channelID)
}
