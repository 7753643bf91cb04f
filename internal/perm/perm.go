// Package perm maps the permission tokens used in command descriptor files
// onto Discord permission bits.
package perm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

type permission struct {
	token string
	name  string
	bit   int64
}

var permissions = []permission{
	{"CreateInstantInvite", "Create Instant Invite", discordgo.PermissionCreateInstantInvite},
	{"KickMembers", "Kick Members", discordgo.PermissionKickMembers},
	{"BanMembers", "Ban Members", discordgo.PermissionBanMembers},
	{"Administrator", "Administrator", discordgo.PermissionAdministrator},
	{"ManageChannels", "Manage Channels", discordgo.PermissionManageChannels},
	{"ManageGuild", "Manage Server", discordgo.PermissionManageServer},
	{"AddReactions", "Add Reactions", discordgo.PermissionAddReactions},
	{"ViewAuditLog", "View Audit Log", discordgo.PermissionViewAuditLogs},
	{"ViewChannel", "View Channel", discordgo.PermissionViewChannel},
	{"SendMessages", "Send Messages", discordgo.PermissionSendMessages},
	{"SendTTSMessages", "Send TTS Messages", discordgo.PermissionSendTTSMessages},
	{"ManageMessages", "Manage Messages", discordgo.PermissionManageMessages},
	{"EmbedLinks", "Embed Links", discordgo.PermissionEmbedLinks},
	{"AttachFiles", "Attach Files", discordgo.PermissionAttachFiles},
	{"ReadMessageHistory", "Read Message History", discordgo.PermissionReadMessageHistory},
	{"MentionEveryone", "Mention Everyone", discordgo.PermissionMentionEveryone},
	{"UseExternalEmojis", "Use External Emojis", discordgo.PermissionUseExternalEmojis},
	{"Connect", "Connect to Voice Channel", discordgo.PermissionVoiceConnect},
	{"Speak", "Speak", discordgo.PermissionVoiceSpeak},
	{"MuteMembers", "Mute Members", discordgo.PermissionVoiceMuteMembers},
	{"DeafenMembers", "Deafen Members", discordgo.PermissionVoiceDeafenMembers},
	{"MoveMembers", "Move Members", discordgo.PermissionVoiceMoveMembers},
	{"UseVAD", "Use Voice Activity Detection", discordgo.PermissionVoiceUseVAD},
	{"ChangeNickname", "Change Nickname", discordgo.PermissionChangeNickname},
	{"ManageNicknames", "Manage Nicknames", discordgo.PermissionManageNicknames},
	{"ManageRoles", "Manage Roles", discordgo.PermissionManageRoles},
	{"ManageWebhooks", "Manage Webhooks", discordgo.PermissionManageWebhooks},
	{"ManageThreads", "Manage Threads", discordgo.PermissionManageThreads},
	{"ModerateMembers", "Moderate Members", discordgo.PermissionModerateMembers},
}

var byToken = func() map[string]permission {
	m := make(map[string]permission, len(permissions))
	for _, p := range permissions {
		m[normalize(p.token)] = p
	}
	return m
}()

// normalize folds case and drops separators so "manage_messages",
// "Manage Messages" and "ManageMessages" are the same token.
func normalize(token string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(token)))
}

// Lookup returns the canonical token and bit for token.
func Lookup(token string) (string, int64, bool) {
	p, ok := byToken[normalize(token)]
	if !ok {
		return "", 0, false
	}
	return p.token, p.bit, true
}

// Canonicalize validates tokens and returns them in canonical spelling,
// de-duplicated and in input order.
func Canonicalize(tokens []string) ([]string, error) {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		canonical, _, ok := Lookup(t)
		if !ok {
			return nil, fmt.Errorf("unknown permission %q", t)
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out, nil
}

// Missing returns the required tokens not held by have. Administrator
// implies every permission.
func Missing(have int64, required []string) []string {
	if have&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	var missing []string
	for _, t := range required {
		canonical, bit, ok := Lookup(t)
		if !ok {
			missing = append(missing, t)
			continue
		}
		if have&bit != bit {
			missing = append(missing, canonical)
		}
	}
	return missing
}

// DisplayName returns the human-readable name of a token.
func DisplayName(token string) string {
	if p, ok := byToken[normalize(token)]; ok {
		return p.name
	}
	return token
}

// DisplayNames maps DisplayName over tokens.
func DisplayNames(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = DisplayName(t)
	}
	return out
}

// Tokens returns every known token, sorted.
func Tokens() []string {
	out := make([]string, 0, len(permissions))
	for _, p := range permissions {
		out = append(out, p.token)
	}
	sort.Strings(out)
	return out
}
