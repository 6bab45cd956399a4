package home

import (
	"slices"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/confessor/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "confession",
		Description: "Manage anonymous confessions",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "panel",
				Description: "Post the confession panel in this channel (Admin Only)",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "stats",
				Description: "Show confession statistics",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "since",
						Description: "Also count confessions since (e.g., 'yesterday', 'last monday')",
						Required:    false,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "lookup",
				Description: "Show who submitted a confession (Admin Only)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "id",
						Description: "Confession ID, e.g. CONF-LX3K9A2B",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "export",
				Description: "Download every confession as CSV (Admin Only)",
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		if confessions == nil {
			confessRespond(event, sys.ErrConfessionUnavailable)
			return
		}

		data := event.SlashCommandInteractionData()
		subCmd := data.SubCommandName
		if subCmd == nil {
			return
		}

		switch *subCmd {
		case "panel":
			handleConfessionPanel(event)
		case "stats":
			handleConfessionStats(event, data)
		case "lookup":
			handleConfessionLookup(event, data)
		case "export":
			handleConfessionExport(event)
		}
	})

	sys.RegisterMessageCommand("confessionslog", handleLegacyConfessionsLog)
}

// IsConfessionAdmin decides admin rights: owners always, then the configured
// admin role, or the Administrator permission when no role is configured.
func IsConfessionAdmin(cfg *sys.Config, userID snowflake.ID, roleIDs []snowflake.ID, perms discord.Permissions) bool {
	if cfg == nil {
		return perms.Has(discord.PermissionAdministrator)
	}
	if cfg.IsOwner(userID) {
		return true
	}
	if cfg.AdminRoleID != 0 {
		return slices.Contains(roleIDs, cfg.AdminRoleID)
	}
	return perms.Has(discord.PermissionAdministrator)
}

func interactionIsAdmin(event *events.ApplicationCommandInteractionCreate) bool {
	member := event.Member()
	if member == nil {
		return false
	}
	return IsConfessionAdmin(sys.GlobalConfig, member.User.ID, member.RoleIDs, member.Permissions)
}

// messageAuthorIsAdmin resolves permissions from the cache, since message
// events carry roles but no computed permissions.
func messageAuthorIsAdmin(client *bot.Client, event *events.MessageCreate) bool {
	if event.GuildID == nil || event.Message.Member == nil {
		return false
	}
	guildID := *event.GuildID
	roleIDs := event.Message.Member.RoleIDs

	var perms discord.Permissions
	if guild, ok := client.Caches.Guild(guildID); ok && guild.OwnerID == event.Message.Author.ID {
		perms = discord.PermissionsAll
	} else {
		for _, rID := range roleIDs {
			if r, ok := client.Caches.Role(guildID, rID); ok {
				perms |= r.Permissions
			}
		}
		if everyone, ok := client.Caches.Role(guildID, snowflake.ID(guildID)); ok {
			perms |= everyone.Permissions
		}
	}

	return IsConfessionAdmin(sys.GlobalConfig, event.Message.Author.ID, roleIDs, perms)
}
