package main

import (
	"fmt"
	"strings"

	"fortio.org/cli"
	"fortio.org/log"
	"github.com/bwmarrin/discordgo"

	"github.com/AstreaTSS/Cherub/emoji"
	"github.com/AstreaTSS/Cherub/usererr"
)

func boolPtr(b bool) *bool { return &b }

func (b *Bot) registerCommands(s *discordgo.Session) {
	noDM := boolPtr(false)
	manageEmojis := int64(discordgo.PermissionManageEmojis)
	manageMessages := int64(discordgo.PermissionManageMessages)
	textOnly := []discordgo.ChannelType{discordgo.ChannelTypeGuildText}

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Pings the bot. Great way of finding out if the bot's working correctly.",
		},
		{
			Name:        "invite",
			Description: "Sends the link to invite the bot to your server.",
		},
		{
			Name:        "about",
			Description: "Gives information about the bot.",
		},
		{
			Name:        "emoji-url",
			Description: "Get the URL of a Discord emoji.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "emoji",
					Description: "The emoji to get the URL of.",
					Required:    true,
				},
			},
		},
		{
			Name:                     "add-emoji",
			Description:              "Adds the URL, emoji, or image given as an emoji to this server.",
			DMPermission:             noDM,
			DefaultMemberPermissions: &manageEmojis,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "emoji",
					Description: "The emoji or image URL to upload.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "attachment",
					Description: "The file to use as an emoji.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "The name to use for the emoji.",
				},
			},
		},
		{
			Name:                     "clone-emoji",
			Description:              "Clones an emoji from one server to this one.",
			DMPermission:             noDM,
			DefaultMemberPermissions: &manageEmojis,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "emoji",
					Description: "The emoji to clone.",
					Required:    true,
				},
			},
		},
		{
			Name:                     "pinboard",
			Description:              "Pinboard-related commands.",
			DMPermission:             noDM,
			DefaultMemberPermissions: &manageMessages,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List all pinboards.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Adds a pinboard.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "destination",
							Description:  "The channel to send pins to.",
							ChannelTypes: textOnly,
							Required:     true,
						},
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "entry",
							Description:  "The channel to watch for pins. Omit for a server-wide pinboard.",
							ChannelTypes: textOnly,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Removes a pinboard.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "entry",
							Description:  "The entry channel to remove. Omit for the server-wide pinboard.",
							ChannelTypes: textOnly,
						},
					},
				},
			},
		},
		{
			Name: "Get Emoji URLs",
			Type: discordgo.MessageApplicationCommand,
		},
		{
			Name:                     "Add First Emoji",
			Type:                     discordgo.MessageApplicationCommand,
			DMPermission:             noDM,
			DefaultMemberPermissions: &manageEmojis,
		},
		{
			Name:                     "Add Emojis",
			Type:                     discordgo.MessageApplicationCommand,
			DMPermission:             noDM,
			DefaultMemberPermissions: &manageEmojis,
		},
	}

	created, err := s.ApplicationCommandBulkOverwrite(b.selfID, "", commands)
	if err != nil {
		log.Fatalf("Cannot sync application commands: %v", err)
	}
	log.Infof("Synchronized %d application %s", len(created), cli.Plural(len(created), "command"))
}

// options flattens an interaction's options into a name -> option map.
func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

// targetMessage resolves the message a context-menu command was used on.
func targetMessage(i *discordgo.InteractionCreate) (*discordgo.Message, error) {
	data := i.ApplicationCommandData()
	if data.Resolved != nil {
		if m, ok := data.Resolved.Messages[data.TargetID]; ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no resolved message on %q interaction", data.Name)
}

func (b *Bot) cmdPing(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	latency := s.HeartbeatLatency().Milliseconds()
	embed := b.makeEmbed(fmt.Sprintf("Average Ping: `%d` ms", latency), "Pong!")
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
}

func (b *Bot) inviteLink() string {
	return "https://discord.com/api/oauth2/authorize?client_id=" + b.selfID +
		"&permissions=9312563227712&scope=bot%20applications.commands"
}

func (b *Bot) cmdInvite(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	embed := b.makeEmbed(
		"If you want to invite me to your server, use the Invite Link below!",
		"Invite Bot")
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Components: []discordgo.MessageComponent{discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{discordgo.Button{
					Style: discordgo.LinkButton,
					Label: "Invite Link",
					URL:   b.inviteLink(),
				}},
			}},
		},
	})
}

func (b *Bot) cmdAbout(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	embed := b.makeEmbed(strings.Join([]string{
		"I'm an experimental utility bot for emojis and pinboards.",
		"I can get the URL of any custom emoji, add emojis from emojis, URLs,",
		"or attachments, and relay pinned messages to a pinboard channel.",
	}, " "), "About")
	embed.Fields = []*discordgo.MessageEmbedField{
		{
			Name: "Stats",
			Value: strings.Join([]string{
				fmt.Sprintf("Servers: %d", len(s.State.Guilds)),
				"Version: " + cli.ShortVersion,
				"Uptime: " + UptimeString(b.startTime),
			}, "\n"),
			Inline: true,
		},
		{
			Name:   "Links",
			Value:  "Invite Bot: [Link](" + b.inviteLink() + ")",
			Inline: true,
		},
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
}

func (b *Bot) cmdEmojiURL(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opt, ok := options(i)["emoji"]
	if !ok {
		return usererr.New(usererr.NotAnEmoji, "An emoji must be provided.")
	}
	ref, err := emoji.Parse(opt.StringValue())
	if err != nil {
		return err
	}
	b.ephemeralReply(s, i, "URL: "+ref.URL(), nil)
	return nil
}

func (b *Bot) cmdGetEmojiURLs(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	msg, err := targetMessage(i)
	if err != nil {
		return err
	}
	refs := emoji.Dedup(emoji.Scan(msg.Content))
	if len(refs) == 0 {
		return usererr.New(usererr.NoEmojisFound, "No emojis found in this message.")
	}
	urls := make([]string, len(refs))
	for n, ref := range refs {
		urls[n] = ref.URL()
	}
	b.ephemeralReply(s, i, "URL(s):\n"+strings.Join(urls, "\n"), nil)
	return nil
}
