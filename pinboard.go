package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fortio.org/log"
	"github.com/bwmarrin/discordgo"

	"github.com/AstreaTSS/Cherub/store"
)

func (b *Bot) cmdPinboard(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return nil
	}
	sub := data.Options[0]
	subOpts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, o := range sub.Options {
		subOpts[o.Name] = o
	}
	switch sub.Name {
	case "list":
		return b.pinboardList(s, i)
	case "add":
		return b.pinboardAdd(s, i, subOpts)
	case "remove":
		return b.pinboardRemove(s, i, subOpts)
	default:
		log.S(log.Warning, "unknown pinboard subcommand", log.Any("name", sub.Name))
		return nil
	}
}

func (b *Bot) pinboardList(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	cfg, err := b.store.Fetch(context.Background(), i.GuildID)
	if err != nil {
		return err
	}
	if len(cfg.Pinboards) == 0 {
		b.ephemeralReply(s, i, "There are no pinboards on this server.", nil)
		return nil
	}
	var sb strings.Builder
	// Global first so per-channel overrides read as exceptions to it.
	if dest, ok := cfg.Pinboards[store.GlobalPinboard]; ok {
		fmt.Fprintf(&sb, "Global -> <#%s>\n", dest)
	}
	for src, dest := range cfg.Pinboards {
		if src == store.GlobalPinboard {
			continue
		}
		fmt.Fprintf(&sb, "<#%s> -> <#%s>\n", src, dest)
	}
	b.ephemeralReply(s, i, "", b.makeEmbed(sb.String(), "Pinboards"))
	return nil
}

func (b *Bot) pinboardAdd(s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) error {
	entry := store.GlobalPinboard
	if o, ok := opts["entry"]; ok {
		entry = o.ChannelValue(nil).ID
	}
	dest := opts["destination"].ChannelValue(nil).ID
	cfg, err := b.store.Fetch(context.Background(), i.GuildID)
	if err != nil {
		return err
	}
	cfg.Pinboards[entry] = dest
	if err := b.store.Save(context.Background(), cfg); err != nil {
		return err
	}
	b.ephemeralReply(s, i, "Pinboard added.", nil)
	return nil
}

func (b *Bot) pinboardRemove(s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) error {
	entry := store.GlobalPinboard
	if o, ok := opts["entry"]; ok {
		entry = o.ChannelValue(nil).ID
	}
	cfg, err := b.store.Fetch(context.Background(), i.GuildID)
	if err != nil {
		return err
	}
	if _, ok := cfg.Pinboards[entry]; !ok {
		b.ephemeralReply(s, i, "That channel is not a pinboard.", nil)
		return nil
	}
	delete(cfg.Pinboards, entry)
	if err := b.store.Save(context.Background(), cfg); err != nil {
		return err
	}
	b.ephemeralReply(s, i, "Pinboard removed.", nil)
	return nil
}

// relayPin mirrors the most recent pin of m's channel to the configured
// pinboard and removes the pin afterwards so the channel's pin list stays
// free. Called on the pin system notice, not on the pinned message itself.
func (b *Bot) relayPin(s *discordgo.Session, m *discordgo.Message) error {
	if m.GuildID == "" {
		return nil
	}
	cfg, err := b.store.Fetch(context.Background(), m.GuildID)
	if err != nil {
		return err
	}
	dest := cfg.Destination(m.ChannelID)
	if dest == "" {
		return nil
	}
	pins, err := s.ChannelMessagesPinned(m.ChannelID)
	if err != nil {
		return fmt.Errorf("listing pins in %s: %w", m.ChannelID, err)
	}
	if len(pins) == 0 {
		return nil
	}
	pinned := pins[0] // most recent pin first

	embed := pinEmbed(pinned, b.cfg.Color)
	jump := "https://discord.com/channels/" + m.GuildID + "/" + pinned.ChannelID + "/" + pinned.ID

	_, err = s.ChannelMessageSendComplex(dest, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Style: discordgo.LinkButton,
					Label: "Original Message",
					URL:   jump,
				},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("relaying pin to %s: %w", dest, err)
	}
	if err := s.ChannelMessageUnpin(pinned.ChannelID, pinned.ID); err != nil {
		return fmt.Errorf("unpinning %s: %w", pinned.ID, err)
	}
	log.S(log.Info, "pin relayed",
		log.Any("guild", m.GuildID),
		log.Any("from", m.ChannelID),
		log.Any("to", dest))
	return nil
}

// pinEmbed renders a pinned message for the pinboard channel.
func pinEmbed(pinned *discordgo.Message, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Description: pinned.Content,
		Color:       color,
		Timestamp:   pinned.Timestamp.UTC().Format(time.RFC3339),
	}
	if embed.Description == "" {
		embed.Description = "*See original message for content.*"
	}
	if pinned.Author != nil {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    pinAuthorName(pinned.Author),
			IconURL: pinned.Author.AvatarURL(""),
		}
	}
	if len(pinned.Attachments) > 0 {
		embed.Image = &discordgo.MessageEmbedImage{URL: pinned.Attachments[0].URL}
		links := make([]string, 0, len(pinned.Attachments))
		for _, a := range pinned.Attachments {
			links = append(links, "["+a.Filename+"]("+a.URL+")")
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Attachments",
			Value: strings.Join(links, "\n"),
		})
	}
	return embed
}

// pinAuthorName is the author's display name followed by their account tag.
func pinAuthorName(u *discordgo.User) string {
	name := u.Username
	if u.GlobalName != "" {
		name = u.GlobalName
	}
	return name + " (" + u.String() + ")"
}
