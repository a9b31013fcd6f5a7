package main

import (
	"sync"
	"time"

	"fortio.org/cli"
	"fortio.org/log"
	"github.com/bwmarrin/discordgo"
	"grol.io/grol/extensions"

	"github.com/AstreaTSS/Cherub/store"
)

// Bot carries the immutable startup configuration and the handles every
// handler needs. No process-wide mutable state: everything flows through
// the receiver.
type Bot struct {
	cfg       Config
	store     *store.Store
	selfID    string
	startTime time.Time

	selections *selections

	mu        sync.Mutex
	everReady bool // distinguishes first login from gateway reconnects
}

const Unknown = "unknown"

func Run(cfg Config) {
	b := &Bot{
		cfg:        cfg,
		startTime:  time.Now(),
		selections: newSelections(),
	}

	if err := extensions.Init(&extensions.Config{}); err != nil {
		log.Fatalf("Grol extensions init error: %v", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Opening config store %q: %v", cfg.DBPath, err)
	}
	b.store = st
	defer st.Close()

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Fatalf("Init discordgo.New error: %v", err)
	}
	session.StateEnabled = true
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildEmojis

	session.AddHandler(b.ready)
	session.AddHandler(b.newMessage)
	session.AddHandler(b.interactionCreate)

	if err = session.Open(); err != nil {
		log.Fatalf("Init discordgo.Open error: %v", err)
	}
	defer session.Close()

	b.selfID = session.State.User.ID
	b.registerCommands(session)

	log.Infof("Bot is now running with owner=%s - Press CTRL-C or SIGTERM to exit.", cfg.OwnerID)
	cli.UntilInterrupted()
	if err = session.Close(); err != nil {
		log.Errf("Error closing session: %v", err)
	}
	log.Infof("Bot is now stopped and exiting.")
}

func (b *Bot) IsThisBot(id string) bool {
	return id == b.selfID
}

func (b *Bot) IsOwner(userID string) bool {
	return b.cfg.OwnerID != "" && b.cfg.OwnerID == userID
}

func (b *Bot) ready(s *discordgo.Session, _ *discordgo.Ready) {
	err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{{
			Name: "in the ethereal realm",
			Type: discordgo.ActivityTypeWatching,
		}},
	})
	if err != nil {
		log.Errf("Error setting presence: %v", err)
	}

	b.mu.Lock()
	first := !b.everReady
	b.everReady = true
	b.mu.Unlock()

	stamp := "<t:" + timestampStr(time.Now()) + ":f>"
	msg := "Reconnected at " + stamp + "!"
	if first {
		msg = "Logged in at " + stamp + "!"
	}
	log.S(log.Info, "gateway ready", log.Bool("first", first))
	b.msgToOwner(s, msg)
}

func (b *Bot) newMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if b.IsThisBot(m.Author.ID) || m.Author.Bot {
		return
	}
	if m.Type == discordgo.MessageTypeChannelPinnedMessage {
		if err := b.relayPin(s, m.Message); err != nil {
			log.S(log.Error, "pin relay failed", log.Any("err", err))
			b.reportInternal(s, err)
		}
		return
	}
	b.consoleMessage(s, m.Message)
}

func (b *Bot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.dispatchCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.selections.deliver(s, i)
	default:
		log.S(log.Debug, "ignoring interaction", log.Any("type", i.Type))
	}
}

func (b *Bot) dispatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	handler, ok := b.commandHandlers()[data.Name]
	if !ok {
		log.S(log.Warning, "unknown command", log.Any("name", data.Name))
		return
	}
	log.S(log.Info, "interaction",
		log.Any("command", data.Name),
		log.Any("from", interactionUserID(i)),
		log.Any("guild", i.GuildID),
		log.Any("channel", i.ChannelID))
	err := func() (err error) {
		defer recoverToError(&err)
		return handler(s, i)
	}()
	b.handleInteractionError(s, i, err)
}

type commandHandler func(*discordgo.Session, *discordgo.InteractionCreate) error

func (b *Bot) commandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"ping":            b.cmdPing,
		"invite":          b.cmdInvite,
		"about":           b.cmdAbout,
		"emoji-url":       b.cmdEmojiURL,
		"add-emoji":       b.cmdAddEmoji,
		"clone-emoji":     b.cmdCloneEmoji,
		"pinboard":        b.cmdPinboard,
		"Get Emoji URLs":  b.cmdGetEmojiURLs,
		"Add First Emoji": b.cmdAddFirstEmoji,
		"Add Emojis":      b.cmdAddEmojis,
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.User != nil {
		return i.User.ID
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	return Unknown
}

// ephemeralReply answers an interaction whether or not it was already
// acknowledged: first as the initial response, then as a followup.
func (b *Bot) ephemeralReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string, embed *discordgo.MessageEmbed) {
	var embeds []*discordgo.MessageEmbed
	if embed != nil {
		embeds = append(embeds, embed)
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Embeds:  embeds,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err == nil {
		return
	}
	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Embeds:  embeds,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Errf("Error replying to interaction: %v", err)
	}
}

func (b *Bot) makeEmbed(description, title string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       b.cfg.Color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}
