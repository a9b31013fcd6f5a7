package main

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"fortio.org/log"
	"github.com/bwmarrin/discordgo"

	"github.com/AstreaTSS/Cherub/emoji"
	"github.com/AstreaTSS/Cherub/imagefetch"
	"github.com/AstreaTSS/Cherub/usererr"
)

// maxSelectOptions is the platform cap on select menu options.
const maxSelectOptions = 25

const selectionTimeoutMsg = "You took too long to select emojis. Please try again."

// selectionResult carries the chosen values plus the component interaction
// that delivered them, whose token outlives the original command's.
type selectionResult struct {
	values []string
	ic     *discordgo.InteractionCreate
}

// selections routes component interactions back to the command invocation
// blocked waiting for them, keyed by the component's custom id.
type selections struct {
	mu      sync.Mutex
	waiting map[string]chan selectionResult
}

func newSelections() *selections {
	return &selections{waiting: make(map[string]chan selectionResult)}
}

func (sel *selections) await(customID string) chan selectionResult {
	ch := make(chan selectionResult, 1)
	sel.mu.Lock()
	sel.waiting[customID] = ch
	sel.mu.Unlock()
	return ch
}

func (sel *selections) cancel(customID string) {
	sel.mu.Lock()
	delete(sel.waiting, customID)
	sel.mu.Unlock()
}

func (sel *selections) deliver(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	sel.mu.Lock()
	ch := sel.waiting[data.CustomID]
	delete(sel.waiting, data.CustomID)
	sel.mu.Unlock()
	if ch == nil {
		log.S(log.Debug, "stale component interaction", log.Any("id", data.CustomID))
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "This selection has expired.",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			log.Errf("Error answering stale component: %v", err)
		}
		return
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		log.Errf("Error acknowledging component: %v", err)
	}
	ch <- selectionResult{values: data.Values, ic: i}
}

// encodeSelection packs a candidate into a select option value. Names never
// contain '|' so the first separator is unambiguous.
func encodeSelection(name, url string) string {
	return name + "|" + url
}

func decodeSelection(value string) (name, url string) {
	name, url, _ = strings.Cut(value, "|")
	return name, url
}

// countSelection tallies how many chosen values consume animated vs static
// slots, by the CDN asset extension.
func countSelection(values []string) (animated, static int) {
	for _, v := range values {
		_, url := decodeSelection(v)
		if strings.HasSuffix(url, ".gif") {
			animated++
		} else {
			static++
		}
	}
	return animated, static
}

func (b *Bot) cmdAddEmojis(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := b.checkCanUploadEmoji(s, i); err != nil {
		return err
	}
	msg, err := targetMessage(i)
	if err != nil {
		return err
	}
	refs := emoji.Dedup(emoji.Scan(msg.Content))
	if len(refs) == 0 {
		return usererr.New(usererr.NoEmojisFound, "No emojis found in this message.")
	}

	guildEmojis, err := s.GuildEmojis(i.GuildID)
	if err != nil {
		return err
	}
	existing := make(map[string]bool, len(guildEmojis))
	for _, e := range guildEmojis {
		existing[e.ID] = true
	}
	var candidates []emoji.Reference
	for _, r := range refs {
		if !existing[strconv.FormatUint(r.ID, 10)] {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return usererr.New(usererr.NoEmojisFound,
			"No emojis found in this message that aren't already on this server.")
	}
	candidates = candidates[:min(len(candidates), maxSelectOptions)]

	options := make([]discordgo.SelectMenuOption, 0, len(candidates))
	for _, r := range candidates {
		options = append(options, discordgo.SelectMenuOption{
			Label: r.Name,
			Value: encodeSelection(r.Name, r.URL()),
			Emoji: &discordgo.ComponentEmoji{
				ID:       strconv.FormatUint(r.ID, 10),
				Name:     r.Name,
				Animated: r.Animated,
			},
		})
	}
	customID := "emoji-select:" + i.ID
	one := 1
	menu := discordgo.SelectMenu{
		CustomID:    customID,
		Placeholder: "Select the emojis you wish to add",
		MinValues:   &one,
		MaxValues:   len(options),
		Options:     options,
	}
	ch := b.selections.await(customID)
	defer b.selections.cancel(customID)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Select the emojis you want to add.",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}},
			},
		},
	})
	if err != nil {
		return err
	}

	timer := time.NewTimer(b.cfg.SelectionTimeout)
	defer timer.Stop()
	var res selectionResult
	select {
	case res = <-ch:
	case <-timer.C:
		b.editSelectionMessage(s, i, selectionTimeoutMsg, nil)
		return nil
	}

	// Freeze the menu so a second submit can't race the uploads.
	menu.Disabled = true
	b.editSelectionMessage(s, i, "Adding emojis...", []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}},
	})

	newAnimated, newStatic := countSelection(res.values)
	counts := countEmojis(guildEmojis)
	limit, err := b.emojiSlotLimit(s, i.GuildID)
	if err != nil {
		return err
	}
	if counts.animated+newAnimated > limit {
		return usererr.New(usererr.QuotaExceeded,
			"This guild has no more emoji slots for animated emojis.")
	}
	if counts.static+newStatic > limit {
		return usererr.New(usererr.QuotaExceeded,
			"This guild has no more emoji slots for static emojis.")
	}

	ctx := context.Background()
	added := make([]string, 0, len(res.values))
	for _, v := range res.values {
		name, url := decodeSelection(v)
		data, ferr := imagefetch.FetchBounded(ctx, url, maxEmojiBytes, false)
		if ferr != nil {
			b.batchItemFailed(s, i, name, ferr)
			continue
		}
		uploaded, uerr := s.GuildEmojiCreate(i.GuildID, &discordgo.EmojiParams{
			Name:  name,
			Image: dataURI(data),
		})
		if uerr != nil {
			b.batchItemFailed(s, i, name, uerr)
			continue
		}
		added = append(added, uploaded.MessageFormat())
	}

	if len(added) == 0 {
		b.ephemeralReply(s, i, "No emojis could be added.", nil)
		return nil
	}
	log.S(log.Info, "emojis added",
		log.Any("guild", i.GuildID),
		log.Any("count", len(added)))
	summary := "Successfully added emojis: " + strings.Join(added, ", ")
	if !interactionExpired(res.ic) {
		b.ephemeralReply(s, res.ic, summary, nil)
		return nil
	}
	// The interaction token lapsed during the uploads; fall back to a plain
	// channel message so the invoker still hears back.
	_, err = s.ChannelMessageSend(i.ChannelID,
		"<@"+interactionUserID(i)+">, "+lowerFirst(summary))
	return err
}

func (b *Bot) batchItemFailed(s *discordgo.Session, i *discordgo.InteractionCreate, name string, err error) {
	log.S(log.Warning, "emoji not added", log.Any("name", name), log.Any("err", err))
	content := "I was unable to add `" + name + "`: " + userMessage(err)
	_, ferr := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if ferr != nil {
		log.Errf("Error sending batch failure notice: %v", ferr)
	}
}

// editSelectionMessage rewrites the ephemeral selection prompt in place.
func (b *Bot) editSelectionMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &components,
	})
	if err != nil {
		log.Errf("Error editing selection message: %v", err)
	}
}

// userMessage renders err for end users, hiding internal detail.
func userMessage(err error) string {
	var uerr *usererr.Error
	if errors.As(err, &uerr) && uerr.What != usererr.Internal {
		return uerr.Msg
	}
	return "an internal error occurred."
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
