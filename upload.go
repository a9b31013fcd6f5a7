package main

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"

	"fortio.org/log"
	"github.com/bwmarrin/discordgo"

	"github.com/AstreaTSS/Cherub/emoji"
	"github.com/AstreaTSS/Cherub/imagefetch"
	"github.com/AstreaTSS/Cherub/usererr"
)

// maxEmojiBytes is the platform's emoji payload ceiling.
const maxEmojiBytes = 262144 // 256 KiB

var imageExts = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
}

func (b *Bot) cmdAddEmoji(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opts := options(i)
	var emojiText, name string
	if o, ok := opts["emoji"]; ok {
		emojiText = o.StringValue()
	}
	if o, ok := opts["name"]; ok {
		name = o.StringValue()
	}
	var att *discordgo.MessageAttachment
	if o, ok := opts["attachment"]; ok {
		id, _ := o.Value.(string)
		if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
			att = resolved.Attachments[id]
		}
	}
	return b.addEmoji(s, i, emojiText, att, name)
}

func (b *Bot) cmdCloneEmoji(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opt, ok := options(i)["emoji"]
	if !ok {
		return usererr.New(usererr.NotAnEmoji, "An emoji must be provided.")
	}
	// Parse up front so a bad argument fails as such instead of being
	// treated as a URL.
	if _, err := emoji.Parse(opt.StringValue()); err != nil {
		return err
	}
	return b.addEmoji(s, i, opt.StringValue(), nil, "")
}

func (b *Bot) cmdAddFirstEmoji(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	msg, err := targetMessage(i)
	if err != nil {
		return err
	}
	refs := emoji.Scan(msg.Content)
	if len(refs) == 0 {
		return usererr.New(usererr.NoEmojisFound, "No emojis found in this message.")
	}
	return b.addEmoji(s, i, refs[0].Token(), nil, "")
}

// addEmoji is the single-emoji upload path shared by add-emoji, clone-emoji
// and Add First Emoji. Exactly one of emojiText / att must be set.
func (b *Bot) addEmoji(s *discordgo.Session, i *discordgo.InteractionCreate, emojiText string, att *discordgo.MessageAttachment, name string) error {
	if emojiText == "" && att == nil {
		return usererr.New(usererr.NotAnEmoji, "Either an emoji, URL, or an attachment must be provided.")
	}
	if emojiText != "" && att != nil {
		return usererr.New(usererr.NotAnEmoji, "Only one of `emoji` or `attachment` can be provided.")
	}
	if err := b.checkCanUploadEmoji(s, i); err != nil {
		return err
	}

	ctx := context.Background()
	var (
		uploadURL string
		emojiID   uint64
		isGIF     bool
	)
	switch {
	case emojiText != "":
		if ref, err := emoji.Parse(emojiText); err == nil {
			emojiID = ref.ID
			uploadURL = ref.URL()
			isGIF = ref.Animated
			if name == "" {
				name = ref.Name
			}
		} else {
			url, format := imagefetch.ResolveImage(ctx, emojiText)
			if url == "" {
				return usererr.New(usererr.NotAnEmoji, "This argument is not a valid emoji or image URL.")
			}
			uploadURL = url
			isGIF = format == imagefetch.GIF
			if name == "" {
				name = nameFromURL(url)
			}
		}
	default:
		ext, ok := strings.CutPrefix(att.ContentType, "image/")
		if !ok || !imageExts[ext] {
			return usererr.New(usererr.InvalidImage, "The attachment is not a valid image.")
		}
		uploadURL = att.URL
		isGIF = ext == "gif"
		if name == "" {
			name = nameFromURL(att.Filename)
		}
	}

	guildEmojis, err := s.GuildEmojis(i.GuildID)
	if err != nil {
		return err
	}
	if emojiID != 0 {
		for _, e := range guildEmojis {
			if e.ID == strconv.FormatUint(emojiID, 10) {
				return usererr.New(usererr.DuplicateEmoji, "This emoji is already on this server.")
			}
		}
	} else {
		for _, e := range guildEmojis {
			if e.Name == name {
				return usererr.New(usererr.DuplicateEmoji, "There is already an emoji named `%s`.", name)
			}
		}
	}

	data, err := imagefetch.FetchBounded(ctx, uploadURL, maxEmojiBytes, false)
	if err != nil {
		return err
	}

	animated := false
	if isGIF {
		// GIFs can be animated or not; the slot type depends on which.
		animated, err = imagefetch.AnimatedGIF(data)
		if err != nil {
			return usererr.New(usererr.InvalidImage, "Invalid GIF provided.")
		}
	}

	counts := countEmojis(guildEmojis)
	used := counts.static
	if animated {
		used = counts.animated
	}
	limit, err := b.emojiSlotLimit(s, i.GuildID)
	if err != nil {
		return err
	}
	if used >= limit {
		return usererr.New(usererr.QuotaExceeded, "This guild has no more emoji slots for that type of emoji.")
	}

	uploaded, err := s.GuildEmojiCreate(i.GuildID, &discordgo.EmojiParams{
		Name:  name,
		Image: dataURI(data),
	})
	if err != nil {
		return usererr.New(usererr.PlatformRejected,
			"I was unable to add this emoji. This might be due to me not having the"+
				" permissions or the name being improper in some way. Maybe this error"+
				" will help you.\n\nError: `%v`", err)
	}
	log.S(log.Info, "emoji added",
		log.Any("guild", i.GuildID),
		log.Any("name", name),
		log.Bool("animated", animated))
	b.ephemeralReply(s, i, "Added "+uploaded.MessageFormat()+"!", nil)
	return nil
}

// checkCanUploadEmoji verifies the bot itself has emoji-management
// permission before any downloads happen.
func (b *Bot) checkCanUploadEmoji(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if i.GuildID == "" {
		return usererr.New(usererr.PermissionDenied, "This command can only be used in a server.")
	}
	perms, err := s.State.UserChannelPermissions(b.selfID, i.ChannelID)
	if err != nil {
		log.S(log.Warning, "can't compute own permissions", log.Any("err", err))
		return nil // let the upload attempt surface the real answer
	}
	if perms&discordgo.PermissionManageEmojis == 0 {
		return usererr.New(usererr.PermissionDenied, "The bot can't upload emojis on this server.")
	}
	return nil
}

type emojiCounts struct {
	animated int
	static   int
}

func countEmojis(list []*discordgo.Emoji) emojiCounts {
	var c emojiCounts
	for _, e := range list {
		if e.Animated {
			c.animated++
		} else {
			c.static++
		}
	}
	return c
}

// emojiSlotLimit is the per-type emoji cap for the guild's boost tier.
func (b *Bot) emojiSlotLimit(s *discordgo.Session, guildID string) (int, error) {
	g, err := s.State.Guild(guildID)
	if err != nil {
		g, err = s.Guild(guildID)
		if err != nil {
			return 0, err
		}
	}
	switch g.PremiumTier {
	case discordgo.PremiumTier3:
		return 250, nil
	case discordgo.PremiumTier2:
		return 150, nil
	case discordgo.PremiumTier1:
		return 100, nil
	default:
		return 50, nil
	}
}

// nameFromURL derives an emoji name from the last path element, extension
// stripped.
func nameFromURL(url string) string {
	name := url
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		name = name[:idx]
	}
	return name
}

// dataURI wraps an image payload the way the emoji-create endpoint wants it.
func dataURI(data []byte) string {
	mime := "image/png"
	switch imagefetch.Classify(data) {
	case imagefetch.GIF:
		mime = "image/gif"
	case imagefetch.JPEG:
		mime = "image/jpeg"
	case imagefetch.WEBP:
		mime = "image/webp"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
