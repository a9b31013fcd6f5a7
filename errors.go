package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"strings"
	"time"

	"fortio.org/log"
	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"

	"github.com/AstreaTSS/Cherub/usererr"
)

const (
	errorColor = 0xED4245 // discord red, for validation failure embeds

	// Discord caps messages at 2000 characters and embed descriptions at
	// 4096; chunking traces by line keeps each piece well under both.
	traceChunkLines = 40

	internalErrorReply = "An internal error has occurred. The bot owner has been notified."
)

func errorEmbed(msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Color: errorColor, Description: msg}
}

// handleInteractionError is the single routing point of the error taxonomy:
// user-facing kinds go straight back to the invoker, transport drops get the
// short message, everything else is dumped to the owner channel.
func (b *Bot) handleInteractionError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if err == nil {
		return
	}
	if usererr.IsUser(err) {
		log.S(log.Info, "command rejected",
			log.Any("kind", usererr.KindOf(err)), log.Any("err", err))
		b.ephemeralReply(s, i, "", errorEmbed(err.Error()))
		return
	}
	b.reportInternal(s, err)
	b.ephemeralReply(s, i, internalErrorReply, nil)
}

// reportInternal notifies the owner channel about a fault no user should see
// the details of. Disconnects are special-cased to a short line instead of a
// trace dump.
func (b *Bot) reportInternal(s *discordgo.Session, err error) {
	if isDisconnect(err) {
		log.S(log.Warning, "transport disconnected", log.Any("err", err))
		b.msgToOwner(s, "Disconnected from server!")
		return
	}
	trace := err.Error() + "\n\n" + string(debug.Stack())
	log.S(log.Error, "internal error", log.Any("err", err))
	for _, chunk := range traceChunks(trace) {
		b.msgToOwnerEmbed(s, errorEmbed(chunk))
	}
}

func (b *Bot) msgToOwner(s *discordgo.Session, content string) {
	if b.cfg.OwnerChannelID == "" {
		return
	}
	if _, err := s.ChannelMessageSend(b.cfg.OwnerChannelID, content); err != nil {
		log.Errf("Error notifying owner channel: %v", err)
	}
}

func (b *Bot) msgToOwnerEmbed(s *discordgo.Session, embed *discordgo.MessageEmbed) {
	if b.cfg.OwnerChannelID == "" {
		return
	}
	_, err := s.ChannelMessageSendEmbed(b.cfg.OwnerChannelID, embed)
	if err != nil {
		log.Errf("Error notifying owner channel: %v", err)
	}
}

// traceChunks splits a diagnostic trace into code blocks of at most
// traceChunkLines lines each.
func traceChunks(trace string) []string {
	lines := strings.Split(strings.TrimRight(trace, "\n"), "\n")
	chunks := make([]string, 0, (len(lines)+traceChunkLines-1)/traceChunkLines)
	for start := 0; start < len(lines); start += traceChunkLines {
		end := min(start+traceChunkLines, len(lines))
		chunks = append(chunks, "```\n"+strings.Join(lines[start:end], "\n")+"\n```")
	}
	return chunks
}

// isDisconnect spots transport-level drops so they get the short message
// instead of a full trace.
func isDisconnect(err error) bool {
	var opErr *net.OpError
	var closeErr *websocket.CloseError
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.As(err, &opErr) ||
		errors.As(err, &closeErr)
}

// recoverToError converts a handler panic into an ordinary internal error so
// it flows through the same reporting path.
func recoverToError(errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("panic in handler: %v", r)
	}
}

// responseWindow is how long an interaction's followup webhook stays usable.
// Past it the only delivery path left is a plain channel message.
const responseWindow = 15 * time.Minute

func interactionExpired(i *discordgo.InteractionCreate) bool {
	created, err := discordgo.SnowflakeTimestamp(i.ID)
	if err != nil {
		return true
	}
	return time.Since(created) >= responseWindow
}
