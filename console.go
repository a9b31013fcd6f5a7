package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fortio.org/cli"
	"fortio.org/log"
	"fortio.org/version"
	"github.com/bwmarrin/discordgo"
	"grol.io/grol/eval"
	"grol.io/grol/object"
	"grol.io/grol/repl"
)

const consolePrefix = "!cherub"

var grolVersion, _, _ = version.FromBuildInfoPath("grol.io/grol")

// Discord's limit minus some margin for the truncation notice, in runes.
const MaxMessageLengthInRunes = 2000 - 100

// consoleMessage handles the owner's text console: a handful of fixed
// subcommands and otherwise a grol evaluation of the rest of the message.
func (b *Bot) consoleMessage(s *discordgo.Session, m *discordgo.Message) {
	if !strings.HasPrefix(m.Content, consolePrefix) {
		return
	}
	if m.Author.ID != b.cfg.OwnerID {
		log.S(log.Warning, "console use by non owner",
			log.Any("from", m.Author.ID), log.Any("content", m.Content))
		b.consoleReply(s, m, "Nice try.")
		return
	}
	input := strings.TrimSpace(m.Content[len(consolePrefix):])
	log.S(log.Info, "console", log.Any("input", input))
	switch input {
	case "", "help":
		b.consoleReply(s, m, "Console commands: `version`, `uptime`, `buildinfo`, `shutdown`,"+
			" or any grol code to evaluate.")
	case "version", "--version", "-version":
		b.consoleReply(s, m, "Cherub "+cli.ShortVersion+", grol language version "+grolVersion)
	case "uptime":
		b.consoleReply(s, m, "Up for "+UptimeString(b.startTime))
	case "buildinfo":
		b.consoleReply(s, m, "```"+cli.FullVersion+"```")
	case "shutdown":
		b.consoleReply(s, m, "Shutting down, bye!")
		log.Critf("Owner %s requested shutdown", m.Author.ID)
		if err := s.Close(); err != nil {
			log.Errf("Error closing session: %v", err)
		}
		log.Fatalf("Shutdown requested through console")
	default:
		b.consoleReply(s, m, b.evalConsole(s, m, input))
	}
}

// replOptions converts the configured limits into grol eval options.
func (b *Bot) replOptions() repl.Options {
	opts := repl.EvalStringOptions()
	opts.MaxDepth = b.cfg.Eval.MaxDepth
	opts.MaxValueLen = b.cfg.Eval.MaxValueLen
	opts.MaxDuration = b.cfg.Eval.MaxDuration
	opts.PanicOk = b.cfg.Eval.PanicOK
	return opts
}

func (b *Bot) evalConsole(s *discordgo.Session, m *discordgo.Message, input string) string {
	input = SmartQuotesToRegular(RemoveTripleBackticks(input))
	opts := b.replOptions()
	opts.PreInput = func(state *eval.State) {
		name, fn := sendMessageFunction(s, m)
		state.Extensions[name] = fn
	}
	evalres, errs, _ := repl.EvalStringWithOption(context.Background(), opts, input)
	evalres = strings.TrimSpace(evalres)
	if evalres == "" && len(errs) == 0 {
		evalres = "nil"
	}
	var res string
	if evalres != "" {
		res = "```go\n" + evalres + "\n```\n"
	}
	if len(errs) > 0 {
		res += errorsBlock(errs)
	}
	return res
}

// sendMessageFunction exposes a SendMessage(text) builtin to evaluated code,
// posting the text to the invoking channel as a reply.
func sendMessageFunction(s *discordgo.Session, m *discordgo.Message) (string, object.Extension) {
	cmd := object.Extension{
		Name:     "SendMessage",
		MinArgs:  1,
		MaxArgs:  1,
		ArgTypes: []object.Type{object.STRING},
		Callback: func(_ any, _ string, args []object.Object) object.Object {
			content := args[0].(object.String).Value
			msg := discordgo.MessageSend{
				Content:   content,
				Reference: &discordgo.MessageReference{MessageID: m.ID},
				AllowedMentions: &discordgo.MessageAllowedMentions{
					Parse: []discordgo.AllowedMentionType{},
				},
			}
			response, err := s.ChannelMessageSendComplex(m.ChannelID, &msg)
			if err != nil {
				log.Errf("Error sending message: %v", err)
				return object.Errorf("Error sending message: %v", err)
			}
			return object.String{Value: response.ID}
		},
	}
	return cmd.Name, cmd
}

func (b *Bot) consoleReply(s *discordgo.Session, m *discordgo.Message, response string) {
	runes := []rune(response)
	if len(runes) > MaxMessageLengthInRunes {
		response = string(runes[:MaxMessageLengthInRunes]) +
			fmt.Sprintf("```...truncated from %d characters (%d bytes)...", len(runes), len(response))
		log.S(log.Warning, "truncated console response", log.Any("runes", len(runes)))
	}
	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:   response,
		Reference: &discordgo.MessageReference{MessageID: m.ID},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	})
	if err != nil {
		log.Errf("Error sending console reply: %v", err)
	}
}

func errorsBlock(errs []string) string {
	res := "```diff"
	for i, e := range errs {
		if i >= 2 {
			n := len(errs) - i
			res += fmt.Sprintf("\n...%d more %s...", n, cli.Plural(n, "error"))
			break
		}
		res += "\n-\t" + strings.Join(strings.Split(e, "\n"), "\n-\t")
	}
	res += "\n```"
	return res
}

// RemoveTripleBackticks extracts the code in between triple backticks,
// ignoring the language tag if any. Text outside the blocks is dropped when
// at least one block exists.
func RemoveTripleBackticks(s string) string {
	buf := strings.Builder{}
	first := true
	needNewline := false
	for {
		i := strings.Index(s, "```")
		if i == -1 {
			if first {
				buf.WriteString(s)
			}
			break
		}
		if needNewline {
			buf.WriteString("\n")
		}
		first = false
		s = s[i:]
		s = strings.TrimPrefix(s, "```grol")
		s = strings.TrimPrefix(s, "```go")
		s = strings.TrimPrefix(s, "```js")
		s = strings.TrimPrefix(s, "```")
		j := strings.Index(s, "```")
		if j == -1 {
			buf.WriteString(s)
			break
		}
		needNewline = (s[j-1] != '\n')
		buf.WriteString(s[:j])
		s = s[j+3:]
	}
	return strings.TrimSpace(buf.String())
}

func UptimeString(startTime time.Time) string {
	return DurationString(time.Since(startTime))
}

// DurationString returns a human readable string for a duration.
// Expressed in days, hours, minutes, seconds and 10th of second.
// Days are omitted when 0.
func DurationString(d time.Duration) string {
	rounded := d.Round(100 * time.Millisecond)
	oneDay := 24 * time.Hour
	days := int(rounded / oneDay)
	if days == 0 {
		return rounded.String()
	}
	rounded -= time.Duration(days) * oneDay
	return strconv.Itoa(days) + "d" + rounded.String()
}

const (
	smartQuotes   = "“”" // the two smart double quotes
	smartQuoteLen = len(smartQuotes) / 2
)

// SmartQuotesToRegular turns smart double quotes back into regular quotes so
// pasted code still parses. Quotes preceded by a regular quote or a backslash
// are left alone.
func SmartQuotesToRegular(s string) string {
	idx := strings.IndexAny(s, smartQuotes)
	if idx == -1 || (idx > 0 && (s[idx-1] == '"' || s[idx-1] == '\\')) {
		return s
	}
	buf := make([]byte, 0, len(s)-smartQuoteLen+1) // smart quotes are 3 bytes each
	buf = append(buf, s[:idx]...)
	replaceQuote := func(rel int) {
		buf = append(buf, s[idx:idx+rel]...)
		buf = append(buf, '"')
		idx += rel + smartQuoteLen
	}
	replaceQuote(0)
	for {
		rel := strings.IndexAny(s[idx:], smartQuotes)
		if rel == -1 {
			buf = append(buf, s[idx:]...)
			break
		}
		replaceQuote(rel)
	}
	return string(buf)
}
