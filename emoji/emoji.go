// Package emoji parses Discord's inline custom emoji markup and builds CDN
// asset URLs from the parsed references.
package emoji

import (
	"regexp"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/AstreaTSS/Cherub/usererr"
)

// Inline token grammar: <a:name:id> for animated, <:name:id> for static.
// Names are 1-32 word characters, ids are 15-20 digit snowflakes.
var (
	tokenRe    = regexp.MustCompile(`<(a?):([A-Za-z0-9_]{1,32}):([0-9]{15,20})>`)
	anchoredRe = regexp.MustCompile(`^<(a?):([A-Za-z0-9_]{1,32}):([0-9]{15,20})>`)
)

// Reference identifies a custom emoji on the platform. The ID alone
// determines the uploaded asset; Name is display only.
type Reference struct {
	ID       uint64
	Name     string
	Animated bool
}

// Parse converts a single command argument into a Reference. The token must
// appear at the start of the argument.
func Parse(arg string) (Reference, error) {
	m := anchoredRe.FindStringSubmatch(arg)
	if m == nil {
		return Reference{}, usererr.New(usererr.NotAnEmoji,
			"Couldn't convert %q to a Discord emoji.", arg)
	}
	ref, ok := fromMatch(m)
	if !ok {
		return Reference{}, usererr.New(usererr.NotAnEmoji,
			"Couldn't convert %q to a Discord emoji.", arg)
	}
	return ref, nil
}

// Scan returns every inline token in content, in order of appearance,
// duplicates included.
func Scan(content string) []Reference {
	matches := tokenRe.FindAllStringSubmatch(content, -1)
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		if ref, ok := fromMatch(m); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Dedup drops references whose ID was already seen, keeping first-seen order.
func Dedup(refs []Reference) []Reference {
	seen := make(map[uint64]bool, len(refs))
	out := make([]Reference, 0, len(refs))
	for _, r := range refs {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// fromMatch reports false when the id, while all digits, overflows uint64;
// such tokens cannot name a real snowflake and must not be silently altered.
func fromMatch(m []string) (Reference, bool) {
	id, err := strconv.ParseUint(m[3], 10, 64)
	if err != nil {
		return Reference{}, false
	}
	return Reference{
		ID:       id,
		Name:     m[2],
		Animated: m[1] == "a",
	}, true
}

// Ext is the CDN asset extension: gif when animated, png otherwise.
func (r Reference) Ext() string {
	if r.Animated {
		return "gif"
	}
	return "png"
}

// URL builds the CDN asset URL for the emoji.
func (r Reference) URL() string {
	return discordgo.EndpointCDN + "emojis/" + strconv.FormatUint(r.ID, 10) + "." + r.Ext()
}

// Token reconstructs the inline markup for the reference.
func (r Reference) Token() string {
	prefix := "<:"
	if r.Animated {
		prefix = "<a:"
	}
	return prefix + r.Name + ":" + strconv.FormatUint(r.ID, 10) + ">"
}

func (r Reference) String() string {
	return r.Token()
}
