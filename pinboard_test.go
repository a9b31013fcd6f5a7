package main

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func TestPinEmbed(t *testing.T) {
	pinned := &discordgo.Message{
		Content:   "a very good message",
		Timestamp: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Author: &discordgo.User{
			Username:      "astrea",
			GlobalName:    "Astrea",
			Discriminator: "0",
		},
		Attachments: []*discordgo.MessageAttachment{
			{Filename: "cat.png", URL: "https://cdn.example/cat.png"},
			{Filename: "dog.jpg", URL: "https://cdn.example/dog.jpg"},
		},
	}
	embed := pinEmbed(pinned, 0x7289DA)
	if embed.Description != "a very good message" {
		t.Errorf("description = %q", embed.Description)
	}
	if embed.Color != 0x7289DA {
		t.Errorf("color = %#x", embed.Color)
	}
	if embed.Author == nil || embed.Author.Name != "Astrea (astrea)" {
		t.Errorf("author = %+v, want display name plus tag", embed.Author)
	}
	if embed.Image == nil || embed.Image.URL != "https://cdn.example/cat.png" {
		t.Errorf("image = %+v, want first attachment", embed.Image)
	}
	if len(embed.Fields) != 1 || embed.Fields[0].Name != "Attachments" {
		t.Fatalf("fields = %+v", embed.Fields)
	}
	wantLinks := "[cat.png](https://cdn.example/cat.png)\n[dog.jpg](https://cdn.example/dog.jpg)"
	if embed.Fields[0].Value != wantLinks {
		t.Errorf("attachment links = %q, want %q", embed.Fields[0].Value, wantLinks)
	}
	if !strings.HasPrefix(embed.Timestamp, "2026-03-04T05:06:07") {
		t.Errorf("timestamp = %q", embed.Timestamp)
	}
}

func TestPinEmbedEmptyContent(t *testing.T) {
	pinned := &discordgo.Message{
		Timestamp: time.Now(),
		Author:    &discordgo.User{Username: "plain", Discriminator: "1234"},
	}
	embed := pinEmbed(pinned, 0)
	if embed.Description != "*See original message for content.*" {
		t.Errorf("description = %q", embed.Description)
	}
	if embed.Author.Name != "plain (plain#1234)" {
		t.Errorf("author = %q, want username with tag", embed.Author.Name)
	}
	if embed.Image != nil || len(embed.Fields) != 0 {
		t.Errorf("unexpected attachment parts: %+v %+v", embed.Image, embed.Fields)
	}
}
