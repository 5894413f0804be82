package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// ChannelMessenger is the part of *discordgo.Session used to post messages
type ChannelMessenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordChannel posts announcements to one text channel
type DiscordChannel struct {
	session   ChannelMessenger
	channelID string
}

// NewDiscordChannel creates a sink for channelID
func NewDiscordChannel(session ChannelMessenger, channelID string) *DiscordChannel {
	return &DiscordChannel{session: session, channelID: channelID}
}

func (d *DiscordChannel) Send(ctx context.Context, a domain.Announcement) error {
	if a.IsEmpty() {
		return nil
	}

	msg := &discordgo.MessageSend{
		Content:         a.Content,
		AllowedMentions: AllowedMentions(a),
	}
	if a.Embed != nil {
		msg.Embeds = []*discordgo.MessageEmbed{ToDiscordEmbed(a.Embed)}
	}

	if _, err := d.session.ChannelMessageSendComplex(d.channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("post to channel %s: %w", d.channelID, err)
	}
	return nil
}

// AllowedMentions lets @everyone ping only when the announcement asks for it
func AllowedMentions(a domain.Announcement) *discordgo.MessageAllowedMentions {
	m := &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
	if a.MentionEveryone {
		m.Parse = []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone}
	}
	return m
}

// ToDiscordEmbed converts a domain embed to its Discord form
func ToDiscordEmbed(e *domain.Embed) *discordgo.MessageEmbed {
	if e == nil {
		return nil
	}

	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Thumbnail != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return out
}
