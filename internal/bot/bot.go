package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/internal/domain"
	"github.com/elhs-robotics/krunchbot/internal/logger"
	"github.com/elhs-robotics/krunchbot/internal/notify"
)

// DefaultCommandTimeout bounds the work behind one slash command
const DefaultCommandTimeout = 20 * time.Second

// Responder is the part of *discordgo.Session used to answer interactions
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bot connects the command dispatcher to the Discord gateway
type Bot struct {
	session    *discordgo.Session
	dispatcher *Dispatcher
	appID      string
	guildID    string
	timeout    time.Duration
	log        logrus.FieldLogger
}

// New creates a Discord session for token. The gateway is not opened until Start.
func New(token, appID, guildID string, d *Dispatcher, log logrus.FieldLogger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	return &Bot{
		session:    session,
		dispatcher: d,
		appID:      appID,
		guildID:    guildID,
		timeout:    DefaultCommandTimeout,
		log:        logger.ForComponent(log, "discord"),
	}, nil
}

// Session returns the underlying session, used to post channel messages
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Start opens the gateway, registers the slash commands and blocks until ctx is done
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.WithField("user", r.User.Username).Info("Logged in to Discord")
	})
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.HandleInteraction(ctx, s, i.Interaction)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

// Stop closes the gateway connection
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) registerCommands() error {
	appID := b.appID
	if appID == "" && b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}

	cmds, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, Commands())
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	b.log.WithFields(logrus.Fields{"commands": len(cmds), "guild": b.guildID}).Info("Registered slash commands")
	return nil
}

// HandleInteraction answers one slash command. Slow commands are
// acknowledged first and their reply edited in once ready.
func (b *Bot) HandleInteraction(ctx context.Context, r Responder, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	inv := InvocationFrom(i.ApplicationCommandData())
	log := b.log.WithField("command", inv.Command)

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if !Deferred(inv.Command) {
		reply := b.dispatcher.Handle(ctx, inv)
		err := r.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:         reply.Content,
				Embeds:          embeds(reply.Embed),
				AllowedMentions: mentions(reply),
			},
		})
		if err != nil {
			log.WithError(err).Error("Failed to reply")
		}
		return
	}

	err := r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.WithError(err).Error("Failed to acknowledge command")
		return
	}

	reply := b.dispatcher.Handle(ctx, inv)
	if _, err := r.InteractionResponseEdit(i, WebhookEdit(reply)); err != nil {
		log.WithError(err).Error("Failed to edit reply")
	}
}

// WebhookEdit converts a reply into the edit that replaces the acknowledgment
func WebhookEdit(reply Reply) *discordgo.WebhookEdit {
	content := reply.Content
	embedList := embeds(reply.Embed)
	if embedList == nil {
		embedList = []*discordgo.MessageEmbed{}
	}
	return &discordgo.WebhookEdit{
		Content:         &content,
		Embeds:          &embedList,
		AllowedMentions: mentions(reply),
	}
}

func embeds(e *domain.Embed) []*discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	return []*discordgo.MessageEmbed{notify.ToDiscordEmbed(e)}
}

func mentions(reply Reply) *discordgo.MessageAllowedMentions {
	return notify.AllowedMentions(domain.Announcement{MentionEveryone: reply.MentionEveryone})
}
