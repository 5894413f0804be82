package bot

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

func dayChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  d.String(),
			Value: strings.ToLower(d.String()),
		})
	}
	return choices
}

// Commands returns the slash command definitions registered with Discord
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CmdCalendarAdd,
			Description: "Adds an event to the calendar.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "summary", Description: "Event summary/title", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "date", Description: "Date (YYYY-MM-DD)", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "start_time", Description: "Start time (hh:mm AM/PM)", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "end_time", Description: "End time (hh:mm AM/PM)", Required: true},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "weekly", Description: "Should this event repeat weekly?"},
			},
		},
		{
			Name:        CmdCalendarRemove,
			Description: "Removes all matching events from the calendar.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "summary", Description: "Event summary/title", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "date", Description: "Date of the event (YYYY-MM-DD)"},
			},
		},
		{
			Name:        CmdCalendarCheck,
			Description: "Checks whether there is a meeting today, or lists the meetings on a weekday.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "day", Description: "Day of the week", Choices: dayChoices()},
			},
		},
		{
			Name:        CmdCalendarList,
			Description: "Lists current and upcoming meetings.",
		},
		{
			Name:        CmdForecast,
			Description: "Replies with the weather forecast for the meeting.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "day", Description: "Day of the week (e.g. friday)", Choices: dayChoices()},
			},
		},
		{
			Name:        CmdTime,
			Description: "What time is it?",
		},
	}
}

// InvocationFrom reads a Discord slash command into an Invocation
func InvocationFrom(data discordgo.ApplicationCommandInteractionData) Invocation {
	inv := Invocation{Command: data.Name}
	for _, opt := range data.Options {
		switch opt.Name {
		case "day":
			inv.Options.Day = opt.StringValue()
		case "summary":
			inv.Options.Summary = opt.StringValue()
		case "date":
			inv.Options.Date = opt.StringValue()
		case "start_time":
			inv.Options.StartTime = opt.StringValue()
		case "end_time":
			inv.Options.EndTime = opt.StringValue()
		case "weekly":
			inv.Options.Weekly = opt.BoolValue()
		}
	}
	return inv
}
