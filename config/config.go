package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// Store kinds
const (
	StoreGist   = "gist"
	StoreCalDAV = "caldav"
	StoreSQLite = "sqlite"
)

// Policy holds the meeting and forecast settings that may come from a YAML file
type Policy struct {
	// MeetingSummary identifies the meeting among the day's events.
	// Empty means the first event of the day counts.
	MeetingSummary  string  `yaml:"meeting_summary"`
	WeekdaySchedule string  `yaml:"weekday_schedule"`
	WeekendSchedule string  `yaml:"weekend_schedule"`
	SkipDays        string  `yaml:"skip_days"`
	Latitude        float64 `yaml:"latitude"`
	Longitude       float64 `yaml:"longitude"`
	Units           string  `yaml:"units"`
}

// DefaultPolicy returns the Krunch robotics meeting defaults
func DefaultPolicy() Policy {
	return Policy{
		MeetingSummary:  "Robotics Meeting",
		WeekdaySchedule: "0 16 * * 1-6",
		WeekendSchedule: "0 8 * * 0",
		SkipDays:        "friday,saturday",
		Latitude:        28.1113128504228,
		Longitude:       -82.69373019226934,
		Units:           "imperial",
	}
}

// Normalize fills zero values with defaults. MeetingSummary and SkipDays
// are left alone since empty is meaningful for both.
func (p *Policy) Normalize() {
	def := DefaultPolicy()
	if p.WeekdaySchedule == "" {
		p.WeekdaySchedule = def.WeekdaySchedule
	}
	if p.WeekendSchedule == "" {
		p.WeekendSchedule = def.WeekendSchedule
	}
	if p.Latitude == 0 && p.Longitude == 0 {
		p.Latitude, p.Longitude = def.Latitude, def.Longitude
	}
	if p.Units == "" {
		p.Units = def.Units
	}
}

type Config struct {
	DiscordToken string
	DiscordAppID string
	GuildID      string
	ChannelID    string

	EventStore string

	GistID      string
	GitHubToken string
	GistFile    string

	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string

	DatabasePath string

	TomorrowAPIKey string

	TelegramToken  string
	TelegramChatID int64

	APIUsername string
	APIPassword string
	ServerPort  string

	LogLevel    string
	Timezone    *time.Location
	HTTPTimeout time.Duration

	Policy Policy
}

// Load reads .env (if present), the environment and the optional policy file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config using getenv for lookups
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	var errs *multierror.Error

	cfg := &Config{
		DiscordToken:   env("DISCORD_TOKEN", ""),
		DiscordAppID:   env("DISCORD_APP_ID", ""),
		GuildID:        env("DISCORD_GUILD_ID", ""),
		ChannelID:      env("CHANNEL_ID", ""),
		GistID:         env("GIST_ID", ""),
		GitHubToken:    env("GITHUB_TOKEN", ""),
		GistFile:       env("GIST_FILE", "Calander.json"),
		CalDAVURL:      env("CALDAV_URL", ""),
		CalDAVUsername: env("CALDAV_USERNAME", ""),
		CalDAVPassword: env("CALDAV_PASSWORD", ""),
		CalDAVCalendar: env("CALDAV_CALENDAR", ""),
		DatabasePath:   env("DATABASE_PATH", "./data/krunchbot.db"),
		TomorrowAPIKey: env("TOMORROW_IO_API_KEY", ""),
		TelegramToken:  env("TELEGRAM_TOKEN", ""),
		APIUsername:    env("API_USERNAME", ""),
		APIPassword:    env("API_PASSWORD", ""),
		ServerPort:     env("SERVER_PORT", "8080"),
		LogLevel:       env("LOG_LEVEL", "info"),
		Timezone:       time.Local,
		HTTPTimeout:    5 * time.Second,
	}

	defaultStore := StoreSQLite
	if cfg.GistID != "" {
		defaultStore = StoreGist
	}
	cfg.EventStore = strings.ToLower(env("EVENT_STORE", defaultStore))

	if tz := env("TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid TIMEZONE: %w", err))
		} else {
			cfg.Timezone = loc
		}
	}

	if v := env("HTTP_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("invalid HTTP_TIMEOUT %q", v))
		} else {
			cfg.HTTPTimeout = d
		}
	}

	if v := env("TELEGRAM_CHAT_ID", ""); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = multierror.Append(errs, errors.New("TELEGRAM_CHAT_ID must be a number"))
		} else {
			cfg.TelegramChatID = id
		}
	}

	policy := DefaultPolicy()
	if path := env("POLICY_FILE", ""); path != "" {
		p, err := LoadPolicy(path)
		if err != nil {
			errs = multierror.Append(errs, err)
		} else {
			policy = *p
		}
	}
	applyPolicyEnv(&policy, getenv, &errs)
	cfg.Policy = policy

	if err := cfg.validate(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPolicy reads a YAML policy file and fills in defaults
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func applyPolicyEnv(p *Policy, getenv func(string) string, errs **multierror.Error) {
	if v, ok := lookup(getenv, "MEETING_SUMMARY"); ok {
		p.MeetingSummary = v
	}
	if v, ok := lookup(getenv, "WEEKDAY_SCHEDULE"); ok {
		p.WeekdaySchedule = v
	}
	if v, ok := lookup(getenv, "WEEKEND_SCHEDULE"); ok {
		p.WeekendSchedule = v
	}
	if v, ok := lookup(getenv, "SKIP_DAYS"); ok {
		p.SkipDays = v
	}
	if v, ok := lookup(getenv, "WEATHER_UNITS"); ok {
		p.Units = v
	}
	for key, dst := range map[string]*float64{"LATITUDE": &p.Latitude, "LONGITUDE": &p.Longitude} {
		v, ok := lookup(getenv, key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = multierror.Append(*errs, fmt.Errorf("%s must be a number", key))
			continue
		}
		*dst = f
	}
}

func lookup(getenv func(string) string, key string) (string, bool) {
	v := strings.TrimSpace(getenv(key))
	return v, v != ""
}

func (c *Config) validate() error {
	var errs *multierror.Error

	if c.DiscordToken == "" {
		errs = multierror.Append(errs, errors.New("DISCORD_TOKEN is required"))
	}

	switch c.EventStore {
	case StoreGist:
		if c.GistID == "" || c.GitHubToken == "" {
			errs = multierror.Append(errs, errors.New("gist store needs GIST_ID and GITHUB_TOKEN"))
		}
	case StoreCalDAV:
		if c.CalDAVUsername == "" || c.CalDAVPassword == "" {
			errs = multierror.Append(errs, errors.New("caldav store needs CALDAV_USERNAME and CALDAV_PASSWORD"))
		}
	case StoreSQLite:
		if c.DatabasePath == "" {
			errs = multierror.Append(errs, errors.New("sqlite store needs DATABASE_PATH"))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown EVENT_STORE %q", c.EventStore))
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{"weekday_schedule": c.Policy.WeekdaySchedule, "weekend_schedule": c.Policy.WeekendSchedule} {
		if _, err := parser.Parse(spec); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid %s %q: %w", name, spec, err))
		}
	}

	if _, err := domain.ParseWeekdayList(c.Policy.SkipDays); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid skip_days: %w", err))
	}

	if c.Policy.Latitude < -90 || c.Policy.Latitude > 90 {
		errs = multierror.Append(errs, fmt.Errorf("latitude %v out of range", c.Policy.Latitude))
	}
	if c.Policy.Longitude < -180 || c.Policy.Longitude > 180 {
		errs = multierror.Append(errs, fmt.Errorf("longitude %v out of range", c.Policy.Longitude))
	}

	switch c.Policy.Units {
	case "imperial", "metric":
	default:
		errs = multierror.Append(errs, fmt.Errorf("units must be imperial or metric, got %q", c.Policy.Units))
	}

	return errs.ErrorOrNil()
}

// SkipDays returns the parsed skip weekdays
func (c *Config) SkipDays() []time.Weekday {
	days, _ := domain.ParseWeekdayList(c.Policy.SkipDays)
	return days
}

// TelegramEnabled returns true if the Telegram mirror is configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// APIEnabled returns true if the /api routes are served
func (c *Config) APIEnabled() bool {
	return c.APIUsername != "" && c.APIPassword != ""
}
