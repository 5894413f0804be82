package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/internal/clients/gist"
	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// DefaultGistFile is the calendar file inside the gist
const DefaultGistFile = "Calander.json"

// GistStore keeps the calendar as a JSON array in a GitHub gist file
type GistStore struct {
	client   *gist.Client
	filename string
	log      logrus.FieldLogger
}

// NewGistStore creates a store backed by filename in the client's gist
func NewGistStore(client *gist.Client, filename string, log logrus.FieldLogger) *GistStore {
	if filename == "" {
		filename = DefaultGistFile
	}
	return &GistStore{
		client:   client,
		filename: filename,
		log:      log.WithField("store", "gist"),
	}
}

func (s *GistStore) Name() string { return "gist" }

func (s *GistStore) LoadAll(ctx context.Context) ([]domain.Event, error) {
	if !s.client.IsConfigured() {
		return nil, domain.StoreError("load gist", errors.New("GIST_ID or GITHUB_TOKEN not set"))
	}

	content, err := s.client.GetFile(ctx, s.filename)
	if err != nil {
		return nil, domain.StoreError("load gist", err)
	}

	if strings.TrimSpace(content) == "" {
		s.log.WithField("file", s.filename).Info("Calendar file empty, starting with no events")
		return []domain.Event{}, nil
	}

	events, err := DecodeEvents([]byte(content))
	if err != nil {
		return nil, domain.StoreError("load gist", err)
	}

	s.log.WithFields(logrus.Fields{"file": s.filename, "events": len(events)}).Debug("Loaded calendar")
	return events, nil
}

func (s *GistStore) SaveAll(ctx context.Context, events []domain.Event) error {
	if !s.client.IsConfigured() {
		return domain.StoreError("save gist", errors.New("GIST_ID or GITHUB_TOKEN not set"))
	}

	content, err := EncodeEvents(events)
	if err != nil {
		return domain.StoreError("save gist", err)
	}

	if err := s.client.UpdateFile(ctx, s.filename, string(content)); err != nil {
		return domain.StoreError("save gist", err)
	}

	s.log.WithFields(logrus.Fields{"file": s.filename, "events": len(events)}).Debug("Saved calendar")
	return nil
}

// EncodeEvents renders events as a 2-space indented JSON array without
// HTML escaping or a trailing newline.
func EncodeEvents(events []domain.Event) ([]byte, error) {
	if events == nil {
		events = []domain.Event{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeEvents parses a JSON array of events
func DecodeEvents(data []byte) ([]domain.Event, error) {
	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}
