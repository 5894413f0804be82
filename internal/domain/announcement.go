package domain

// Brand constants shared by every embed
const (
	EmbedColor     = 0x1E90FF
	EmbedThumbnail = "https://static.wixstatic.com/media/8ce68c_fd250bd70999440dbaf90da0a428f3be~mv2.png/v1/fit/w_2500,h_1330,al_c/8ce68c_fd250bd70999440dbaf90da0a428f3be~mv2.png"
	EmbedFooter    = "What time is it? Krunch Time!"
)

// EmbedField is a named block inside an embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is a transport-neutral rich message
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      string       `json:"footer,omitempty"`
}

// AddField appends a field and returns the embed for chaining
func (e *Embed) AddField(name, value string, inline bool) *Embed {
	e.Fields = append(e.Fields, EmbedField{Name: name, Value: value, Inline: inline})
	return e
}

// Announcement is a message ready to be delivered to a chat
type Announcement struct {
	Content string
	Embed   *Embed
	// MentionEveryone allows @everyone to ping the channel
	MentionEveryone bool
}

// IsEmpty reports whether there is nothing to send
func (a Announcement) IsEmpty() bool {
	return a.Content == "" && a.Embed == nil
}
