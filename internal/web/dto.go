package web

import (
	"time"

	"monthcal/internal/event"
	"monthcal/internal/palette"
)

// monthResponse is the JSON shape of /api/month.
type monthResponse struct {
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	WeekStart string   `json:"week_start"`
	Timezone  string   `json:"timezone"`
	Offset    int      `json:"offset"`
	Days      []dayDTO `json:"days"`
}

// dayDTO is one grid cell. Starting lists the IDs of events that start on
// this day within the month; Segments covers everything visible on it.
type dayDTO struct {
	Date     string       `json:"date"`
	InMonth  bool         `json:"in_month"`
	Starting []string     `json:"starting"`
	Segments []segmentDTO `json:"segments"`
}

type segmentDTO struct {
	EventID      string    `json:"event_id"`
	Kind         string    `json:"kind"`
	Text         string    `json:"text"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	AllDay       bool      `json:"all_day"`
	ClippedStart bool      `json:"clipped_start"`
	ClippedEnd   bool      `json:"clipped_end"`
	Color        string    `json:"color"`
	Background   string    `json:"background"`
	TextColor    string    `json:"text_color"`

	// BackgroundSolid is Background composited over white, for clients
	// without alpha support.
	BackgroundSolid string `json:"background_solid"`
}

type eventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID       string    `json:"id"`
	SourceID string    `json:"source_id"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	AllDay   bool      `json:"all_day"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Color    string    `json:"color"`
}

func toSegmentDTO(p event.Placed) segmentDTO {
	iv := p.DateInterval()
	colors := p.Colors()
	return segmentDTO{
		EventID:         p.Segment.OwnerEventID,
		Kind:            p.Kind().String(),
		Text:            p.Text(),
		Start:           iv.Start,
		End:             iv.End,
		AllDay:          p.AllDay(),
		ClippedStart:    p.Segment.ClippedStart,
		ClippedEnd:      p.Segment.ClippedEnd,
		Color:           colors.Color.Hex(),
		Background:      colors.Background.CSS(),
		BackgroundSolid: colors.Background.Flatten(palette.White).Hex(),
		TextColor:       colors.Text.Hex(),
	}
}
