package domain

import (
	"fmt"
	"regexp"
	"strings"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

func (c Channel) IsValid() bool {
	return c == ChannelSMS || c == ChannelEmail
}

type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekOrder = map[Weekday]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3, Friday: 4, Saturday: 5, Sunday: 6,
}

func (d Weekday) IsValid() bool {
	_, ok := weekOrder[d]
	return ok
}

// Business hours shown to users when BusinessHoursOnly is set; the execution engine owns
// the authoritative schedule.
const (
	BusinessHoursStart = "08:00"
	BusinessHoursEnd   = "18:00"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// TimeRange holds HH:MM bounds on a 24h clock
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DeliveryWindow struct {
	BusinessHoursOnly bool       `json:"business_hours_only"`
	AllowedDays       []Weekday  `json:"allowed_days,omitempty"`
	TimeRange         *TimeRange `json:"time_range,omitempty"`
}

func (w DeliveryWindow) clone() DeliveryWindow {
	out := w
	out.AllowedDays = append([]Weekday(nil), w.AllowedDays...)
	if w.TimeRange != nil {
		tr := *w.TimeRange
		out.TimeRange = &tr
	}
	return out
}

// Normalize lowercases and deduplicates AllowedDays and sorts them Monday first.
// Unrecognized values are kept at the end so validation can report them.
func (w DeliveryWindow) Normalize() DeliveryWindow {
	out := w.clone()
	if len(out.AllowedDays) == 0 {
		out.AllowedDays = nil
		return out
	}

	var known [7]bool
	var unknown []Weekday
	seen := map[Weekday]bool{}
	for _, d := range out.AllowedDays {
		d = Weekday(strings.ToLower(strings.TrimSpace(string(d))))
		if seen[d] {
			continue
		}
		seen[d] = true
		if i, ok := weekOrder[d]; ok {
			known[i] = true
		} else {
			unknown = append(unknown, d)
		}
	}

	days := make([]Weekday, 0, len(seen))
	for _, d := range []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday} {
		if known[weekOrder[d]] {
			days = append(days, d)
		}
	}
	out.AllowedDays = append(days, unknown...)
	return out
}

// Validate reports every problem with the window instead of stopping at the first
func (w DeliveryWindow) Validate() []ValidationIssue {
	var issues []ValidationIssue
	for _, d := range w.AllowedDays {
		if !d.IsValid() {
			issues = append(issues, newIssue(CodeInvalidWeekday, "delivery_window.allowed_days",
				fmt.Sprintf("%q is not a day of the week", d)))
		}
	}
	if tr := w.TimeRange; tr != nil {
		switch {
		case !clockPattern.MatchString(tr.Start) || !clockPattern.MatchString(tr.End):
			issues = append(issues, newIssue(CodeInvalidTimeRange, "delivery_window.time_range",
				"Times must use the HH:MM 24-hour format"))
		case tr.Start >= tr.End:
			issues = append(issues, newIssue(CodeInvalidTimeRange, "delivery_window.time_range",
				"Start time must be before end time"))
		}
	}
	return issues
}

const (
	MinFallbackDelayHours     = 1
	MaxFallbackDelayHours     = 48
	DefaultFallbackDelayHours = 24
)

type MultiChannelConfig struct {
	PrimaryChannel     Channel `json:"primary_channel"`
	FallbackEnabled    bool    `json:"fallback_enabled"`
	FallbackChannel    Channel `json:"fallback_channel,omitempty"`
	FallbackDelayHours int     `json:"fallback_delay_hours,omitempty"`
}

// DefaultMultiChannelConfig pairs a primary channel with the other one as a disabled fallback
func DefaultMultiChannelConfig(primary Channel) MultiChannelConfig {
	fallback := ChannelEmail
	if primary == ChannelEmail {
		fallback = ChannelSMS
	}
	return MultiChannelConfig{
		PrimaryChannel:     primary,
		FallbackChannel:    fallback,
		FallbackDelayHours: DefaultFallbackDelayHours,
	}
}

// Validate checks the channels and the fallback delay
func (m MultiChannelConfig) Validate() []ValidationIssue {
	var issues []ValidationIssue
	if !m.PrimaryChannel.IsValid() {
		issues = append(issues, newIssue(CodeInvalidChannel, "multi_channel.primary_channel",
			fmt.Sprintf("Unsupported channel %q", m.PrimaryChannel)))
	}
	if !m.FallbackEnabled {
		return issues
	}
	if !m.FallbackChannel.IsValid() {
		issues = append(issues, newIssue(CodeInvalidChannel, "multi_channel.fallback_channel",
			fmt.Sprintf("Unsupported channel %q", m.FallbackChannel)))
	} else if m.FallbackChannel == m.PrimaryChannel {
		issues = append(issues, newIssue(CodeFallbackSameChannel, "multi_channel.fallback_channel",
			"Fallback channel must differ from the primary channel"))
	}
	if m.FallbackDelayHours < MinFallbackDelayHours || m.FallbackDelayHours > MaxFallbackDelayHours {
		issues = append(issues, newIssue(CodeFallbackDelayInRange, "multi_channel.fallback_delay_hours",
			fmt.Sprintf("Fallback delay must be between %d and %d hours", MinFallbackDelayHours, MaxFallbackDelayHours)))
	}
	return issues
}

// ClampFallbackDelay pins a widget value into the accepted range
func ClampFallbackDelay(hours int) int {
	if hours < MinFallbackDelayHours {
		return MinFallbackDelayHours
	}
	if hours > MaxFallbackDelayHours {
		return MaxFallbackDelayHours
	}
	return hours
}
