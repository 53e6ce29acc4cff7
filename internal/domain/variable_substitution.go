package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RuntimeContext holds the records a message is rendered against. Any slot may be nil.
type RuntimeContext struct {
	Client       map[string]interface{} `json:"client,omitempty"`
	Job          map[string]interface{} `json:"job,omitempty"`
	Technician   map[string]interface{} `json:"technician,omitempty"`
	Company      map[string]interface{} `json:"company,omitempty"`
	Invoice      map[string]interface{} `json:"invoice,omitempty"`
	Organization map[string]interface{} `json:"organization,omitempty"`
}

// Slot returns the record stored under a context slot name
func (c RuntimeContext) Slot(name string) map[string]interface{} {
	switch name {
	case "client":
		return c.Client
	case "job":
		return c.Job
	case "technician":
		return c.Technician
	case "company":
		return c.Company
	case "invoice":
		return c.Invoice
	case "organization":
		return c.Organization
	default:
		return nil
	}
}

// Bindings exposes the raw slots to template engines
func (c RuntimeContext) Bindings() map[string]interface{} {
	out := make(map[string]interface{}, len(contextSlots))
	for _, name := range contextSlots {
		if slot := c.Slot(name); slot != nil {
			out[name] = slot
		}
	}
	return out
}

func (c RuntimeContext) lookup(slot, column string) interface{} {
	m := c.Slot(slot)
	if m == nil {
		return nil
	}
	return m[column]
}

type resolver func(s *Substitutor, ctx RuntimeContext, now time.Time) interface{}

var calculatedResolvers = map[string]resolver{
	"client_first_name": resolveClientFirstName,
	"days_overdue":      resolveDaysOverdue,
	"payment_link":      resolvePaymentLink,
	"current_date":      func(_ *Substitutor, _ RuntimeContext, now time.Time) interface{} { return now },
	"current_time":      func(_ *Substitutor, _ RuntimeContext, now time.Time) interface{} { return now },
	"tomorrow_date":     func(_ *Substitutor, _ RuntimeContext, now time.Time) interface{} { return now.AddDate(0, 0, 1) },
	"job_duration":      resolveJobDuration,
}

// Substitutor fills {{key}} placeholders from a RuntimeContext. It is safe for
// concurrent use.
type Substitutor struct {
	now            func() time.Time
	location       *time.Location
	paymentBaseURL string
}

type SubstitutorOption func(*Substitutor)

// WithClock replaces the wall clock used for calculated dates
func WithClock(now func() time.Time) SubstitutorOption {
	return func(s *Substitutor) { s.now = now }
}

// WithLocation sets the zone dates and times are rendered in
func WithLocation(loc *time.Location) SubstitutorOption {
	return func(s *Substitutor) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithPaymentBaseURL sets the origin payment links are built on
func WithPaymentBaseURL(base string) SubstitutorOption {
	return func(s *Substitutor) { s.paymentBaseURL = strings.TrimRight(base, "/") }
}

// NewSubstitutor creates a substitutor rendering in UTC by default
func NewSubstitutor(opts ...SubstitutorOption) *Substitutor {
	s := &Substitutor{now: time.Now, location: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Substitute replaces every registered {{key}} found in template. Unregistered
// placeholders are left untouched and missing values become "". Resolved values are
// never scanned again, so a value that itself contains {{...}} comes out verbatim.
func (s *Substitutor) Substitute(template string, ctx RuntimeContext) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	now := s.now().In(s.location)
	var pairs []string
	for _, v := range variableRegistry {
		placeholder := v.Placeholder()
		if !strings.Contains(template, placeholder) {
			continue
		}
		pairs = append(pairs, placeholder, s.formatted(v, ctx, now))
	}
	if len(pairs) == 0 {
		return template
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Resolve returns the formatted value of every registered variable
func (s *Substitutor) Resolve(ctx RuntimeContext) map[string]string {
	now := s.now().In(s.location)
	out := make(map[string]string, len(variableRegistry))
	for _, v := range variableRegistry {
		out[v.Key] = s.formatted(v, ctx, now)
	}
	return out
}

func (s *Substitutor) formatted(v Variable, ctx RuntimeContext, now time.Time) string {
	var raw interface{}
	if v.IsCalculated() {
		if r, ok := calculatedResolvers[v.Key]; ok {
			raw = r(s, ctx, now)
		}
	} else if slot, column, ok := v.SourceParts(); ok {
		raw = ctx.lookup(slot, column)
	}
	return s.format(v.Type, raw)
}

func (s *Substitutor) format(t VariableType, raw interface{}) string {
	if raw == nil {
		return ""
	}
	if str, ok := raw.(string); ok && str == "" {
		return ""
	}

	switch t {
	case VariableCurrency:
		if f, ok := toFloat(raw); ok {
			if f < 0 {
				return fmt.Sprintf("-$%.2f", -f)
			}
			return fmt.Sprintf("$%.2f", f)
		}
	case VariableNumber:
		if f, ok := toFloat(raw); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	case VariableDate:
		if tm, ok := s.toTime(raw); ok {
			return tm.Format("1/2/2006")
		}
	case VariableTime:
		if tm, ok := s.toTime(raw); ok {
			return tm.Format("3:04 PM")
		}
	}
	return stringify(raw)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(t))
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// toTime parses timestamps into the substitutor's zone. Values without an offset are
// read as local to that zone, so a bare date never shifts a day.
func (s *Substitutor) toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.In(s.location), true
	case string:
		str := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if tm, err := time.ParseInLocation(layout, str, s.location); err == nil {
				return tm.In(s.location), true
			}
		}
	}
	return time.Time{}, false
}

func resolveClientFirstName(_ *Substitutor, ctx RuntimeContext, _ time.Time) interface{} {
	if first := stringOrEmpty(ctx.lookup("client", "first_name")); first != "" {
		return first
	}
	fields := strings.Fields(stringOrEmpty(ctx.lookup("client", "name")))
	if len(fields) == 0 {
		return nil
	}
	return fields[0]
}

// resolveDaysOverdue counts whole calendar days between the due date and today,
// never below zero
func resolveDaysOverdue(s *Substitutor, ctx RuntimeContext, now time.Time) interface{} {
	due, ok := s.toTime(ctx.lookup("invoice", "due_date"))
	if !ok {
		return nil
	}
	days := civilDay(now).Sub(civilDay(due)).Hours() / 24
	if days < 0 {
		return 0
	}
	return int(math.Round(days))
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// resolvePaymentLink needs a base origin; a relative link is useless in a text message
func resolvePaymentLink(s *Substitutor, ctx RuntimeContext, _ time.Time) interface{} {
	id := stringOrEmpty(ctx.lookup("invoice", "id"))
	if id == "" || s.paymentBaseURL == "" {
		return nil
	}
	return fmt.Sprintf("%s/pay/%s", s.paymentBaseURL, url.PathEscape(id))
}

// resolveJobDuration renders the scheduled span in whole hours, truncated
func resolveJobDuration(s *Substitutor, ctx RuntimeContext, _ time.Time) interface{} {
	start, okStart := s.toTime(ctx.lookup("job", "schedule_start"))
	end, okEnd := s.toTime(ctx.lookup("job", "schedule_end"))
	if !okStart || !okEnd || end.Before(start) {
		return nil
	}

	hours := int(end.Sub(start) / time.Hour)
	if hours == 1 {
		return "1 hour"
	}
	return strconv.Itoa(hours) + " hours"
}

func stringOrEmpty(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return fmt.Sprint(t)
	}
}
