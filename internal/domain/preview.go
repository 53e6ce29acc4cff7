package domain

import "github.com/asaskevich/govalidator"

// PreviewRequest renders a message against sample or real context data
type PreviewRequest struct {
	Subject string         `json:"subject,omitempty"`
	Body    string         `json:"body"`
	Channel Channel        `json:"channel,omitempty"`
	Context RuntimeContext `json:"context"`
	// RenderLiquid evaluates {% %} blocks with the resolved variables bound
	RenderLiquid bool `json:"render_liquid,omitempty"`
}

// Validate requires a body and checks the channel and any client email address
func (r *PreviewRequest) Validate() error {
	if r.Body == "" {
		return NewValidationError("body is required")
	}
	if r.Channel == "" {
		r.Channel = ChannelSMS
	}
	if !r.Channel.IsValid() {
		return NewValidationError("channel must be sms or email")
	}
	if r.Channel == ChannelEmail {
		if email, ok := r.Context.Client["email"].(string); ok && email != "" && !govalidator.IsEmail(email) {
			return NewValidationError("client email is not a valid address")
		}
	}
	return nil
}

type PreviewResult struct {
	Subject             string   `json:"subject,omitempty"`
	Body                string   `json:"body"`
	PlainText           string   `json:"plain_text"`
	CharacterCount      int      `json:"character_count"`
	SMSSegments         int      `json:"sms_segments"`
	UnknownPlaceholders []string `json:"unknown_placeholders"`
}
