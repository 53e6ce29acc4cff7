package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/pkg/tracing"
)

// Preview renders the message the way it would be sent and reports how long it is
func (s *AutomationService) Preview(ctx context.Context, req domain.PreviewRequest) (*domain.PreviewResult, error) {
	return tracing.TraceMethodWithResult(ctx, "AutomationService", "Preview", func(ctx context.Context) (*domain.PreviewResult, error) {
		if err := req.Validate(); err != nil {
			return nil, err
		}

		body, err := s.renderMessage(ctx, req.Body, req.Context, req.RenderLiquid)
		if err != nil {
			return nil, err
		}
		subject, err := s.renderMessage(ctx, req.Subject, req.Context, req.RenderLiquid)
		if err != nil {
			return nil, err
		}

		plain := body
		if req.Channel == domain.ChannelEmail {
			plain = htmlToText(body)
		}

		_, unknown := domain.ExtractPlaceholders(req.Subject + "\n" + req.Body)
		if unknown == nil {
			unknown = []string{}
		}

		result := &domain.PreviewResult{
			Subject:             subject,
			Body:                body,
			PlainText:           plain,
			CharacterCount:      utf8.RuneCountInString(plain),
			UnknownPlaceholders: unknown,
		}
		if req.Channel == domain.ChannelSMS {
			result.SMSSegments = smsSegments(plain)
		}
		return result, nil
	})
}

// renderMessage substitutes variables, or evaluates the text as a liquid template
// with every resolved variable bound at the top level next to the raw records
func (s *AutomationService) renderMessage(ctx context.Context, text string, rc domain.RuntimeContext, useLiquid bool) (string, error) {
	if text == "" {
		return "", nil
	}
	if !useLiquid {
		return s.substitutor.Substitute(text, rc), nil
	}

	bindings := rc.Bindings()
	for key, value := range s.substitutor.Resolve(rc) {
		bindings[key] = value
	}
	out, err := s.renderer.Render(ctx, text, bindings)
	if err != nil {
		return "", domain.NewValidationError(fmt.Sprintf("template error: %v", err))
	}
	return out, nil
}

// htmlToText drops markup, scripts and styles and collapses whitespace
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}

const (
	gsm7Basic    = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"
	gsm7Extended = "\f^{}\\[~]|€"
)

// smsSegments counts the parts a carrier splits text into. GSM-7 messages fit 160
// septets (153 per part once split), anything else is UCS-2 with 70 (67 per part).
func smsSegments(text string) int {
	if text == "" {
		return 0
	}

	septets := 0
	gsm := true
	for _, r := range text {
		switch {
		case strings.ContainsRune(gsm7Basic, r):
			septets++
		case strings.ContainsRune(gsm7Extended, r):
			septets += 2
		default:
			gsm = false
		}
		if !gsm {
			break
		}
	}

	if gsm {
		return parts(septets, 160, 153)
	}
	return parts(len(utf16.Encode([]rune(text))), 70, 67)
}

func parts(units, single, multi int) int {
	if units <= single {
		return 1
	}
	return (units + multi - 1) / multi
}
