package i18n

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supported = []language.Tag{
	language.Dutch,
	language.English,
}

// Localizer resolves the shopper locale and renders user-facing messages.
type Localizer struct {
	matcher language.Matcher
}

// NewLocalizer constructs a Localizer supporting Dutch (default) and English.
func NewLocalizer() *Localizer {
	return &Localizer{matcher: language.NewMatcher(supported)}
}

// Match resolves an Accept-Language header value to a supported locale. Empty
// or unparseable input falls back to Dutch.
func (l *Localizer) Match(acceptLanguage string) language.Tag {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return language.Dutch
	}
	tag, _ := language.MatchStrings(l.matcher, acceptLanguage)
	// Matcher returns extended tags such as nl-u-rg-nlzzzz, reduce to the base.
	base, _ := tag.Base()
	switch base.String() {
	case "en":
		return language.English
	default:
		return language.Dutch
	}
}

// CouponMessage renders the shopper-facing message for a coupon rejection
// reason. Bound carries the offending order total bound for min/max reasons.
func (l *Localizer) CouponMessage(tag language.Tag, reason string, bound decimal.Decimal) string {
	amount := formatAmount(tag, bound)
	if tag == language.English {
		switch reason {
		case "empty_code":
			return "Enter a discount code."
		case "expired":
			return "This discount code has expired."
		case "below_minimum":
			return "A minimum order total of " + amount + " is required."
		case "above_maximum":
			return "The maximum order total of " + amount + " was exceeded."
		case "usage_exceeded":
			return "This discount code is no longer valid."
		default:
			return "Invalid discount code."
		}
	}
	switch reason {
	case "empty_code":
		return "Voer een kortingscode in."
	case "expired":
		return "Deze kortingscode is verlopen."
	case "below_minimum":
		return "Minimaal bestelbedrag van " + amount + " vereist."
	case "above_maximum":
		return "Maximaal bestelbedrag van " + amount + " overschreden."
	case "usage_exceeded":
		return "Deze kortingscode is niet meer geldig."
	default:
		return "Ongeldige kortingscode."
	}
}

// PaymentFailureMessage renders the shopper-facing payment failure message.
func (l *Localizer) PaymentFailureMessage(tag language.Tag) string {
	if tag == language.English {
		return "Your payment failed. Please try again or choose a different payment method."
	}
	return "Je betaling is mislukt. Probeer het opnieuw of kies een andere betaalmethode."
}

// formatAmount renders a euro amount with locale-aware digit separators.
func formatAmount(tag language.Tag, amount decimal.Decimal) string {
	printer := message.NewPrinter(tag)
	return printer.Sprintf("€%.2f", amount.InexactFloat64())
}
