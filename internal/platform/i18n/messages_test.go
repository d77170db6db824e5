package i18n

import (
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

func TestMatchDefaultsToDutch(t *testing.T) {
	l := NewLocalizer()

	cases := []struct {
		header string
		want   language.Tag
	}{
		{"", language.Dutch},
		{"nl-NL,nl;q=0.9", language.Dutch},
		{"en-GB,en;q=0.8", language.English},
		{"en-US", language.English},
		{"de-DE", language.Dutch},
		{"garbage;;;", language.Dutch},
	}
	for _, tc := range cases {
		if got := l.Match(tc.header); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}

func TestCouponMessagesDutch(t *testing.T) {
	l := NewLocalizer()

	if got := l.CouponMessage(language.Dutch, "not_found", decimal.Zero); got != "Ongeldige kortingscode." {
		t.Errorf("unexpected not_found message: %q", got)
	}
	if got := l.CouponMessage(language.Dutch, "expired", decimal.Zero); got != "Deze kortingscode is verlopen." {
		t.Errorf("unexpected expired message: %q", got)
	}
	got := l.CouponMessage(language.Dutch, "below_minimum", decimal.RequireFromString("25"))
	if got != "Minimaal bestelbedrag van €25,00 vereist." {
		t.Errorf("unexpected below_minimum message: %q", got)
	}
}

func TestCouponMessagesEnglish(t *testing.T) {
	l := NewLocalizer()

	if got := l.CouponMessage(language.English, "usage_exceeded", decimal.Zero); got != "This discount code is no longer valid." {
		t.Errorf("unexpected usage_exceeded message: %q", got)
	}
	got := l.CouponMessage(language.English, "above_maximum", decimal.RequireFromString("500"))
	if got != "The maximum order total of €500.00 was exceeded." {
		t.Errorf("unexpected above_maximum message: %q", got)
	}
}

func TestPaymentFailureMessage(t *testing.T) {
	l := NewLocalizer()

	if got := l.PaymentFailureMessage(language.Dutch); got != "Je betaling is mislukt. Probeer het opnieuw of kies een andere betaalmethode." {
		t.Errorf("unexpected Dutch payment failure message: %q", got)
	}
	if got := l.PaymentFailureMessage(language.English); got == "" {
		t.Error("expected English payment failure message")
	}
}

func TestUnknownReasonFallsBack(t *testing.T) {
	l := NewLocalizer()

	if got := l.CouponMessage(language.Dutch, "weird_reason", decimal.Zero); got != "Ongeldige kortingscode." {
		t.Errorf("unexpected fallback message: %q", got)
	}
}
