package payments

import "strings"

// Method enumerates the payment methods the storefront offers.
type Method string

const (
	MethodCard       Method = "card"
	MethodIDeal      Method = "ideal"
	MethodKlarna     Method = "klarna"
	MethodBancontact Method = "bancontact"
)

// Methods lists every supported method in presentation order.
func Methods() []Method {
	return []Method{MethodCard, MethodIDeal, MethodKlarna, MethodBancontact}
}

// ParseMethod normalises a raw method string. Unknown values fall back to
// card, the storefront never rejects a checkout over a stale method id.
func ParseMethod(raw string) Method {
	switch Method(strings.ToLower(strings.TrimSpace(raw))) {
	case MethodIDeal:
		return MethodIDeal
	case MethodKlarna:
		return MethodKlarna
	case MethodBancontact:
		return MethodBancontact
	default:
		return MethodCard
	}
}

// BackendID returns the payment gateway identifier the commerce backend
// expects for this method.
func (m Method) BackendID() string {
	if m == MethodKlarna {
		return "klarna_payments"
	}
	return "woocommerce_payments"
}

// BackendSubtype returns the gateway subtype query value for methods that
// share a gateway, empty when the gateway alone is enough.
func (m Method) BackendSubtype() string {
	switch m {
	case MethodIDeal, MethodBancontact:
		return string(m)
	default:
		return ""
	}
}

// Title is the human readable name recorded on the order.
func (m Method) Title() string {
	switch m {
	case MethodIDeal:
		return "iDEAL"
	case MethodKlarna:
		return "Klarna"
	case MethodBancontact:
		return "Bancontact"
	default:
		return "Card Payment"
	}
}
