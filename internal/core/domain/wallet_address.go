package domain

import (
	"net/url"
	"strings"
)

// WalletAddress is the public description of an Open Payments account.
// It is fetched per request and never cached across requests.
type WalletAddress struct {
	ID             string `json:"id"`
	PublicName     string `json:"publicName,omitempty"`
	AssetCode      string `json:"assetCode"`
	AssetScale     uint8  `json:"assetScale"`
	AuthServer     string `json:"authServer"`
	ResourceServer string `json:"resourceServer"`
}

// NormalizeWalletURL turns the accepted spellings of a wallet address into an
// absolute https URL: payment pointers ("$host/path"), bare hosts
// ("host/path") and absolute http(s) URLs. Returns "" when the input cannot
// name a wallet.
func NormalizeWalletURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "$") {
		s = "https://" + strings.TrimPrefix(s, "$")
	}
	// Routers collapse "//" in path parameters.
	for _, scheme := range []string{"https:/", "http:/"} {
		if strings.HasPrefix(s, scheme) && !strings.HasPrefix(s, scheme+"/") {
			s = scheme + "/" + strings.TrimPrefix(s, scheme)
		}
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimSuffix(u.String(), "/")
}
