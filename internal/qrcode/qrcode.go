package qrcode

import (
	"fmt"
	"net/url"

	qr "github.com/skip2/go-qrcode"
)

const size = 256

// Generate creates a QR code PNG image for the given URL.
func Generate(link string) ([]byte, error) {
	return qr.Encode(link, qr.Medium, size)
}

// MatchURL is the spectator link of a match served from host.
func MatchURL(host, matchID string) string {
	return fmt.Sprintf("http://%s/api/matches/%s", host, url.PathEscape(matchID))
}
