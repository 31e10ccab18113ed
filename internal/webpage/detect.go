package webpage

import (
	"bytes"
	"net/http"
	"strings"
)

// detector inspects one response to decide whether a bot-protection vendor
// served a challenge or block page instead of content.
type detector func(status int, header http.Header, body []byte) (detected bool, source string)

func defaultDetectors() []detector {
	return []detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// detectChallenge runs the response through all detectors and returns the
// vendor name of the first match, or "" when the response looks clean.
func detectChallenge(status int, header http.Header, body []byte) string {
	for _, d := range defaultDetectors() {
		if detected, source := d(status, header, body); detected {
			return source
		}
	}
	return ""
}

func detectCloudflare(status int, header http.Header, body []byte) (bool, string) {
	// Status codes 403 or 503 are common for CF challenges
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if strings.Contains(strings.ToLower(header.Get("Server")), "cloudflare") {
			return true, "Cloudflare"
		}
		if bytes.Contains(body, []byte("cf-browser-verification")) ||
			bytes.Contains(body, []byte("cloudflare-nginx")) ||
			bytes.Contains(body, []byte("cf-turnstile")) ||
			bytes.Contains(body, []byte("Attention Required! | Cloudflare")) {
			return true, "Cloudflare"
		}
	}
	return false, ""
}

func detectAkamai(status int, header http.Header, body []byte) (bool, string) {
	if status == http.StatusForbidden {
		if strings.Contains(strings.ToLower(header.Get("Server")), "akamai") {
			return true, "Akamai"
		}
		// Akamai often returns a generic "Reference #" block page
		if bytes.Contains(body, []byte("Reference #")) && bytes.Contains(body, []byte("Access Denied")) {
			return true, "Akamai"
		}
	}
	return false, ""
}

func detectDataDome(status int, header http.Header, body []byte) (bool, string) {
	if status == http.StatusForbidden {
		if strings.Contains(strings.ToLower(header.Get("Server")), "datadome") {
			return true, "DataDome"
		}
		if bytes.Contains(body, []byte("geo.captcha-delivery.com")) ||
			bytes.Contains(body, []byte("datadome")) {
			return true, "DataDome"
		}
	}
	return false, ""
}

func detectPerimeterX(status int, header http.Header, body []byte) (bool, string) {
	if status == http.StatusForbidden {
		if bytes.Contains(body, []byte("px-captcha")) ||
			bytes.Contains(body, []byte("_pxhd")) ||
			bytes.Contains(body, []byte("PerimeterX")) {
			return true, "PerimeterX"
		}
	}
	return false, ""
}
