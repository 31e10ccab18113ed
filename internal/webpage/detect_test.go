package webpage

import (
	"net/http"
	"testing"
)

func TestDetectChallenge(t *testing.T) {
	cases := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   string
	}{
		{
			name:   "clean 200",
			status: 200,
			header: http.Header{},
			body:   "<html><body>article</body></html>",
			want:   "",
		},
		{
			name:   "plain 403 without signatures",
			status: 403,
			header: http.Header{},
			body:   "forbidden",
			want:   "",
		},
		{
			name:   "cloudflare server header",
			status: 503,
			header: http.Header{"Server": {"cloudflare"}},
			body:   "",
			want:   "Cloudflare",
		},
		{
			name:   "cloudflare turnstile body",
			status: 403,
			header: http.Header{},
			body:   "<div class=\"cf-turnstile\"></div>",
			want:   "Cloudflare",
		},
		{
			name:   "akamai reference block",
			status: 403,
			header: http.Header{},
			body:   "Access Denied. Reference #18.1234",
			want:   "Akamai",
		},
		{
			name:   "datadome captcha",
			status: 403,
			header: http.Header{},
			body:   "src=\"https://geo.captcha-delivery.com/captcha\"",
			want:   "DataDome",
		},
		{
			name:   "perimeterx captcha",
			status: 403,
			header: http.Header{},
			body:   "<div id=\"px-captcha\"></div>",
			want:   "PerimeterX",
		},
		{
			name:   "challenge markers ignored on 200",
			status: 200,
			header: http.Header{},
			body:   "an article discussing cf-turnstile integration",
			want:   "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectChallenge(tc.status, tc.header, []byte(tc.body)); got != tc.want {
				t.Errorf("detectChallenge() = %q, want %q", got, tc.want)
			}
		})
	}
}
