package news

import (
	"math/rand"
	"net/http"
)

// pageProfile is the header set a browser sends for a top-level navigation.
// Article pages sit behind a CDN that turns away bare Go clients.
type pageProfile struct {
	UserAgent       string
	Accept          string
	AcceptLanguage  string
	SecFetchDest    string
	SecFetchMode    string
	SecChUa         string
	SecChUaMobile   string
	SecChUaPlatform string
}

const htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

var pageProfiles = []pageProfile{
	{
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:          htmlAccept,
		AcceptLanguage:  "en-US,en;q=0.9,si;q=0.8",
		SecFetchDest:    "document",
		SecFetchMode:    "navigate",
		SecChUa:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"Windows"`,
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
		Accept:         htmlAccept,
		AcceptLanguage: "en-US,en;q=0.9",
		SecFetchDest:   "document",
		SecFetchMode:   "navigate",
	},
	{
		UserAgent:       "Mozilla/5.0 (Linux; Android 14; Pixel 8 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Mobile Safari/537.36",
		Accept:          htmlAccept,
		AcceptLanguage:  "en-GB,en;q=0.9,si;q=0.8",
		SecFetchDest:    "document",
		SecFetchMode:    "navigate",
		SecChUa:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUaMobile:   "?1",
		SecChUaPlatform: `"Android"`,
	},
}

// setPageHeaders dresses req as a browser page load using a random profile.
func setPageHeaders(req *http.Request) {
	p := pageProfiles[rand.Intn(len(pageProfiles))]
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", p.Accept)
	req.Header.Set("Accept-Language", p.AcceptLanguage)
	req.Header.Set("Sec-Fetch-Dest", p.SecFetchDest)
	req.Header.Set("Sec-Fetch-Mode", p.SecFetchMode)
	if p.SecChUa != "" {
		req.Header.Set("Sec-Ch-Ua", p.SecChUa)
		req.Header.Set("Sec-Ch-Ua-Mobile", p.SecChUaMobile)
		req.Header.Set("Sec-Ch-Ua-Platform", p.SecChUaPlatform)
	}
}
