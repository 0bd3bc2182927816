package dash

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Downloader is the HTTP transport used to probe the media origin. Implementations follow
// HTTP redirects themselves and report the final URL.
type Downloader interface {
	Do(ctx context.Context, req *OriginRequest) (*OriginResponse, error)
}

// OriginRequest is a single request issued against the media origin.
type OriginRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// OriginResponse is what the transport returns for an OriginRequest.
type OriginResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// FinalURL is the URL of the last request after redirects.
	FinalURL string
}

const (
	sqParam   = "&sq="
	sq0       = sqParam + "0"
	rn0       = "&rn=0"
	alrYes    = "&alr=yes"
	webOrigin = "https://www.youtube.com"

	maxInBandRedirects = 20

	webUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0"
	androidUserAgent = "com.google.android.youtube/20.10.38 (Linux; U; Android 11) gzip"
	iosUserAgent     = "com.google.ios.youtube/20.10.4 (iPhone16,2; U; CPU iOS 18_3_2 like Mac OS X;)"
)

// webProbeBody is what web players send when requesting the first sequence.
var webProbeBody = []byte{'x', 0x00}

// streamingClient is the player family a streaming URL was issued to.
type streamingClient int

const (
	clientOther streamingClient = iota
	clientWeb
	clientAndroid
	clientIOS
)

// clientOf inspects the "c" query parameter of a googlevideo streaming URL.
func clientOf(rawURL string) streamingClient {
	u, err := url.Parse(rawURL)
	if err != nil {
		return clientOther
	}
	c := strings.ToUpper(u.Query().Get("c"))
	switch {
	case strings.HasPrefix(c, "WEB"), strings.HasPrefix(c, "MWEB"), strings.HasPrefix(c, "TVHTML5"):
		return clientWeb
	case strings.HasPrefix(c, "ANDROID"):
		return clientAndroid
	case strings.HasPrefix(c, "IOS"):
		return clientIOS
	default:
		return clientOther
	}
}

func newProbeRequest(client streamingClient, target string) *OriginRequest {
	header := http.Header{}
	switch client {
	case clientWeb:
		header.Set("User-Agent", webUserAgent)
		header.Set("Origin", webOrigin)
		header.Set("Referer", webOrigin+"/")
		return &OriginRequest{Method: http.MethodPost, URL: target, Header: header, Body: webProbeBody}
	case clientAndroid:
		header.Set("User-Agent", androidUserAgent)
	case clientIOS:
		header.Set("User-Agent", iosUserAgent)
	}
	return &OriginRequest{Method: http.MethodGet, URL: target, Header: header}
}

// probeResult carries the initialization response and the redirect-free base URL.
type probeResult struct {
	baseURL  string
	response *OriginResponse
}

// probe requests the first sequence of a sequence-addressed stream. In-band redirects
// (text/plain bodies carrying the next URL, enabled by alr=yes) are followed so that the
// returned base URL points at the server that actually serves the segments.
func (c *Creator) probe(ctx context.Context, baseURL string, deliveryType DeliveryType) (probeResult, error) {
	client := clientOf(baseURL)
	target := baseURL + sq0 + rn0 + alrYes

	for hop := 0; hop <= maxInBandRedirects; hop++ {
		c.logger.Debugf("Probing %s stream (hop %d): %s", deliveryType, hop, target)

		resp, err := c.downloader.Do(ctx, newProbeRequest(client, target))
		if err != nil {
			return probeResult{}, probeError("could not get the initialization sequence", err)
		}
		c.recorder.Probe(deliveryType.String(), resp.StatusCode)

		if resp.StatusCode != http.StatusOK {
			return probeResult{}, &CreationError{
				Kind:       KindProbe,
				Reason:     fmt.Sprintf("could not get the initialization sequence: response code %d", resp.StatusCode),
				StatusCode: resp.StatusCode,
			}
		}

		if isPlainText(resp.Header) {
			next := strings.TrimSpace(string(resp.Body))
			if next == "" {
				return probeResult{}, probeError("the origin returned an empty redirect", nil)
			}
			target = next
			continue
		}

		final := resp.FinalURL
		if final == "" {
			final = target
		}
		return probeResult{baseURL: stripProbeMarkers(final), response: resp}, nil
	}

	return probeResult{}, probeError(fmt.Sprintf("too many redirects (more than %d)", maxInBandRedirects), nil)
}

func isPlainText(h http.Header) bool {
	return strings.HasPrefix(strings.ToLower(h.Get("Content-Type")), "text/plain")
}

// stripProbeMarkers removes the sequence, request-number and alr markers added for the probe.
func stripProbeMarkers(u string) string {
	for _, marker := range []string{sq0, rn0, alrYes} {
		u = strings.ReplaceAll(u, marker, "")
	}
	return u
}
