package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/echocat/ha-companion-media-player/shared"
)

// Spotify's oEmbed endpoint is public and needs no authentication. It
// returns JSON including a thumbnail_url field with 300x300 album art.
const spotifyOEmbedEndpoint = "https://open.spotify.com/oembed"

const spotifyPackage = "com.spotify.music"

type SpotifyProvider struct {
	endpoint string
	client   *http.Client
}

func NewSpotifyProvider(client *http.Client) *SpotifyProvider {
	return &SpotifyProvider{
		endpoint: spotifyOEmbedEndpoint,
		client:   client,
	}
}

func (p *SpotifyProvider) Matches(mediaID, packageName string) bool {
	return packageName == spotifyPackage && strings.HasPrefix(mediaID, "spotify:track:")
}

func (p *SpotifyProvider) Resolve(ctx context.Context, mediaID string) (string, error) {
	lookupURL := fmt.Sprintf("%s?url=%s", p.endpoint, url.QueryEscape(mediaID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", err
	}
	req.Header = http.Header{
		"Accept":     []string{"application/json"},
		"User-Agent": []string{shared.UserAgent},
	}

	res, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify oembed returned status %d for %s", res.StatusCode, mediaID)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	var oembed struct {
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.Unmarshal(body, &oembed); err != nil {
		return "", err
	}

	return oembed.ThumbnailURL, nil
}
