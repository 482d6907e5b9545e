package artwork

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/echocat/ha-companion-media-player/shared"
)

// OpenGraphProvider is the fallback for apps that report a plain web URL as
// their media ID (podcast players, VLC streams and the like): it fetches
// the page and pulls the og:image meta tag.
type OpenGraphProvider struct {
	client *http.Client
}

func NewOpenGraphProvider(client *http.Client) *OpenGraphProvider {
	return &OpenGraphProvider{client: client}
}

func (p *OpenGraphProvider) Matches(mediaID, _ string) bool {
	return strings.HasPrefix(mediaID, "http://") || strings.HasPrefix(mediaID, "https://")
}

func (p *OpenGraphProvider) Resolve(ctx context.Context, mediaID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaID, nil)
	if err != nil {
		return "", err
	}
	req.Header = http.Header{
		"Accept":     []string{"text/html"},
		"User-Agent": []string{shared.UserAgent},
	}

	res, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d for %s", res.StatusCode, mediaID)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return "", err
	}

	image, _ := doc.Find(`meta[property="og:image"]`).Attr("content")
	return image, nil
}
