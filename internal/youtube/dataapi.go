package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/tubescout-platform/tubescout/internal/metrics"
)

// DataAPIClient talks to the YouTube Data API v3. Services are built per
// API key and reused across calls.
type DataAPIClient struct {
	mu       sync.Mutex
	services map[string]*yt.Service
}

var _ SearchClient = (*DataAPIClient)(nil)

func NewDataAPIClient() *DataAPIClient {
	return &DataAPIClient{services: make(map[string]*yt.Service)}
}

func (c *DataAPIClient) service(ctx context.Context, apiKey string) (*yt.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if svc, ok := c.services[apiKey]; ok {
		return svc, nil
	}
	svc, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("youtube: creating service: %w", err)
	}
	c.services[apiKey] = svc
	return svc, nil
}

func observe(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		if IsQuotaExceeded(err) {
			outcome = "quota"
		}
	}
	metrics.YouTubeAPICallsTotal.WithLabelValues(op, outcome).Inc()
}

// IsQuotaExceeded reports whether err carries a quota-exhaustion marker.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

func (c *DataAPIClient) search(ctx context.Context, apiKey, resourceType, query, pageToken, regionCode string) (*SearchPage, error) {
	svc, err := c.service(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	call := svc.Search.List([]string{"snippet"}).
		Q(query).
		Type(resourceType).
		MaxResults(50).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	if ValidRegionCode(regionCode) {
		call = call.RegionCode(regionCode)
	}
	resp, err := call.Do()
	observe("search."+resourceType, err)
	if err != nil {
		return nil, classifyError("search "+resourceType, err)
	}
	page := &SearchPage{NextPageToken: resp.NextPageToken}
	seen := make(map[string]bool)
	for _, item := range resp.Items {
		var id string
		switch resourceType {
		case "video":
			if item.Snippet != nil {
				id = item.Snippet.ChannelId
			}
		case "channel":
			if item.Id != nil {
				id = item.Id.ChannelId
			}
		}
		if id != "" && !seen[id] {
			seen[id] = true
			page.ChannelIDs = append(page.ChannelIDs, id)
		}
	}
	return page, nil
}

func (c *DataAPIClient) SearchVideosByKeyword(ctx context.Context, apiKey, query, pageToken, regionCode string) (*SearchPage, error) {
	return c.search(ctx, apiKey, "video", query, pageToken, regionCode)
}

func (c *DataAPIClient) SearchChannelsByKeyword(ctx context.Context, apiKey, query, pageToken, regionCode string) (*SearchPage, error) {
	return c.search(ctx, apiKey, "channel", query, pageToken, regionCode)
}

func (c *DataAPIClient) GetChannelDetails(ctx context.Context, apiKey string, ids []string) ([]ChannelDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > DetailsBatchSize {
		return nil, fmt.Errorf("youtube: channel details batch of %d exceeds %d", len(ids), DetailsBatchSize)
	}
	svc, err := c.service(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Channels.List([]string{"snippet", "statistics", "brandingSettings"}).
		Id(strings.Join(ids, ",")).
		MaxResults(int64(len(ids))).
		Context(ctx).
		Do()
	observe("channels.list", err)
	if err != nil {
		return nil, classifyError("channel details", err)
	}
	details := make([]ChannelDetail, 0, len(resp.Items))
	for _, ch := range resp.Items {
		details = append(details, channelDetail(ch))
	}
	return details, nil
}

func channelDetail(ch *yt.Channel) ChannelDetail {
	d := ChannelDetail{ID: ch.Id}
	if sn := ch.Snippet; sn != nil {
		d.Title = sn.Title
		d.CountryCode = sn.Country
		if t, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
			d.PublishedAt = t
		}
		if sn.Thumbnails != nil && sn.Thumbnails.Default != nil {
			d.ThumbnailURL = sn.Thumbnails.Default.Url
		}
	}
	if st := ch.Statistics; st != nil {
		d.Subscribers = int64(st.SubscriberCount)
		d.VideoCount = int64(st.VideoCount)
		d.TotalViews = int64(st.ViewCount)
	}
	if bs := ch.BrandingSettings; bs != nil && bs.Channel != nil {
		d.Keywords = ParseBrandingKeywords(bs.Channel.Keywords)
	}
	return d
}

func (c *DataAPIClient) GetTrendingVideos(ctx context.Context, apiKey, regionCode, pageToken string) (*TrendingPage, error) {
	svc, err := c.service(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	call := svc.Videos.List([]string{"snippet", "statistics"}).
		Chart("mostPopular").
		MaxResults(50).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	if ValidRegionCode(regionCode) {
		call = call.RegionCode(regionCode)
	}
	resp, err := call.Do()
	observe("videos.mostPopular", err)
	if err != nil {
		return nil, classifyError("trending videos", err)
	}
	page := &TrendingPage{NextPageToken: resp.NextPageToken}
	for _, v := range resp.Items {
		video := Video{ID: v.Id}
		if sn := v.Snippet; sn != nil {
			video.Title = sn.Title
			video.ChannelID = sn.ChannelId
			video.ChannelTitle = sn.ChannelTitle
			video.Tags = sn.Tags
			if t, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
				video.PublishedAt = t
			}
			if sn.Thumbnails != nil && sn.Thumbnails.Default != nil {
				video.ThumbnailURL = sn.Thumbnails.Default.Url
			}
		}
		if st := v.Statistics; st != nil {
			video.Views = int64(st.ViewCount)
			video.Likes = int64(st.LikeCount)
			video.Comments = int64(st.CommentCount)
		}
		page.Videos = append(page.Videos, video)
	}
	return page, nil
}

// ValidateKey makes the cheapest possible authenticated call to confirm
// the key is accepted by the API.
func (c *DataAPIClient) ValidateKey(ctx context.Context, apiKey string) error {
	svc, err := c.service(ctx, apiKey)
	if err != nil {
		return err
	}
	_, err = svc.I18nLanguages.List([]string{"snippet"}).Context(ctx).Do()
	observe("i18nLanguages.list", err)
	if err != nil {
		return classifyError("validate key", err)
	}
	return nil
}
