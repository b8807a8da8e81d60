package youtube

import (
	"context"
	"time"
)

// SearchPage is one page of keyword search results, reduced to what the
// discovery engine consumes: the channel each hit belongs to.
type SearchPage struct {
	ChannelIDs    []string
	NextPageToken string
}

// ChannelDetail is the raw per-channel payload from the channels endpoint.
type ChannelDetail struct {
	ID           string
	Title        string
	ThumbnailURL string
	CountryCode  string
	Subscribers  int64
	VideoCount   int64
	TotalViews   int64
	PublishedAt  time.Time
	Keywords     []string
}

// Video is one entry from the trending (most popular) chart.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
	ThumbnailURL string    `json:"thumbnail_url"`
	PublishedAt  time.Time `json:"published_at"`
	Views        int64     `json:"views"`
	Likes        int64     `json:"likes"`
	Comments     int64     `json:"comments"`
	Tags         []string  `json:"tags,omitempty"`
}

// TrendingPage is one page of the most-popular chart.
type TrendingPage struct {
	Videos        []Video
	NextPageToken string
}

// SearchClient is the remote search surface the discovery and trending
// engines are built against. Every operation takes the API key to bill the
// call to; implementations must return a *QuotaError when the remote API
// rejects the key for quota reasons.
type SearchClient interface {
	SearchVideosByKeyword(ctx context.Context, apiKey, query, pageToken, regionCode string) (*SearchPage, error)
	SearchChannelsByKeyword(ctx context.Context, apiKey, query, pageToken, regionCode string) (*SearchPage, error)
	GetChannelDetails(ctx context.Context, apiKey string, ids []string) ([]ChannelDetail, error)
	GetTrendingVideos(ctx context.Context, apiKey, regionCode, pageToken string) (*TrendingPage, error)
	ValidateKey(ctx context.Context, apiKey string) error
}

// DetailsBatchSize is the maximum number of channel IDs the channels
// endpoint accepts per call.
const DetailsBatchSize = 50
