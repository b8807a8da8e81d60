package trending

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tubescout-platform/tubescout/internal/discovery"
	"github.com/tubescout-platform/tubescout/internal/keys"
	"github.com/tubescout-platform/tubescout/internal/store"
	"github.com/tubescout-platform/tubescout/internal/youtube"
)

// Snapshot is one region's trending chart for one UTC day: the videos
// plus the enriched channels behind them.
type Snapshot struct {
	Region    string              `json:"region"`
	Videos    []youtube.Video     `json:"videos"`
	Channels  []discovery.Channel `json:"channels"`
	FetchedAt time.Time           `json:"fetched_at"`
	FromCache bool                `json:"from_cache"`
}

// Service fetches a region's most-popular chart, enriches the channels
// behind the videos, and caches the snapshot per region per UTC day.
type Service struct {
	client   youtube.SearchClient
	rotator  *keys.Rotator
	recorder discovery.UsageRecorder
	store    store.Store
	maxPages int
	now      func() time.Time
}

func NewService(client youtube.SearchClient, rotator *keys.Rotator, recorder discovery.UsageRecorder, st store.Store, maxPages int) *Service {
	if maxPages <= 0 {
		maxPages = 3
	}
	return &Service{
		client:   client,
		rotator:  rotator,
		recorder: recorder,
		store:    st,
		maxPages: maxPages,
		now:      time.Now,
	}
}

func (s *Service) cacheKey(region string) string {
	day := s.now().UTC().Format("2006-01-02")
	if region == "" {
		region = "GLOBAL"
	}
	return fmt.Sprintf("trending:%s:%s", region, day)
}

// Fetch returns the trending snapshot for region, serving today's cached
// snapshot when one exists. An invalid or empty region means the global
// chart.
func (s *Service) Fetch(ctx context.Context, region string) (*Snapshot, error) {
	if !youtube.ValidRegionCode(region) {
		region = ""
	}

	var cached Snapshot
	if ok, err := store.GetJSON(ctx, s.store, s.cacheKey(region), &cached); err != nil {
		slog.Warn("trending: reading cache", "region", region, "error", err)
	} else if ok {
		cached.FromCache = true
		return &cached, nil
	}

	videos, err := s.fetchChart(ctx, region)
	if err != nil {
		return nil, err
	}

	channels, err := s.fetchChannels(ctx, videos)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Region:    region,
		Videos:    videos,
		Channels:  channels,
		FetchedAt: s.now().UTC(),
	}

	// The snapshot stays valid for the rest of the UTC day.
	now := s.now().UTC()
	ttl := now.Truncate(24 * time.Hour).Add(24 * time.Hour).Sub(now)
	if err := store.SetJSON(ctx, s.store, s.cacheKey(region), snap, ttl); err != nil {
		slog.Warn("trending: caching snapshot", "region", region, "error", err)
	}

	slog.Info("trending: snapshot fetched", "region", region, "videos", len(videos), "channels", len(channels))
	return snap, nil
}

func (s *Service) fetchChart(ctx context.Context, region string) ([]youtube.Video, error) {
	var videos []youtube.Video
	pageToken := ""
	for page := 0; page < s.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, usedKey, err := keys.WithRotation(ctx, s.rotator, s.recorder, func(apiKey string) (*youtube.TrendingPage, error) {
			return s.client.GetTrendingVideos(ctx, apiKey, region, pageToken)
		})
		if err != nil {
			return nil, fmt.Errorf("fetching trending page: %w", err)
		}
		if err := s.recorder.RecordUsage(ctx, usedKey, "list", 2); err != nil {
			slog.Warn("trending: recording quota usage", "error", err)
		}
		videos = append(videos, result.Videos...)
		if result.NextPageToken == "" {
			break
		}
		pageToken = result.NextPageToken
	}
	return videos, nil
}

func (s *Service) fetchChannels(ctx context.Context, videos []youtube.Video) ([]discovery.Channel, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, v := range videos {
		if v.ChannelID != "" && !seen[v.ChannelID] {
			seen[v.ChannelID] = true
			ids = append(ids, v.ChannelID)
		}
	}

	channels := make([]discovery.Channel, 0, len(ids))
	nowUnix := s.now().Unix()
	for start := 0; start < len(ids); start += youtube.DetailsBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+youtube.DetailsBatchSize, len(ids))
		batch := ids[start:end]
		details, usedKey, err := keys.WithRotation(ctx, s.rotator, s.recorder, func(apiKey string) ([]youtube.ChannelDetail, error) {
			return s.client.GetChannelDetails(ctx, apiKey, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("fetching trending channel details: %w", err)
		}
		if err := s.recorder.RecordUsage(ctx, usedKey, "list", len(batch)*3); err != nil {
			slog.Warn("trending: recording quota usage", "error", err)
		}
		for _, d := range details {
			channels = append(channels, discovery.ChannelFromDetail(d, nowUnix))
		}
	}
	return channels, nil
}
