package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tubescout-platform/tubescout/internal/keys"
	"github.com/tubescout-platform/tubescout/internal/metrics"
	"github.com/tubescout-platform/tubescout/internal/youtube"
)

// UsageRecorder receives the quota cost of every successful remote call
// and exhaustion marks when a key is rejected for quota.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, apiKey, operation string, resourceCount int) error
	MarkExhausted(ctx context.Context, apiKey string) error
}

// Options bound how far a single run crawls.
type Options struct {
	VideoPages          int
	ChannelPages        int
	RelatedDepth        int
	FewResultsThreshold int
}

// Engine drives a discovery run through its phases: keyword video
// search, keyword channel search, detail fetching, optional related
// expansion, and filtering. Each remote call goes through key rotation
// and is billed to the recorder.
type Engine struct {
	client   youtube.SearchClient
	rotator  *keys.Rotator
	recorder UsageRecorder
	cache    *ResultCache
	opts     Options
	now      func() time.Time
}

func NewEngine(client youtube.SearchClient, rotator *keys.Rotator, recorder UsageRecorder, cache *ResultCache, opts Options) *Engine {
	if opts.VideoPages <= 0 {
		opts.VideoPages = 3
	}
	if opts.ChannelPages <= 0 {
		opts.ChannelPages = 1
	}
	if opts.RelatedDepth <= 0 {
		opts.RelatedDepth = 1
	}
	if opts.FewResultsThreshold <= 0 {
		opts.FewResultsThreshold = 20
	}
	return &Engine{
		client:   client,
		rotator:  rotator,
		recorder: recorder,
		cache:    cache,
		opts:     opts,
		now:      time.Now,
	}
}

// run tracks the mutable state of one discovery run. Runs are
// independent of each other; the engine itself holds no run state.
type run struct {
	id      string
	state   RunState
	seen    map[string]bool
	ordered []string
}

func (r *run) add(channelID string) {
	if channelID != "" && !r.seen[channelID] {
		r.seen[channelID] = true
		r.ordered = append(r.ordered, channelID)
	}
}

// Run executes a discovery search. A cached result for an equivalent
// search is returned without touching the remote API.
func (e *Engine) Run(ctx context.Context, params SearchParams) (*Result, error) {
	r := &run{id: uuid.NewString(), state: StateIdle, seen: make(map[string]bool)}

	if channels, unique, ok := e.cache.Get(ctx, params); ok {
		slog.Info("discovery: serving cached result", "run_id", r.id, "channels", len(channels))
		return &Result{
			RunID:       r.id,
			State:       StateDone,
			Channels:    channels,
			UniqueFound: unique,
			FromCache:   true,
		}, nil
	}

	regions := searchRegions(params.CountryCodes)

	r.state = StateSearchingVideos
	if err := e.searchPhase(ctx, r, params.Keywords, regions, e.opts.VideoPages, e.client.SearchVideosByKeyword); err != nil {
		return e.fail(r, err)
	}

	r.state = StateSearchingChannels
	if err := e.searchPhase(ctx, r, params.Keywords, regions, e.opts.ChannelPages, e.client.SearchChannelsByKeyword); err != nil {
		return e.fail(r, err)
	}

	r.state = StateFetchingDetails
	uniqueFound := len(r.ordered)
	channels, err := e.fetchDetails(ctx, r.ordered)
	if err != nil {
		return e.fail(r, err)
	}

	if len(channels) < e.opts.FewResultsThreshold && e.opts.RelatedDepth > 0 {
		r.state = StateExpandingRelated
		channels = e.expandRelated(ctx, r, params, channels)
		uniqueFound = len(r.ordered)
	}

	r.state = StateFiltering
	filtered := applyFilters(channels, params)

	if err := e.cache.Put(ctx, params, filtered, uniqueFound); err != nil {
		slog.Warn("discovery: caching result", "run_id", r.id, "error", err)
	}

	r.state = StateDone
	metrics.DiscoveryRunsTotal.WithLabelValues("done").Inc()
	slog.Info("discovery: run complete",
		"run_id", r.id,
		"unique_found", uniqueFound,
		"after_filters", len(filtered))
	return &Result{
		RunID:       r.id,
		State:       StateDone,
		Channels:    filtered,
		UniqueFound: uniqueFound,
	}, nil
}

func (e *Engine) fail(r *run, err error) (*Result, error) {
	phase := r.state
	r.state = StateFailed
	metrics.DiscoveryRunsTotal.WithLabelValues("failed").Inc()
	slog.Error("discovery: run failed", "run_id", r.id, "phase", string(phase), "error", err)
	return &Result{RunID: r.id, State: StateFailed}, err
}

// searchRegions returns the valid region codes to search, or a single
// empty string standing for a global search.
func searchRegions(codes []string) []string {
	regions := make([]string, 0, len(codes))
	for _, c := range normalizeCodes(codes) {
		if youtube.ValidRegionCode(c) {
			regions = append(regions, c)
		}
	}
	if len(regions) == 0 {
		return []string{""}
	}
	return regions
}

type searchFn func(ctx context.Context, apiKey, query, pageToken, regionCode string) (*youtube.SearchPage, error)

func (e *Engine) searchPhase(ctx context.Context, r *run, query string, regions []string, pages int, search searchFn) error {
	for _, region := range regions {
		pageToken := ""
		for page := 0; page < pages; page++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, usedKey, err := keys.WithRotation(ctx, e.rotator, e.recorder, func(apiKey string) (*youtube.SearchPage, error) {
				return search(ctx, apiKey, query, pageToken, region)
			})
			if err != nil {
				return err
			}
			e.recordUsage(ctx, usedKey, "search", 1)
			for _, id := range result.ChannelIDs {
				r.add(id)
			}
			if result.NextPageToken == "" {
				break
			}
			pageToken = result.NextPageToken
		}
	}
	return nil
}

func (e *Engine) fetchDetails(ctx context.Context, ids []string) ([]Channel, error) {
	channels := make([]Channel, 0, len(ids))
	nowUnix := e.now().Unix()
	for start := 0; start < len(ids); start += youtube.DetailsBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+youtube.DetailsBatchSize, len(ids))
		batch := ids[start:end]
		details, usedKey, err := keys.WithRotation(ctx, e.rotator, e.recorder, func(apiKey string) ([]youtube.ChannelDetail, error) {
			return e.client.GetChannelDetails(ctx, apiKey, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("fetching channel details: %w", err)
		}
		e.recordUsage(ctx, usedKey, "list", len(batch)*3)
		for _, d := range details {
			channels = append(channels, ChannelFromDetail(d, nowUnix))
		}
	}
	return channels, nil
}

// expandRelated widens a thin result set by searching for channels
// similar to the strongest seeds. Failures here never fail the run;
// whatever was found before expansion is kept.
func (e *Engine) expandRelated(ctx context.Context, r *run, params SearchParams, channels []Channel) []Channel {
	seeds := make([]Channel, len(channels))
	copy(seeds, channels)
	sort.Slice(seeds, func(i, j int) bool { return seeds[i].Subscribers > seeds[j].Subscribers })
	if len(seeds) > 3 {
		seeds = seeds[:3]
	}

	region := ""
	if codes := normalizeCodes(params.CountryCodes); len(codes) > 0 {
		region = codes[0]
	}

	known := len(r.ordered)
	for _, seed := range seeds {
		for _, query := range seedQueries(seed) {
			pageToken := ""
			for page := 0; page < e.opts.RelatedDepth; page++ {
				if ctx.Err() != nil {
					return channels
				}
				result, usedKey, err := keys.WithRotation(ctx, e.rotator, e.recorder, func(apiKey string) (*youtube.SearchPage, error) {
					return e.client.SearchChannelsByKeyword(ctx, apiKey, query, pageToken, region)
				})
				if err != nil {
					slog.Warn("discovery: related expansion search failed", "run_id", r.id, "query", query, "error", err)
					break
				}
				e.recordUsage(ctx, usedKey, "search", 1)
				for _, id := range result.ChannelIDs {
					r.add(id)
				}
				if result.NextPageToken == "" {
					break
				}
				pageToken = result.NextPageToken
			}
		}
	}

	if len(r.ordered) == known {
		return channels
	}
	extra, err := e.fetchDetails(ctx, r.ordered[known:])
	if err != nil {
		slog.Warn("discovery: related expansion details failed", "run_id", r.id, "error", err)
		return channels
	}
	return append(channels, extra...)
}

// seedQueries derives up to two short search queries from a seed
// channel: its leading keywords when it has any, otherwise the first
// words of its name.
func seedQueries(seed Channel) []string {
	var queries []string
	nameWords := strings.Fields(seed.Name)
	if len(nameWords) > 3 {
		nameWords = nameWords[:3]
	}
	if len(nameWords) > 0 {
		queries = append(queries, strings.Join(nameWords, " "))
	}
	if len(seed.Keywords) > 0 {
		kw := seed.Keywords
		if len(kw) > 2 {
			kw = kw[:2]
		}
		queries = append(queries, strings.Join(kw, " "))
	}
	if len(queries) > 2 {
		queries = queries[:2]
	}
	return queries
}

func (e *Engine) recordUsage(ctx context.Context, apiKey, operation string, resourceCount int) {
	if err := e.recorder.RecordUsage(ctx, apiKey, operation, resourceCount); err != nil {
		slog.Warn("discovery: recording quota usage", "operation", operation, "error", err)
	}
}
