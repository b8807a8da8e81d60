package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubescout-platform/tubescout/internal/keys"
	"github.com/tubescout-platform/tubescout/internal/quota"
	"github.com/tubescout-platform/tubescout/internal/store"
	"github.com/tubescout-platform/tubescout/internal/youtube"
)

// fakeClient scripts the remote API per operation and records the key
// every call was made with.
type fakeClient struct {
	usedKeys []string

	videoSearch   func(apiKey, query, pageToken, region string) (*youtube.SearchPage, error)
	channelSearch func(apiKey, query, pageToken, region string) (*youtube.SearchPage, error)
	details       func(apiKey string, ids []string) ([]youtube.ChannelDetail, error)
}

func (f *fakeClient) SearchVideosByKeyword(_ context.Context, apiKey, query, pageToken, region string) (*youtube.SearchPage, error) {
	f.usedKeys = append(f.usedKeys, apiKey)
	if f.videoSearch == nil {
		return &youtube.SearchPage{}, nil
	}
	return f.videoSearch(apiKey, query, pageToken, region)
}

func (f *fakeClient) SearchChannelsByKeyword(_ context.Context, apiKey, query, pageToken, region string) (*youtube.SearchPage, error) {
	f.usedKeys = append(f.usedKeys, apiKey)
	if f.channelSearch == nil {
		return &youtube.SearchPage{}, nil
	}
	return f.channelSearch(apiKey, query, pageToken, region)
}

func (f *fakeClient) GetChannelDetails(_ context.Context, apiKey string, ids []string) ([]youtube.ChannelDetail, error) {
	f.usedKeys = append(f.usedKeys, apiKey)
	if f.details == nil {
		return defaultDetails(ids), nil
	}
	return f.details(apiKey, ids)
}

func (f *fakeClient) GetTrendingVideos(_ context.Context, apiKey, regionCode, pageToken string) (*youtube.TrendingPage, error) {
	f.usedKeys = append(f.usedKeys, apiKey)
	return &youtube.TrendingPage{}, nil
}

func (f *fakeClient) ValidateKey(context.Context, string) error { return nil }

func defaultDetails(ids []string) []youtube.ChannelDetail {
	details := make([]youtube.ChannelDetail, 0, len(ids))
	for i, id := range ids {
		details = append(details, youtube.ChannelDetail{
			ID:          id,
			Title:       "Channel " + id,
			CountryCode: "US",
			Subscribers: int64(1000 * (i + 1)),
			VideoCount:  10,
			TotalViews:  100_000,
			PublishedAt: time.Now().AddDate(-1, 0, 0),
		})
	}
	return details
}

func page(ids ...string) *youtube.SearchPage {
	return &youtube.SearchPage{ChannelIDs: ids}
}

func setupEngine(t *testing.T, client youtube.SearchClient, apiKeys []string, opts Options) (*Engine, *quota.Ledger) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := store.NewRedisStore(rdb, "test")
	ctx := context.Background()

	ledger, err := quota.NewLedger(ctx, st, 10000, quota.ResetManual)
	require.NoError(t, err)
	rotator, err := keys.NewRotator(ctx, st, ledger, apiKeys)
	require.NoError(t, err)

	cache := NewResultCache(st, 24*time.Hour)
	return NewEngine(client, rotator, ledger, cache, opts), ledger
}

func TestRunDeduplicatesAcrossPhases(t *testing.T) {
	client := &fakeClient{
		videoSearch: func(_, _, _, _ string) (*youtube.SearchPage, error) {
			return page("ch1", "ch2", "ch1"), nil
		},
		channelSearch: func(_, _, _, _ string) (*youtube.SearchPage, error) {
			return page("ch2", "ch3"), nil
		},
	}
	engine, _ := setupEngine(t, client, []string{"key1"}, Options{VideoPages: 1, ChannelPages: 1, FewResultsThreshold: 1})

	result, err := engine.Run(context.Background(), SearchParams{Keywords: "lofi"})
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 3, result.UniqueFound)
	assert.Len(t, result.Channels, 3)
}

func TestRunRecordsSearchAndListUsage(t *testing.T) {
	client := &fakeClient{
		videoSearch: func(_, _, _, _ string) (*youtube.SearchPage, error) {
			return page("ch1", "ch2"), nil
		},
	}
	engine, ledger := setupEngine(t, client, []string{"key1"}, Options{VideoPages: 1, ChannelPages: 1, FewResultsThreshold: 1})

	_, err := engine.Run(context.Background(), SearchParams{Keywords: "lofi"})
	require.NoError(t, err)

	// Two searches at 100 units each plus one details batch of two
	// channels at 3 units per channel.
	assert.Equal(t, 206, ledger.QuotaInfo("key1").Used)
}

func TestRunServesCachedResult(t *testing.T) {
	client := &fakeClient{
		videoSearch: func(_, _, _, _ string) (*youtube.SearchPage, error) {
			return page("ch1"), nil
		},
	}
	engine, _ := setupEngine(t, client, []string{"key1"}, Options{VideoPages: 1, ChannelPages: 1, FewResultsThreshold: 1})
	ctx := context.Background()
	params := SearchParams{Keywords: "lofi"}

	first, err := engine.Run(ctx, params)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	callsAfterFirst := len(client.usedKeys)

	second, err := engine.Run(ctx, SearchParams{Keywords: "  LOFI "})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Channels, second.Channels)
	assert.Equal(t, first.UniqueFound, second.UniqueFound)
	assert.Len(t, client.usedKeys, callsAfterFirst)
}

func TestRunSkipsExhaustedKeyEntirely(t *testing.T) {
	client := &fakeClient{
		videoSearch: func(_, _, _, _ string) (*youtube.SearchPage, error) {
			return page("ch1"), nil
		},
	}
	engine, ledger := setupEngine(t, client, []string{"key1", "key2"}, Options{VideoPages: 1, ChannelPages: 1, FewResultsThreshold: 1})
	ctx := context.Background()

	require.NoError(t, ledger.MarkExhausted(ctx, "key1"))

	result, err := engine.Run(ctx, SearchParams{Keywords: "lofi"})
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	require.NotEmpty(t, client.usedKeys)
	for _, key := range client.usedKeys {
		assert.Equal(t, "key2", key)
	}
}

func TestRunFailsWhenLastKeyExhausts(t *testing.T) {
	quotaErr := &youtube.QuotaError{Err: errors.New("daily quota exceeded")}
	client := &fakeClient{
		videoSearch: func(_, _, _, _ string) (*youtube.SearchPage, error) {
			return nil, quotaErr
		},
	}
	engine, ledger := setupEngine(t, client, []string{"key1"}, Options{VideoPages: 1, ChannelPages: 1, FewResultsThreshold: 1})

	result, err := engine.Run(context.Background(), SearchParams{Keywords: "lofi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, keys.ErrNoUsableKey)
	assert.Equal(t, StateFailed, result.State)
	assert.True(t, ledger.IsExhausted("key1"))
	assert.Len(t, client.usedKeys, 1)
}

func TestRunRetriesOnAlternateKey(t *testing.T) {
	quotaErr := &youtube.QuotaError{Err: errors.New("daily quota exceeded")}
	client := &fakeClient{}
	client.videoSearch = func(apiKey, _, _, _ string) (*youtube.SearchPage, error) {
		if apiKey == "key1" {
			return nil, quotaErr
		}
		return page("ch1"), nil
	}

	engine, ledger := setupEngine(t, client, []string{"key1", "key2"}, Options{VideoPages: 1, ChannelPages: 1, FewResultsThreshold: 1})

	result, err := engine.Run(context.Background(), SearchParams{Keywords: "lofi"})
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.True(t, ledger.IsExhausted("key1"))
	assert.Equal(t, "key1", client.usedKeys[0])
	for _, key := range client.usedKeys[1:] {
		assert.Equal(t, "key2", key)
	}
}

func TestRunRelatedExpansionFailureIsSwallowed(t *testing.T) {
	searchCalls := 0
	client := &fakeClient{}
	client.videoSearch = func(_, _, _, _ string) (*youtube.SearchPage, error) {
		return page("ch1", "ch2"), nil
	}
	client.channelSearch = func(_, query, _, _ string) (*youtube.SearchPage, error) {
		searchCalls++
		if query != "lofi" {
			return nil, fmt.Errorf("backend unavailable")
		}
		return page(), nil
	}

	engine, _ := setupEngine(t, client, []string{"key1"}, Options{
		VideoPages:          1,
		ChannelPages:        1,
		RelatedDepth:        1,
		FewResultsThreshold: 20,
	})

	result, err := engine.Run(context.Background(), SearchParams{Keywords: "lofi"})
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Len(t, result.Channels, 2)
	assert.Greater(t, searchCalls, 1)
}

func TestRunRelatedExpansionAddsChannels(t *testing.T) {
	client := &fakeClient{}
	client.videoSearch = func(_, _, _, _ string) (*youtube.SearchPage, error) {
		return page("ch1"), nil
	}
	client.channelSearch = func(_, query, _, _ string) (*youtube.SearchPage, error) {
		if query == "lofi" {
			return page(), nil
		}
		// Seed-derived query from the related expansion phase.
		return page("ch-related"), nil
	}

	engine, _ := setupEngine(t, client, []string{"key1"}, Options{
		VideoPages:          1,
		ChannelPages:        1,
		RelatedDepth:        1,
		FewResultsThreshold: 20,
	})

	result, err := engine.Run(context.Background(), SearchParams{Keywords: "lofi"})
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 2, result.UniqueFound)
	assert.Len(t, result.Channels, 2)
}

func TestRunNormalizesCountryCodes(t *testing.T) {
	client := &fakeClient{}
	client.videoSearch = func(_, _, _, _ string) (*youtube.SearchPage, error) {
		return page("ch1", "ch2"), nil
	}
	client.details = func(_ string, ids []string) ([]youtube.ChannelDetail, error) {
		details := defaultDetails(ids)
		details[1].CountryCode = "VN"
		return details, nil
	}
	engine, _ := setupEngine(t, client, []string{"key1"}, Options{VideoPages: 1, ChannelPages: 1, FewResultsThreshold: 1})
	ctx := context.Background()

	cold, err := engine.Run(ctx, SearchParams{Keywords: "lofi", CountryCodes: []string{"vn"}})
	require.NoError(t, err)
	require.Len(t, cold.Channels, 1)
	assert.Equal(t, "ch2", cold.Channels[0].ID)
	assert.False(t, cold.FromCache)

	// The uppercase spelling is the same search and sees the same result.
	warm, err := engine.Run(ctx, SearchParams{Keywords: "lofi", CountryCodes: []string{"VN"}})
	require.NoError(t, err)
	assert.True(t, warm.FromCache)
	assert.Equal(t, cold.Channels, warm.Channels)
}

func TestNewEngineDefaultsEnableExpansion(t *testing.T) {
	client := &fakeClient{}
	client.videoSearch = func(_, _, _, _ string) (*youtube.SearchPage, error) {
		return page("ch1"), nil
	}
	client.channelSearch = func(_, query, _, _ string) (*youtube.SearchPage, error) {
		if query == "lofi" {
			return page(), nil
		}
		return page("ch-related"), nil
	}
	engine, _ := setupEngine(t, client, []string{"key1"}, Options{})

	result, err := engine.Run(context.Background(), SearchParams{Keywords: "lofi"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.UniqueFound)
	assert.Len(t, result.Channels, 2)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	client := &fakeClient{
		videoSearch: func(_, _, _, _ string) (*youtube.SearchPage, error) {
			return page("ch1"), nil
		},
	}
	engine, _ := setupEngine(t, client, []string{"key1"}, Options{VideoPages: 2, ChannelPages: 1, FewResultsThreshold: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Run(ctx, SearchParams{Keywords: "lofi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, result.State)
	assert.Empty(t, client.usedKeys)
}
