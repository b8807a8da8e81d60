package discovery

import "github.com/tubescout-platform/tubescout/internal/youtube"

// RunState names the phase a discovery run is in. Runs end in either
// StateDone or StateFailed.
type RunState string

const (
	StateIdle              RunState = "idle"
	StateSearchingVideos   RunState = "searching_videos"
	StateSearchingChannels RunState = "searching_channels"
	StateFetchingDetails   RunState = "fetching_details"
	StateExpandingRelated  RunState = "expanding_related"
	StateFiltering         RunState = "filtering"
	StateDone              RunState = "done"
	StateFailed            RunState = "failed"
)

// Country is the display form of a channel's declared country.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// Channel is a discovered channel after detail enrichment.
type Channel struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Thumbnail   string   `json:"thumbnail"`
	Country     Country  `json:"country"`
	Subscribers int64    `json:"subscribers"`
	Videos      int64    `json:"videos"`
	AgeDays     int64    `json:"age_days"`
	AvgViews    int64    `json:"avg_views"`
	Keywords    []string `json:"keywords,omitempty"`
}

// SearchParams are the inputs to a discovery run. Subscriber bounds
// accept suffixed numbers ("10k", "1.5m"), age bounds are plain day
// counts, and empty strings leave a bound unconstrained.
type SearchParams struct {
	Keywords       string   `json:"keywords" validate:"required"`
	CountryCodes   []string `json:"country_codes,omitempty"`
	MinSubscribers string   `json:"min_subscribers,omitempty"`
	MaxSubscribers string   `json:"max_subscribers,omitempty"`
	MinAgeDays     string   `json:"min_age_days,omitempty"`
	MaxAgeDays     string   `json:"max_age_days,omitempty"`
}

// Result is the outcome of a discovery run.
type Result struct {
	RunID       string    `json:"run_id"`
	State       RunState  `json:"state"`
	Channels    []Channel `json:"channels"`
	UniqueFound int       `json:"unique_found"`
	FromCache   bool      `json:"from_cache"`
}

// ChannelFromDetail converts the raw API payload into the enriched
// channel shape, deriving age and average views.
func ChannelFromDetail(d youtube.ChannelDetail, nowUnix int64) Channel {
	ageDays := int64(0)
	if !d.PublishedAt.IsZero() {
		ageDays = (nowUnix - d.PublishedAt.Unix()) / 86400
		if ageDays < 0 {
			ageDays = 0
		}
	}
	videos := d.VideoCount
	if videos == 0 {
		videos = 1
	}
	return Channel{
		ID:          d.ID,
		Name:        d.Title,
		URL:         "https://www.youtube.com/channel/" + d.ID,
		Thumbnail:   d.ThumbnailURL,
		Country:     LookupCountry(d.CountryCode),
		Subscribers: d.Subscribers,
		Videos:      d.VideoCount,
		AgeDays:     ageDays,
		AvgViews:    d.TotalViews / videos,
		Keywords:    d.Keywords,
	}
}
