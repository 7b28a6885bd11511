package feed

// Config is the per feed configuration used when rendering
type Config struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language"`
	SiteURL     string `json:"site_url"`
	FeedURL     string `json:"feed_url"`
	Author      string `json:"author,omitempty"`
	RouteID     string `json:"route_id,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at,omitempty"`
}

// Feed is a feed's configuration along with its id and the address that delivers into it
type Feed struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Config
}

// FeedInput holds the user editable parts of a Config
type FeedInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Author      string `json:"author"`
}

type listEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type feedList struct {
	Feeds []listEntry `json:"feeds"`
}
