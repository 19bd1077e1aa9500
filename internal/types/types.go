package types

// ReferencedTweet is a relation carried on a mention pointing at another tweet.
type ReferencedTweet struct {
	Type string `json:"type"` // replied_to | quoted | retweeted
	ID   string `json:"id"`
}

// Mention is one tweet mentioning the monitored account, as returned by the
// mentions timeline. Fetched per run, never persisted.
type Mention struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets,omitempty"`
}

// Tweet is a looked-up tweet with its attachment keys.
type Tweet struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Attachments struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
}

// Media is one attachment from a lookup's media expansion.
type Media struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type"` // photo | animated_gif | video
	URL             string `json:"url,omitempty"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
}

// MentionCandidate pairs a mention with the image resolved from its parent
// tweet. ImageURL is always non-empty; mentions whose parent has no
// resolvable image never become candidates.
type MentionCandidate struct {
	MentionID   string `json:"mention_id"`
	ParentID    string `json:"parent_id"`
	ImageURL    string `json:"image_url"`
	MentionText string `json:"mention_text"`
	ParentText  string `json:"parent_text"`
}

// ProductCallbackPayload is the completion event posted back by the product
// service when a merch job finishes.
type ProductCallbackPayload struct {
	Status         string `json:"status"`
	ParentID       string `json:"parentId"`
	ProductURL     string `json:"productUrl"`
	MockupImageURL string `json:"mockupImageUrl,omitempty"`
	IdempotencyKey string `json:"idempotencyKey"`
}
