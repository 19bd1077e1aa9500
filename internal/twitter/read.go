package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mm-mentions-bot/internal/types"

	"github.com/hashicorp/go-retryablehttp"
)

// minPageSize is the smallest max_results the mentions timeline accepts.
const minPageSize = 5

// MentionsOptions bounds a mentions fetch. SinceID, when set, restricts the
// page to tweets newer than that id.
type MentionsOptions struct {
	SinceID  string
	PageSize int
}

// MentionsPage is one page of the mentions timeline. NewestID is the
// platform-reported newest tweet id in the page and serves as the cursor the
// caller hands back on the next run.
type MentionsPage struct {
	Mentions []types.Mention
	NewestID string
}

// Lookup is the result of a batched tweet lookup with media expansions.
type Lookup struct {
	Tweets []types.Tweet
	Media  []types.Media
}

// ReadPort is the read capability against the social platform.
type ReadPort interface {
	ResolveUserID(ctx context.Context, handle string) (string, error)
	FetchMentions(ctx context.Context, userID string, opts MentionsOptions) (MentionsPage, error)
	LookupTweets(ctx context.Context, ids []string) (Lookup, error)
}

// ReadClient talks to the Twitter API v2 read endpoints with bearer auth.
type ReadClient struct {
	baseURL string
	bearer  string
	client  *retryablehttp.Client
}

// NewReadClient builds a ReadClient against the given API base
// (e.g. https://api.twitter.com/2).
func NewReadClient(baseURL, bearer string, timeout time.Duration) *ReadClient {
	client := retryablehttp.NewClient()
	client.Logger = nil
	if timeout > 0 {
		client.HTTPClient.Timeout = timeout
	}
	return &ReadClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		bearer:  bearer,
		client:  client,
	}
}

// ResolveUserID resolves an account handle to its numeric user id.
func (c *ReadClient) ResolveUserID(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimPrefix(handle, "@")

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/users/by/username/%s", c.baseURL, url.PathEscape(handle))
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("unable to resolve user id for @%s", handle)
	}
	return out.Data.ID, nil
}

// FetchMentions returns the most recent mentions of the given user. The
// platform rejects pages smaller than its minimum, so the requested size is
// raised to that floor when needed.
func (c *ReadClient) FetchMentions(ctx context.Context, userID string, opts MentionsOptions) (MentionsPage, error) {
	pageSize := opts.PageSize
	if pageSize < minPageSize {
		pageSize = minPageSize
	}

	q := url.Values{}
	q.Set("max_results", strconv.Itoa(pageSize))
	q.Set("tweet.fields", "created_at,text,referenced_tweets")
	q.Set("user.fields", "username")
	if opts.SinceID != "" {
		q.Set("since_id", opts.SinceID)
	}

	var out struct {
		Data []types.Mention `json:"data"`
		Meta struct {
			NewestID string `json:"newest_id"`
		} `json:"meta"`
	}
	endpoint := fmt.Sprintf("%s/users/%s/mentions?%s", c.baseURL, url.PathEscape(userID), q.Encode())
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return MentionsPage{}, err
	}
	return MentionsPage{Mentions: out.Data, NewestID: out.Meta.NewestID}, nil
}

// LookupTweets fetches the given tweet ids in one request with media
// expansions. Callers are responsible for chunking to the platform's
// 100-id ceiling.
func (c *ReadClient) LookupTweets(ctx context.Context, ids []string) (Lookup, error) {
	if len(ids) == 0 {
		return Lookup{}, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("expansions", "attachments.media_keys,author_id")
	q.Set("tweet.fields", "id,text,created_at,attachments")
	q.Set("media.fields", "media_key,type,url,preview_image_url")

	var out struct {
		Data     []types.Tweet `json:"data"`
		Includes struct {
			Media []types.Media `json:"media"`
		} `json:"includes"`
	}
	endpoint := fmt.Sprintf("%s/tweets?%s", c.baseURL, q.Encode())
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return Lookup{}, err
	}
	return Lookup{Tweets: out.Data, Media: out.Includes.Media}, nil
}

func (c *ReadClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twitter read failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
