package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// WritePort is the write capability against the social platform: media
// upload and tweet posting under the account's user context.
type WritePort interface {
	UploadMedia(ctx context.Context, data []byte, contentType string) (string, error)
	PostReply(ctx context.Context, text, inReplyTo string, mediaIDs []string) (string, error)
}

// ReplyRequest describes one reply to post. ImageURL, when set, is fetched
// and attached as uploaded media.
type ReplyRequest struct {
	ParentID string
	Text     string
	ImageURL string
}

// Replier posts a reply, optionally downloading and re-uploading a remote image.
type Replier interface {
	ReplyWithMedia(ctx context.Context, req ReplyRequest) (string, error)
}

// Credentials are the OAuth 1.0a user-context credentials for write access.
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// WriteClient posts tweets via API v2 and uploads media via the v1.1 upload
// endpoint, both signed with OAuth 1.0a user context.
type WriteClient struct {
	apiBase    string
	uploadBase string
	client     *retryablehttp.Client
	downloader *retryablehttp.Client
	logger     *zap.Logger
}

// NewWriteClient builds a WriteClient. apiBase is the v2 API root
// (e.g. https://api.twitter.com/2), uploadBase the v1.1 upload root
// (e.g. https://upload.twitter.com/1.1).
func NewWriteClient(apiBase, uploadBase string, creds Credentials, timeout time.Duration, logger *zap.Logger) *WriteClient {
	conf := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)

	signed := retryablehttp.NewClient()
	signed.Logger = nil
	signed.HTTPClient = conf.Client(oauth1.NoContext, token)

	downloader := retryablehttp.NewClient()
	downloader.Logger = nil

	if timeout > 0 {
		signed.HTTPClient.Timeout = timeout
		downloader.HTTPClient.Timeout = timeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &WriteClient{
		apiBase:    strings.TrimRight(apiBase, "/"),
		uploadBase: strings.TrimRight(uploadBase, "/"),
		client:     signed,
		downloader: downloader,
		logger:     logger,
	}
}

// UploadMedia uploads raw image bytes and returns the platform media id.
func (c *WriteClient) UploadMedia(ctx context.Context, data []byte, contentType string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="media"; filename="media"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/media/upload.json", c.uploadBase)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, buf.Bytes())
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("media upload failed: status %d", resp.StatusCode)
	}

	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.MediaIDString == "" {
		return "", fmt.Errorf("media upload returned no media id")
	}

	c.logger.Info("uploaded media", zap.String("media_id", out.MediaIDString))
	return out.MediaIDString, nil
}

// PostReply posts a tweet in reply to inReplyTo, optionally referencing
// uploaded media, and returns the posted tweet id.
func (c *WriteClient) PostReply(ctx context.Context, text, inReplyTo string, mediaIDs []string) (string, error) {
	body := map[string]any{
		"text": text,
		"reply": map[string]any{
			"in_reply_to_tweet_id": inReplyTo,
		},
	}
	if len(mediaIDs) > 0 {
		body["media"] = map[string]any{"media_ids": mediaIDs}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/tweets", c.apiBase)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("twitter post failed: status %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	c.logger.Info("posted reply", zap.String("tweet_id", out.Data.ID), zap.String("in_reply_to", inReplyTo))
	return out.Data.ID, nil
}

// ReplyWithMedia posts a reply under req.ParentID. When req.ImageURL is set
// the image is downloaded fully into memory, uploaded with the content type
// forwarded from the download response, and attached to the reply. Any step
// failing fails the whole call; there is no text-only fallback.
func (c *WriteClient) ReplyWithMedia(ctx context.Context, req ReplyRequest) (string, error) {
	var mediaIDs []string

	if req.ImageURL != "" {
		data, contentType, err := c.downloadImage(ctx, req.ImageURL)
		if err != nil {
			return "", err
		}
		mediaID, err := c.UploadMedia(ctx, data, contentType)
		if err != nil {
			return "", err
		}
		mediaIDs = []string{mediaID}
	}

	return c.PostReply(ctx, req.Text, req.ParentID, mediaIDs)
}

func (c *WriteClient) downloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.downloader.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("failed to download mockup image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}
