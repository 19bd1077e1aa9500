package twitter

import (
	"context"
	"fmt"
	"sync"

	"mm-mentions-bot/internal/types"

	"go.uber.org/zap"
)

// lookupChunkSize is the platform ceiling on ids per batched tweet lookup.
const lookupChunkSize = 100

// parentRelations is the preference order used when a mention references
// several tweets.
var parentRelations = []string{"replied_to", "quoted", "retweeted"}

// ResolveOptions tunes one resolution run. SinceID is the externalized
// cursor: when set, only mentions newer than it are considered.
type ResolveOptions struct {
	SinceID string
}

// Resolution is the outcome of one run: the candidates plus the newest
// mention id seen, which the caller persists as the next run's cursor.
type Resolution struct {
	Candidates []types.MentionCandidate
	NewestID   string
}

// Resolver turns raw mentions into merch candidates by resolving each
// mention's parent tweet and extracting its first usable image.
type Resolver struct {
	read   ReadPort
	handle string
	logger *zap.Logger

	mu     sync.Mutex
	userID string // memoized after first resolution
}

// NewResolver builds a Resolver for the monitored handle.
func NewResolver(read ReadPort, handle string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{read: read, handle: handle, logger: logger}
}

// ResolveCandidates fetches the most recent mentions and returns at most
// limit candidates, in mention order, each carrying the image resolved from
// its parent tweet. Mentions whose parent has no usable image are skipped.
func (r *Resolver) ResolveCandidates(ctx context.Context, limit int, opts ResolveOptions) (Resolution, error) {
	userID, err := r.accountID(ctx)
	if err != nil {
		return Resolution{}, err
	}

	page, err := r.read.FetchMentions(ctx, userID, MentionsOptions{SinceID: opts.SinceID, PageSize: limit})
	if err != nil {
		return Resolution{}, err
	}

	parentIDs := make([]string, 0, len(page.Mentions))
	seen := make(map[string]struct{}, len(page.Mentions))
	for _, mention := range page.Mentions {
		id := resolveParentID(mention)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		parentIDs = append(parentIDs, id)
	}

	parents, err := r.fetchParentsWithMedia(ctx, parentIDs)
	if err != nil {
		return Resolution{}, err
	}

	candidates := make([]types.MentionCandidate, 0, limit)
	for _, mention := range page.Mentions {
		parentID := resolveParentID(mention)
		details, ok := parents[parentID]
		if !ok || details.imageURL == "" {
			r.logger.Info("skipping mention, no image on parent tweet",
				zap.String("mention_id", mention.ID),
				zap.String("parent_id", parentID))
			continue
		}

		candidates = append(candidates, types.MentionCandidate{
			MentionID:   mention.ID,
			ParentID:    parentID,
			ImageURL:    details.imageURL,
			MentionText: mention.Text,
			ParentText:  details.text,
		})
		if len(candidates) >= limit {
			break
		}
	}

	r.logger.Info("prepared mention candidates", zap.Int("count", len(candidates)))
	return Resolution{Candidates: candidates, NewestID: page.NewestID}, nil
}

// accountID resolves the monitored handle to a user id once per process.
func (r *Resolver) accountID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.userID != "" {
		return r.userID, nil
	}

	id, err := r.read.ResolveUserID(ctx, r.handle)
	if err != nil {
		return "", fmt.Errorf("resolving account @%s: %w", r.handle, err)
	}
	r.userID = id
	return id, nil
}

// resolveParentID picks the referenced tweet a mention points at, preferring
// replied_to over quoted over retweeted. A mention referencing nothing is its
// own parent.
func resolveParentID(mention types.Mention) string {
	for _, relation := range parentRelations {
		for _, ref := range mention.ReferencedTweets {
			if ref.Type == relation && ref.ID != "" {
				return ref.ID
			}
		}
	}
	return mention.ID
}

type parentDetails struct {
	text     string
	imageURL string
}

// fetchParentsWithMedia looks up the given tweet ids in chunks of at most
// lookupChunkSize and resolves each tweet's first usable image.
func (r *Resolver) fetchParentsWithMedia(ctx context.Context, ids []string) (map[string]parentDetails, error) {
	result := make(map[string]parentDetails, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	for start := 0; start < len(ids); start += lookupChunkSize {
		end := start + lookupChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		lookup, err := r.read.LookupTweets(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}

		mediaIndex := make(map[string]types.Media, len(lookup.Media))
		for _, media := range lookup.Media {
			if media.MediaKey != "" {
				mediaIndex[media.MediaKey] = media
			}
		}

		for _, tweet := range lookup.Tweets {
			result[tweet.ID] = parentDetails{
				text:     tweet.Text,
				imageURL: findImageURL(tweet, mediaIndex),
			}
		}
	}

	return result, nil
}

// findImageURL returns the first attachment's resolvable image: a photo's
// direct URL, or the preview image of an animated gif or video. Empty when
// no attachment qualifies.
func findImageURL(tweet types.Tweet, mediaIndex map[string]types.Media) string {
	for _, key := range tweet.Attachments.MediaKeys {
		media, ok := mediaIndex[key]
		if !ok {
			continue
		}

		switch media.Type {
		case "photo":
			if media.URL != "" {
				return media.URL
			}
		case "animated_gif", "video":
			if media.PreviewImageURL != "" {
				return media.PreviewImageURL
			}
		}
	}
	return ""
}
