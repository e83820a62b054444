package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/draftdeck/scrivener/pkg/clients"
	"github.com/draftdeck/scrivener/pkg/logging"
)

const defaultLinkedInAPIBase = "https://api.linkedin.com"

// ErrLinkedInNotConfigured is returned when publish is attempted without credentials.
var ErrLinkedInNotConfigured = errors.New("linkedin credentials not configured")

// PublishResult describes a post accepted by the LinkedIn UGC Posts API.
type PublishResult struct {
	PostID  string
	PostURL string
}

type LinkedInClientConfig struct {
	AccessToken string
	UserID      string
	APIBase     string
	Client      *http.Client
	Logger      logging.Logger
}

// LinkedInClient publishes posts through the UGC Posts API.
type LinkedInClient struct {
	accessToken string
	userID      string
	apiBase     string
	client      *http.Client
	logger      logging.Logger
}

func NewLinkedInClient(cfg LinkedInClientConfig) *LinkedInClient {
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultLinkedInAPIBase
	}
	client := cfg.Client
	if client == nil {
		client = clients.NewHTTPClient(30 * time.Second)
	}
	return &LinkedInClient{
		accessToken: cfg.AccessToken,
		userID:      cfg.UserID,
		apiBase:     strings.TrimRight(apiBase, "/"),
		client:      client,
		logger:      cfg.Logger,
	}
}

// Configured reports whether both credentials are present.
func (c *LinkedInClient) Configured() bool {
	return c.accessToken != "" && c.userID != ""
}

type ugcShareContent struct {
	ShareCommentary struct {
		Text string `json:"text"`
	} `json:"shareCommentary"`
	ShareMediaCategory string `json:"shareMediaCategory"`
}

type ugcPostRequest struct {
	Author          string                     `json:"author"`
	LifecycleState  string                     `json:"lifecycleState"`
	SpecificContent map[string]ugcShareContent `json:"specificContent"`
	Visibility      map[string]string          `json:"visibility"`
}

// Publish posts text with appended hashtags. Visibility is PUBLIC or
// CONNECTIONS; scheduled posts use lifecycleState SCHEDULED and the caller
// owns the timing.
func (c *LinkedInClient) Publish(ctx context.Context, text string, hashtags []string, visibility string, scheduled bool) (PublishResult, error) {
	if !c.Configured() {
		return PublishResult{}, ErrLinkedInNotConfigured
	}

	visibility = strings.ToUpper(strings.TrimSpace(visibility))
	if visibility != "CONNECTIONS" {
		visibility = "PUBLIC"
	}
	lifecycle := "PUBLISHED"
	if scheduled {
		lifecycle = "SCHEDULED"
	}

	body := text
	if tags := JoinHashtags(hashtags); tags != "" {
		body = body + "\n\n" + tags
	}

	var share ugcShareContent
	share.ShareCommentary.Text = body
	share.ShareMediaCategory = "NONE"

	payload := ugcPostRequest{
		Author:         fmt.Sprintf("urn:li:person:%s", c.userID),
		LifecycleState: lifecycle,
		SpecificContent: map[string]ugcShareContent{
			"com.linkedin.ugc.ShareContent": share,
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": visibility,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return PublishResult{}, fmt.Errorf("marshal ugc post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v2/ugcPosts", bytes.NewReader(data))
	if err != nil {
		return PublishResult{}, fmt.Errorf("build ugc post request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return PublishResult{}, fmt.Errorf("post to linkedin: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return PublishResult{}, fmt.Errorf("linkedin api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	postID := resp.Header.Get("X-LinkedIn-Id")
	if postID == "" {
		postID = resp.Header.Get("X-RestLi-Id")
	}
	result := PublishResult{PostID: postID}
	if postID != "" {
		result.PostURL = "https://www.linkedin.com/feed/update/" + postID
	}
	if c.logger != nil {
		c.logger.WithFields(logging.Fields{
			"post_id":    postID,
			"visibility": visibility,
			"lifecycle":  lifecycle,
		}).Info("Published LinkedIn post")
	}
	return result, nil
}

// JoinHashtags renders tags as a single space-joined string with # prefixes.
func JoinHashtags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, EnsureHashtag(t))
	}
	return strings.Join(out, " ")
}
