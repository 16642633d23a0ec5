package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nivaro/postpilot/pkg/media"
	"github.com/nivaro/postpilot/scheduling/domain"
	"github.com/sirupsen/logrus"
)

// ClientConfig configures the listing API client.
type ClientConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxImageWidth int
}

// ListingClient publishes posts to the listing provider's local-posts
// endpoint. JSON for text-only posts, multipart when media is attached.
type ListingClient struct {
	cfg    ClientConfig
	tokens TokenProvider
	http   *http.Client
}

func NewListingClient(cfg ClientConfig, tokens TokenProvider) *ListingClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ListingClient{
		cfg:    cfg,
		tokens: tokens,
		http:   &http.Client{Timeout: cfg.Timeout},
	}
}

type listingPostBody struct {
	Summary      string             `json:"summary"`
	TopicType    string             `json:"topicType"`
	CallToAction *listingCallToWire `json:"callToAction,omitempty"`
	LanguageCode string             `json:"languageCode"`
}

type listingCallToWire struct {
	ActionType string `json:"actionType"`
	URL        string `json:"url"`
}

type listingPostResponse struct {
	Name       string `json:"name"`
	CreateTime string `json:"createTime"`
	State      string `json:"state"`
}

// Publish sends one post. The bearer token is fetched immediately before
// the request so an expiring token never rides along from startup.
func (c *ListingClient) Publish(ctx context.Context, request PublishRequest) (PublishResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return PublishResult{}, fmt.Errorf("failed to obtain publish token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/locations/%s/localPosts",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), url.PathEscape(request.TargetID))

	body := listingPostBody{
		Summary:      request.Content,
		TopicType:    topicTypeFor(request.Kind),
		LanguageCode: "en",
	}
	if request.CallToAction != "" {
		body.CallToAction = &listingCallToWire{ActionType: "LEARN_MORE", URL: request.CallToAction}
	}

	var req *http.Request
	if request.MediaPath != "" {
		req, err = c.multipartRequest(ctx, endpoint, body, request.MediaPath)
	} else {
		req, err = c.jsonRequest(ctx, endpoint, body)
	}
	if err != nil {
		return PublishResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return PublishResult{}, fmt.Errorf("listing API unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if resp.StatusCode >= 400 {
		return PublishResult{}, fmt.Errorf("publish rejected: status=%d body=%s", resp.StatusCode, string(data))
	}

	var parsed listingPostResponse
	_ = json.Unmarshal(data, &parsed)

	result := PublishResult{RemoteID: parsed.Name, PublishedAt: time.Now().UTC()}
	if t, err := time.Parse(time.RFC3339, parsed.CreateTime); err == nil {
		result.PublishedAt = t
	}

	logrus.WithFields(logrus.Fields{
		"target_id": request.TargetID,
		"remote_id": result.RemoteID,
	}).Debug("[PUBLISHER] Post accepted by listing API")

	return result, nil
}

func (c *ListingClient) jsonRequest(ctx context.Context, endpoint string, body listingPostBody) (*http.Request, error) {
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// multipartRequest attaches the post media alongside the JSON body. The
// image is downscaled first; listing providers reject oversized uploads.
func (c *ListingClient) multipartRequest(ctx context.Context, endpoint string, body listingPostBody, mediaPath string) (*http.Request, error) {
	preparedPath, err := media.PrepareImage(mediaPath, c.cfg.MaxImageWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare media: %w", err)
	}
	if preparedPath != mediaPath {
		defer os.Remove(preparedPath)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := make(textproto.MIMEHeader)
	metaHeader.Set("Content-Disposition", `form-data; name="post"`)
	metaHeader.Set("Content-Type", "application/json")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(metaPart).Encode(body); err != nil {
		return nil, err
	}

	f, err := os.Open(preparedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()

	fname := strings.ReplaceAll(filepath.Base(preparedPath), "\"", "_")
	filePart, err := w.CreateFormFile("media", fname)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(filePart, f); err != nil {
		return nil, err
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

func topicTypeFor(kind domain.PostKind) string {
	switch kind {
	case domain.PostKindOffer:
		return "OFFER"
	case domain.PostKindEvent:
		return "EVENT"
	case domain.PostKindProduct:
		return "PRODUCT"
	default:
		return "STANDARD"
	}
}
