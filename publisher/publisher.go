// Package publisher delivers posts to the external business listing API.
package publisher

import (
	"context"
	"time"

	"github.com/nivaro/postpilot/scheduling/domain"
)

// PublishRequest is the transport-neutral payload handed to a publisher.
type PublishRequest struct {
	TargetID     string
	Content      string
	Kind         domain.PostKind
	CallToAction string
	MediaPath    string
}

// PublishResult reports what the listing API accepted.
type PublishResult struct {
	RemoteID    string
	PublishedAt time.Time
}

// IPublisher is the boundary the executors publish through. Implementations
// must be safe for concurrent use; the worker pool calls them from many
// goroutines.
type IPublisher interface {
	Publish(ctx context.Context, request PublishRequest) (PublishResult, error)
}

// TokenProvider supplies a fresh bearer token for each publish call.
// Tokens expire server-side, so the client asks immediately before the
// request rather than caching one at startup.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider wraps a fixed API key. Used when the deployment
// authenticates with a long-lived key instead of OAuth refresh.
type StaticTokenProvider struct {
	APIKey string
}

func (p StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return p.APIKey, nil
}
