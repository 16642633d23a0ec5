package domain

import "time"

type PostStatus string

const (
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

// PostKind categorizes a post for the listing API. It is descriptive only;
// the executor handles every kind the same way.
type PostKind string

const (
	PostKindUpdate  PostKind = "update"
	PostKindOffer   PostKind = "offer"
	PostKindEvent   PostKind = "event"
	PostKindProduct PostKind = "product"
)

// ScheduledPost is a user-authored post waiting for (or past) execution.
// TargetID is a weak reference to a business listing owned elsewhere.
type ScheduledPost struct {
	ID           string     `json:"id"`
	TargetID     string     `json:"target_id"`
	TargetName   string     `json:"target_name,omitempty"`
	Content      string     `json:"content"`
	Kind         PostKind   `json:"post_kind"`
	CallToAction string     `json:"call_to_action,omitempty"`
	MediaPath    string     `json:"media_path,omitempty"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	Status       PostStatus `json:"status"`
	Error        string     `json:"error,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsDue reports whether the post is eligible for execution at now.
func (p ScheduledPost) IsDue(now time.Time) bool {
	return p.Status == PostStatusScheduled && !p.ScheduledAt.After(now)
}

// Editable reports whether content/time edits and deletion are still
// allowed. Once a post enters publishing there is no cancellation.
func (p ScheduledPost) Editable() bool {
	return p.Status == PostStatusScheduled
}

// Terminal reports whether the post reached a final state.
func (p ScheduledPost) Terminal() bool {
	return p.Status == PostStatusPublished || p.Status == PostStatusFailed
}

// ValidPostKind reports whether k belongs to the closed kind set.
func ValidPostKind(k PostKind) bool {
	switch k {
	case PostKindUpdate, PostKindOffer, PostKindEvent, PostKindProduct:
		return true
	}
	return false
}
