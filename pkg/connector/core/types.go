package core

import (
	"time"
)

// Family groups connectors by the contract they expose
type Family string

const (
	FamilySocial Family = "social"
	FamilyEmail  Family = "email"
	FamilyImage  Family = "image"
	FamilyChat   Family = "chat"
)

// Credential holds the per-user secrets for exactly one platform. It is
// opaque to every adapter except the one matching its Platform field.
type Credential struct {
	UserID   string `json:"user_id" yaml:"user_id"`
	Platform string `json:"platform" yaml:"platform"`

	// APIKey is the primary secret: an API key or an OAuth access token,
	// depending on the platform's auth scheme
	APIKey string `json:"api_key" yaml:"api_key"`
	// APISecret is the optional secondary secret (client secret, auth token)
	APISecret string `json:"api_secret,omitempty" yaml:"api_secret,omitempty"`
	// AccessToken carries an OAuth token where APIKey holds a key instead
	AccessToken  string `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`

	// ServerPrefix is the platform shard, e.g. the Mailchimp datacenter ("us6")
	ServerPrefix string `json:"server_prefix,omitempty" yaml:"server_prefix,omitempty"`
	// AccountID is the platform-side account identifier (Twilio SID,
	// LinkedIn person URN, Instagram business account id)
	AccountID string `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	// PageID is the managed page to publish to, where the platform has pages
	PageID string `json:"page_id,omitempty" yaml:"page_id,omitempty"`
	// PhoneNumber is the sending number for messaging platforms
	PhoneNumber string `json:"phone_number,omitempty" yaml:"phone_number,omitempty"`
}

// Token returns the secret used for authenticated calls, preferring an OAuth
// access token over a raw API key.
func (c *Credential) Token() string {
	if c.AccessToken != "" {
		return c.AccessToken
	}
	return c.APIKey
}

// ContentKind discriminates the active payload of a Content request
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
	ContentVideo ContentKind = "video"
	ContentLink  ContentKind = "link"
)

// Content is the normalized publish request handed to social adapters.
// Exactly one payload kind is active; platform-specific artifacts (such as
// Instagram's container id) never appear here.
type Content struct {
	Kind ContentKind `json:"kind"`
	// Text is the caption or message body
	Text string `json:"text,omitempty"`
	// MediaURL points at the image or video for media kinds
	MediaURL string `json:"media_url,omitempty"`
	// LinkURL is the shared link for ContentLink
	LinkURL string `json:"link_url,omitempty"`
}

// Campaign is the normalized request handed to email adapters. When
// ScheduledAt is set the adapter calls the platform's schedule action
// instead of sending immediately.
type Campaign struct {
	Subject     string     `json:"subject"`
	FromName    string     `json:"from_name"`
	FromEmail   string     `json:"from_email"`
	HTMLBody    string     `json:"html_body"`
	ListID      string     `json:"list_id,omitempty"`
	Recipients  []string   `json:"recipients,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// Subscriber is an email list member for subscriber upserts
type Subscriber struct {
	Email     string   `json:"email"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// ImageRequest is the normalized generation request handed to image adapters
type ImageRequest struct {
	Prompt  string `json:"prompt"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// Message is the normalized chat send request (WhatsApp)
type Message struct {
	To       string `json:"to"`
	Body     string `json:"body"`
	MediaURL string `json:"media_url,omitempty"`
}

// PostResponse is the normalized result of a social publish.
// Success implies PostID is set; failure implies Error is set.
type PostResponse struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PostOK builds a successful PostResponse
func PostOK(postID, url string) PostResponse {
	return PostResponse{Success: true, PostID: postID, URL: url}
}

// PostFail builds a failed PostResponse
func PostFail(message string) PostResponse {
	return PostResponse{Success: false, Error: message}
}

// CampaignResponse is the normalized result of an email campaign operation
type CampaignResponse struct {
	Success    bool   `json:"success"`
	CampaignID string `json:"campaign_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CampaignOK builds a successful CampaignResponse
func CampaignOK(campaignID string) CampaignResponse {
	return CampaignResponse{Success: true, CampaignID: campaignID}
}

// CampaignFail builds a failed CampaignResponse
func CampaignFail(message string) CampaignResponse {
	return CampaignResponse{Success: false, Error: message}
}

// ImageGenerationResult is the normalized result of an image generation call
type ImageGenerationResult struct {
	Success bool     `json:"success"`
	URLs    []string `json:"urls,omitempty"`
	Error   string   `json:"error,omitempty"`
	Status  int      `json:"status,omitempty"`
}

// ImageOK builds a successful ImageGenerationResult
func ImageOK(urls []string) ImageGenerationResult {
	return ImageGenerationResult{Success: true, URLs: urls}
}

// ImageFail builds a failed ImageGenerationResult
func ImageFail(message string, status int) ImageGenerationResult {
	return ImageGenerationResult{Success: false, Error: message, Status: status}
}

// SocialMetrics is the normalized engagement summary for one post.
// Fields a platform does not report stay zero, never null, so downstream
// aggregation never branches on platform.
type SocialMetrics struct {
	Likes      int64   `json:"likes"`
	Shares     int64   `json:"shares"`
	Comments   int64   `json:"comments"`
	Reach      int64   `json:"reach"`
	Engagement float64 `json:"engagement"`
}

// EmailMetrics is the normalized delivery summary for one campaign
type EmailMetrics struct {
	Sent         int64   `json:"sent"`
	Opens        int64   `json:"opens"`
	Clicks       int64   `json:"clicks"`
	Bounces      int64   `json:"bounces"`
	Unsubscribes int64   `json:"unsubscribes"`
	OpenRate     float64 `json:"open_rate"`
	ClickRate    float64 `json:"click_rate"`
}
