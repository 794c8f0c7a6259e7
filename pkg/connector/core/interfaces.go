package core

import (
	"context"
)

// Connector is the base contract every platform adapter implements.
// A connector is a live, verified binding of one Credential to one adapter,
// owned exclusively by the calling operation. Connectors are never cached
// across requests; re-verification is cheap and avoids stale-token bugs.
type Connector interface {
	// Name returns the adapter instance name
	Name() string

	// Platform returns the platform identifier ("facebook", "mailchimp", ...)
	Platform() string

	// Family returns the contract family the connector belongs to
	Family() Family

	// VerifyCredentials issues the cheapest authenticated call on the
	// platform and reports whether it succeeded. Auth failure returns
	// false, never an error.
	VerifyCredentials(ctx context.Context) bool

	// Close releases connector resources
	Close(ctx context.Context) error

	// Metrics returns adapter-level operational counters
	Metrics() map[string]interface{}
}

// SocialConnector publishes content to a social platform and reads back
// engagement metrics.
type SocialConnector interface {
	Connector

	// Publish performs the platform's publish call sequence and maps the
	// outcome into the normalized PostResponse. It never returns an error;
	// every failure path lands in the response.
	Publish(ctx context.Context, content Content) PostResponse

	// GetMetrics returns engagement metrics for a published post.
	// A nil result with nil error means the platform has no equivalent
	// report.
	GetMetrics(ctx context.Context, postID string) (*SocialMetrics, error)
}

// EmailConnector creates and reports on email campaigns.
type EmailConnector interface {
	Connector

	// CreateCampaign creates the campaign and either sends it immediately
	// or schedules it when the campaign carries a schedule time. It never
	// returns an error; every failure path lands in the response.
	CreateCampaign(ctx context.Context, campaign Campaign) CampaignResponse

	// GetMetrics returns delivery metrics for a campaign. A nil result with
	// nil error means the platform has no equivalent report.
	GetMetrics(ctx context.Context, campaignID string) (*EmailMetrics, error)
}

// SubscriberManager is implemented by email connectors that support
// subscriber upserts. AddSubscriber returns true only when the upsert and
// any follow-up calls (tag assignment) all succeed.
type SubscriberManager interface {
	AddSubscriber(ctx context.Context, listID string, subscriber Subscriber) (bool, error)
}

// ImageConnector generates images from prompts.
type ImageConnector interface {
	Connector

	// Generate performs the generation call and maps the outcome into the
	// normalized result. It never returns an error.
	Generate(ctx context.Context, request ImageRequest) ImageGenerationResult
}

// ChatConnector sends chat messages (WhatsApp via Twilio).
type ChatConnector interface {
	Connector

	// Send delivers one message, retrying transient failures under the
	// adapter's retry policy. It never returns an error.
	Send(ctx context.Context, message Message) PostResponse
}
