// Package conduit is a connector layer for external publishing platforms.
//
// Conduit presents one normalized contract - verify credentials, publish or
// generate content, and report metrics - over structurally incompatible
// third-party APIs: Facebook Graph, Twitter v2, Instagram's two-phase
// container/publish flow, LinkedIn UGC posts, YouTube, the Mailchimp /
// SendGrid / ConvertKit / MailerLite email platforms, OpenAI image
// generation, and Twilio WhatsApp messaging.
//
// Connectors are created on demand by a factory that resolves per-user
// credentials from a backing store, constructs the matching platform
// adapter, and verifies the credentials before handing the connector to the
// caller. Outbound calls against flaky upstreams are wrapped in a bounded
// retry policy with exponential backoff.
//
// See pkg/connector for the contract, pkg/connector/factory for connector
// construction, and cmd/conduit for the CLI.
package conduit
