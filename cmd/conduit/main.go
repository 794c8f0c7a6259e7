package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/connector/factory"
	"github.com/genialabs/conduit/pkg/connector/registry"
	"github.com/genialabs/conduit/pkg/credentials"
	jsonx "github.com/genialabs/conduit/pkg/json"
	"github.com/genialabs/conduit/pkg/logger"
	"github.com/genialabs/conduit/pkg/usage"

	// Import all available adapters to register them
	_ "github.com/genialabs/conduit/pkg/connector/chat/whatsapp"
	_ "github.com/genialabs/conduit/pkg/connector/email/convertkit"
	_ "github.com/genialabs/conduit/pkg/connector/email/mailchimp"
	_ "github.com/genialabs/conduit/pkg/connector/email/mailerlite"
	_ "github.com/genialabs/conduit/pkg/connector/email/sendgrid"
	_ "github.com/genialabs/conduit/pkg/connector/image/openai"
	_ "github.com/genialabs/conduit/pkg/connector/social/facebook"
	_ "github.com/genialabs/conduit/pkg/connector/social/instagram"
	_ "github.com/genialabs/conduit/pkg/connector/social/linkedin"
	_ "github.com/genialabs/conduit/pkg/connector/social/twitter"
	_ "github.com/genialabs/conduit/pkg/connector/social/youtube"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var logLevel string
	var credentialsFile string
	var databaseURL string
	var timeout time.Duration

	root := &cobra.Command{
		Use:   "conduit",
		Short: "Conduit - uniform connector layer for marketing platforms",
		Long: `Conduit binds per-user credentials to social, email, image and chat
platforms behind one uniform contract. Every command resolves the user's
credential, verifies it against the platform and runs one operation.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{Level: logLevel, Encoding: "console"})
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "error", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&credentialsFile, "credentials", "credentials.yaml", "Path to the credentials YAML file")
	root.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("CONDUIT_DATABASE_URL"),
		"Postgres URL for the credential store; when set, --credentials is ignored")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Command timeout")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Conduit v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "platforms",
		Short: "List registered platform adapters",
		Run: func(cmd *cobra.Command, args []string) {
			for family, platforms := range registry.Platforms() {
				fmt.Printf("%s:\n", family)
				for _, platform := range platforms {
					fmt.Printf("  - %s\n", platform)
				}
			}
		},
	})

	var userID string

	verifyCmd := &cobra.Command{
		Use:   "verify <platform>",
		Short: "Verify the stored credential for a platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			f, done, err := newFactory(ctx, credentialsFile, databaseURL)
			if err != nil {
				return err
			}
			defer done()

			connector, err := lookup(ctx, f, userID, args[0])
			if err != nil {
				return err
			}
			if connector == nil {
				fmt.Printf("%s: not connected\n", args[0])
				return nil
			}
			defer connector.Close(ctx)

			fmt.Printf("%s: connected\n", args[0])
			return nil
		},
	}

	publishCmd := &cobra.Command{
		Use:   "publish <platform> <text>",
		Short: "Publish content to a social platform",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			f, done, err := newFactory(ctx, credentialsFile, databaseURL)
			if err != nil {
				return err
			}
			defer done()

			connector, err := f.Social(ctx, userID, args[0])
			if err != nil {
				return err
			}
			if connector == nil {
				return fmt.Errorf("%s is not connected for user %s", args[0], userID)
			}
			defer connector.Close(ctx)

			mediaURL, _ := cmd.Flags().GetString("media-url")
			content := core.Content{
				Kind: core.ContentText,
				Text: strings.Join(args[1:], " "),
			}
			if mediaURL != "" {
				content.Kind = core.ContentImage
				content.MediaURL = mediaURL
			}

			started := time.Now()
			response := connector.Publish(ctx, content)
			reportUsage(userID, args[0], "publish", response.Success, started)
			return printJSON(response)
		},
	}
	publishCmd.Flags().String("media-url", "", "Publicly reachable image or video URL")

	campaignCmd := &cobra.Command{
		Use:   "campaign <platform> <subject>",
		Short: "Create an email campaign",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			f, done, err := newFactory(ctx, credentialsFile, databaseURL)
			if err != nil {
				return err
			}
			defer done()

			connector, err := f.Email(ctx, userID, args[0])
			if err != nil {
				return err
			}
			if connector == nil {
				return fmt.Errorf("%s is not connected for user %s", args[0], userID)
			}
			defer connector.Close(ctx)

			listID, _ := cmd.Flags().GetString("list-id")
			htmlFile, _ := cmd.Flags().GetString("html")
			fromName, _ := cmd.Flags().GetString("from-name")
			fromEmail, _ := cmd.Flags().GetString("from-email")

			html, err := os.ReadFile(htmlFile)
			if err != nil {
				return fmt.Errorf("failed to read campaign body: %w", err)
			}

			campaign := core.Campaign{
				Subject:   args[1],
				FromName:  fromName,
				FromEmail: fromEmail,
				HTMLBody:  string(html),
				ListID:    listID,
			}
			if scheduleAt, _ := cmd.Flags().GetString("schedule-at"); scheduleAt != "" {
				at, err := time.Parse(time.RFC3339, scheduleAt)
				if err != nil {
					return fmt.Errorf("invalid schedule time: %w", err)
				}
				campaign.ScheduledAt = &at
			}

			started := time.Now()
			response := connector.CreateCampaign(ctx, campaign)
			reportUsage(userID, args[0], "create_campaign", response.Success, started)
			return printJSON(response)
		},
	}
	campaignCmd.Flags().String("list-id", "", "Audience or group id the campaign targets")
	campaignCmd.Flags().String("html", "", "Path to the HTML campaign body (required)")
	campaignCmd.Flags().String("from-name", "", "Sender display name")
	campaignCmd.Flags().String("from-email", "", "Sender email address")
	campaignCmd.Flags().String("schedule-at", "", "RFC3339 delivery time; empty sends immediately")
	_ = campaignCmd.MarkFlagRequired("html")

	subscribeCmd := &cobra.Command{
		Use:   "subscribe <platform> <list-id> <email>",
		Short: "Add a subscriber to an email list",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			f, done, err := newFactory(ctx, credentialsFile, databaseURL)
			if err != nil {
				return err
			}
			defer done()

			connector, err := f.Email(ctx, userID, args[0])
			if err != nil {
				return err
			}
			if connector == nil {
				return fmt.Errorf("%s is not connected for user %s", args[0], userID)
			}
			defer connector.Close(ctx)

			manager, ok := connector.(core.SubscriberManager)
			if !ok {
				return fmt.Errorf("%s does not support subscriber management", args[0])
			}

			tags, _ := cmd.Flags().GetStringSlice("tag")
			ok, err = manager.AddSubscriber(ctx, args[1], core.Subscriber{
				Email: args[2],
				Tags:  tags,
			})
			if err != nil {
				return err
			}

			fmt.Printf("subscribed: %v\n", ok)
			return nil
		},
	}
	subscribeCmd.Flags().StringSlice("tag", nil, "Tag to assign to the subscriber (repeatable)")

	generateCmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate an image from a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			f, done, err := newFactory(ctx, credentialsFile, databaseURL)
			if err != nil {
				return err
			}
			defer done()

			connector, err := f.Image(ctx, userID, "openai")
			if err != nil {
				return err
			}
			if connector == nil {
				return fmt.Errorf("openai is not connected for user %s", userID)
			}
			defer connector.Close(ctx)

			size, _ := cmd.Flags().GetString("size")
			started := time.Now()
			result := connector.Generate(ctx, core.ImageRequest{
				Prompt: strings.Join(args, " "),
				Size:   size,
			})
			reportUsage(userID, "openai", "generate", result.Success, started)
			return printJSON(result)
		},
	}
	generateCmd.Flags().String("size", "1024x1024", "Generated image size")

	metricsCmd := &cobra.Command{
		Use:   "metrics <platform> <id>",
		Short: "Read engagement or delivery metrics for a post or campaign",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			f, done, err := newFactory(ctx, credentialsFile, databaseURL)
			if err != nil {
				return err
			}
			defer done()

			platform, id := args[0], args[1]

			if registry.GetRegistry().HasSocial(platform) {
				connector, err := f.Social(ctx, userID, platform)
				if err != nil {
					return err
				}
				if connector == nil {
					return fmt.Errorf("%s is not connected for user %s", platform, userID)
				}
				defer connector.Close(ctx)

				metrics, err := connector.GetMetrics(ctx, id)
				if err != nil {
					return err
				}
				if metrics == nil {
					fmt.Println("no metrics available for this platform")
					return nil
				}
				return printJSON(metrics)
			}

			connector, err := f.Email(ctx, userID, platform)
			if err != nil {
				return err
			}
			if connector == nil {
				return fmt.Errorf("%s is not connected for user %s", platform, userID)
			}
			defer connector.Close(ctx)

			metrics, err := connector.GetMetrics(ctx, id)
			if err != nil {
				return err
			}
			if metrics == nil {
				fmt.Println("no metrics available for this platform")
				return nil
			}
			return printJSON(metrics)
		},
	}

	for _, cmd := range []*cobra.Command{verifyCmd, publishCmd, campaignCmd, subscribeCmd, generateCmd, metricsCmd} {
		cmd.Flags().StringVar(&userID, "user", "default", "User the credential belongs to")
		root.AddCommand(cmd)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newFactory builds the connector factory over a Postgres credential store
// when a database URL is configured, otherwise over an in-memory store loaded
// from the credentials YAML file. The returned func releases the store.
func newFactory(ctx context.Context, credentialsFile, databaseURL string) (*factory.Factory, func(), error) {
	if databaseURL != "" {
		store, err := credentials.NewPostgresStore(ctx, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return factory.New(store), store.Close, nil
	}

	loaded, err := credentials.LoadFile(credentialsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load credentials from %s: %w", credentialsFile, err)
	}

	store := credentials.NewMemoryStore()
	for i := range loaded {
		if err := store.Put(ctx, &loaded[i]); err != nil {
			return nil, nil, fmt.Errorf("invalid credential for %s: %w", loaded[i].Platform, err)
		}
	}

	return factory.New(store), store.Close, nil
}

// lookup resolves a verified connector of any family for the platform
func lookup(ctx context.Context, f *factory.Factory, userID, platform string) (core.Connector, error) {
	r := registry.GetRegistry()
	switch {
	case r.HasSocial(platform):
		connector, err := f.Social(ctx, userID, platform)
		if err != nil || connector == nil {
			return nil, err
		}
		return connector, nil
	case r.HasEmail(platform):
		connector, err := f.Email(ctx, userID, platform)
		if err != nil || connector == nil {
			return nil, err
		}
		return connector, nil
	case platform == "openai":
		connector, err := f.Image(ctx, userID, platform)
		if err != nil || connector == nil {
			return nil, err
		}
		return connector, nil
	case platform == "whatsapp":
		connector, err := f.Chat(ctx, userID, platform)
		if err != nil || connector == nil {
			return nil, err
		}
		return connector, nil
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
}

// reportUsage publishes a usage event when a Kafka broker list is configured
// through CONDUIT_KAFKA_BROKERS. Delivery failures never fail the command.
func reportUsage(userID, platform, operation string, success bool, started time.Time) {
	brokers := os.Getenv("CONDUIT_KAFKA_BROKERS")
	if brokers == "" {
		return
	}

	reporter, err := usage.NewReporter(usage.ReporterConfig{
		Brokers: strings.Split(brokers, ","),
		Topic:   "conduit.usage",
	})
	if err != nil {
		logger.Warn("usage reporting unavailable")
		return
	}
	defer reporter.Close()

	reporter.Report(usage.Event{
		UserID:     userID,
		Platform:   platform,
		Operation:  operation,
		Success:    success,
		DurationMS: time.Since(started).Milliseconds(),
	})
}

// printJSON writes a value as indented JSON to stdout
func printJSON(v interface{}) error {
	data, err := jsonx.MarshalIndent(v)
	if err != nil {
		return err
	}

	fmt.Println(string(data))
	return nil
}
