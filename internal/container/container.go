package container

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/livepoll-go/internal/fanout"
	"github.com/serroba/livepoll-go/internal/handlers"
	"github.com/serroba/livepoll-go/internal/health"
	"github.com/serroba/livepoll-go/internal/middleware"
	"github.com/serroba/livepoll-go/internal/poll"
	"github.com/serroba/livepoll-go/internal/ratelimit"
	"github.com/serroba/livepoll-go/internal/reconcile"
	"github.com/serroba/livepoll-go/internal/store"
	"github.com/serroba/livepoll-go/internal/voting"
	"go.uber.org/zap"
)

// Options holds all configuration knobs.
type Options struct {
	Port        int    `default:"8888"           help:"Port to listen on"                            short:"p"`
	RedisAddr   string `default:"localhost:6379" help:"Redis server address"                         short:"r"`
	PostgresDSN string `default:""               help:"PostgreSQL DSN; empty runs the in-memory poll store"`
	LogFormat   string `default:"console"        help:"Log format: console or json"`

	VoteLimit    int64 `default:"10"    help:"Max votes per identity per window"`
	VoteWindowMs int64 `default:"60000" help:"Rate limit window in milliseconds"`

	SyncIntervalSeconds     int  `default:"30"  help:"Seconds between reconciliation runs"`
	SyncInitialDelaySeconds int  `default:"5"   help:"Seconds before the first reconciliation run"`
	VoterRetentionHours     int  `default:"168" help:"Hours a voter record is retained"`
	DisableReconciler       bool `default:"false" help:"Do not run the reconciler in this process"`
}

// VoteWindow returns the rate limit window as a duration.
func (o *Options) VoteWindow() time.Duration {
	return time.Duration(o.VoteWindowMs) * time.Millisecond
}

// VoterRetention returns the voter record retention as a duration.
func (o *Options) VoterRetention() time.Duration {
	return time.Duration(o.VoterRetentionHours) * time.Hour
}

// LoggerPackage provides the zap logger and real clock.
func LoggerPackage(injector *do.Injector) {
	do.ProvideValue[clockwork.Clock](injector, clockwork.NewRealClock())

	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the shared Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		opts := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr:       opts.RedisAddr,
			MaxRetries: 3,
		}), nil
	})
}

// StorePackage provides the durable poll repository: Postgres when a DSN is
// configured, in-memory otherwise.
func StorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (poll.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.PostgresDSN == "" {
			return store.NewMemoryStore(do.MustInvoke[clockwork.Clock](i)), nil
		}

		pool, err := pgxpool.New(context.Background(), opts.PostgresDSN)
		if err != nil {
			return nil, err
		}

		do.ProvideValue(i, pool)

		return store.NewPostgresStore(pool), nil
	})
}

// VoteCachePackage provides the Redis-backed vote counter cache.
func VoteCachePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (voting.Cache, error) {
		return store.NewRedisVoteCache(do.MustInvoke[*redis.Client](i)), nil
	})
}

// RateLimitPackage provides the sliding window vote limiter.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.SlidingWindowLimiter, error) {
		opts := do.MustInvoke[*Options](i)
		clock := do.MustInvoke[clockwork.Clock](i)
		limitStore := store.NewRedisRateLimitStore(do.MustInvoke[*redis.Client](i), clock)

		return ratelimit.NewSlidingWindowLimiter(
			limitStore,
			opts.VoteLimit,
			opts.VoteWindow(),
			clock,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// PubSubPackage provides the watermill publisher and subscriber over Redis
// streams, so poll updates reach every server replica.
func PubSubPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (message.Publisher, error) {
		return redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: do.MustInvoke[*redis.Client](i),
		}, watermill.NewStdLogger(false, false))
	})

	do.Provide(injector, func(i *do.Injector) (message.Subscriber, error) {
		return redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client: do.MustInvoke[*redis.Client](i),
		}, watermill.NewStdLogger(false, false))
	})
}

// FanoutPackage provides the hub, the typed update publisher, and the
// consumer bridging the message bus into the hub.
func FanoutPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*fanout.Hub, error) {
		return fanout.NewHub(do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (fanout.PublishUpdate, error) {
		return fanout.NewPublishUpdate(do.MustInvoke[message.Publisher](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*fanout.Consumer, error) {
		return fanout.NewConsumer(
			do.MustInvoke[message.Subscriber](i),
			do.MustInvoke[*fanout.Hub](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// VotingPackage provides the vote coordinator.
func VotingPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*voting.Coordinator, error) {
		opts := do.MustInvoke[*Options](i)

		return voting.NewCoordinator(
			do.MustInvoke[poll.Repository](i),
			do.MustInvoke[voting.Cache](i),
			do.MustInvoke[*ratelimit.SlidingWindowLimiter](i),
			do.MustInvoke[fanout.PublishUpdate](i),
			opts.VoterRetention(),
			do.MustInvoke[clockwork.Clock](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// ReconcilePackage provides the reconciler.
func ReconcilePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*reconcile.Reconciler, error) {
		opts := do.MustInvoke[*Options](i)

		return reconcile.NewReconciler(
			do.MustInvoke[poll.Repository](i),
			do.MustInvoke[voting.Cache](i),
			reconcile.Config{
				Interval:     time.Duration(opts.SyncIntervalSeconds) * time.Second,
				InitialDelay: time.Duration(opts.SyncInitialDelaySeconds) * time.Second,
			},
			do.MustInvoke[clockwork.Clock](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// HTTPPackage provides the router and the API with all routes registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		clock := do.MustInvoke[clockwork.Clock](i)
		repo := do.MustInvoke[poll.Repository](i)
		coordinator := do.MustInvoke[*voting.Coordinator](i)

		router := do.MustInvoke[*chi.Mux](i)
		api := humachi.New(router, huma.DefaultConfig("Live Poll API", "1.0.0"))
		api.UseMiddleware(middleware.Identity(api))

		newID, err := poll.NewIDGenerator()
		if err != nil {
			return nil, err
		}

		pollHandler := handlers.NewPollHandler(repo, coordinator, newID, clock, logger)
		voteHandler := handlers.NewVoteHandler(coordinator, logger)
		streamHandler := handlers.NewStreamHandler(do.MustInvoke[*fanout.Hub](i), repo, logger)

		handlers.RegisterRoutes(api, pollHandler, voteHandler, streamHandler)

		var durable health.Checker = health.NoopChecker{}
		if opts.PostgresDSN != "" {
			durable = do.MustInvoke[*pgxpool.Pool](i)
		}

		healthHandler := health.NewHandler(
			health.NewRedisChecker(do.MustInvoke[*redis.Client](i)),
			durable,
			do.MustInvoke[*reconcile.Reconciler](i).Stats(),
		)
		health.RegisterRoutes(api, healthHandler)

		return api, nil
	})
}
