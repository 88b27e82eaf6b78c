// Gatekeeper - wallet sign-in service for the On-Chain Guard dashboard
package main

import (
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"github.com/onchain-guard/gatekeeper/adapters/anomaly"
	"github.com/onchain-guard/gatekeeper/adapters/events"
	"github.com/onchain-guard/gatekeeper/adapters/nonce"
	"github.com/onchain-guard/gatekeeper/adapters/store"
	"github.com/onchain-guard/gatekeeper/adapters/tokenizer"
	"github.com/onchain-guard/gatekeeper/internal/config"
	"github.com/onchain-guard/gatekeeper/internal/logging"
	"github.com/onchain-guard/gatekeeper/ports"
	"github.com/onchain-guard/gatekeeper/service"
	transport "github.com/onchain-guard/gatekeeper/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("error", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, "text")
	logger.Info("starting gatekeeper",
		"env", cfg.Env,
		"domain", cfg.Domain,
		"chain_id", cfg.ChainID,
	)

	signKey, err := cfg.SessionKey()
	if err != nil {
		logger.Error("failed to load session key", "error", err)
		os.Exit(1)
	}
	if cfg.SessionKeyHex == "" {
		logger.Warn("SESSION_KEY not set, sessions will not survive a restart")
	}

	var (
		nonces      ports.NonceStore
		revocations ports.RevocationList
		publisher   message.Publisher
	)

	wmLogger := watermill.NewSlogLogger(logger)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)

		nonces = nonce.NewRedisStore(redisClient, cfg.ChallengeTTL)
		revocations = store.NewRedisStore(redisClient)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			logger.Error("failed to create redis publisher", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("REDIS_URL not set, using in-memory stores (single instance only)")
		nonces = nonce.NewMemoryStore(cfg.ChallengeTTL)
		revocations = store.NewMemoryStore()
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}

	authService := service.NewAuthService(
		cfg.Domain, cfg.URI,
		tokenizer.NewJWTTokenizer(signKey),
		nonces,
		revocations,
		service.WithTTLs(cfg.ChallengeTTL, cfg.AccessTTL, cfg.RefreshTTL),
		service.WithEventPublisher(events.NewWatermillPublisher(publisher)),
		service.WithLogger(logger),
	)

	var anomalyClient *anomaly.Client
	if cfg.AnomalyURL != "" {
		anomalyClient = anomaly.NewClient(cfg.AnomalyURL, 0)
	} else {
		logger.Warn("ANOMALY_API_URL not set, anomaly routes disabled")
	}

	router := transport.SetupRouter(authService, anomalyClient)

	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
