package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"dustsweep-go/internal/config"
	"dustsweep-go/internal/dex/jupiter"
	ledger "dustsweep-go/internal/dex/solana"
	"dustsweep-go/internal/execution"
	"dustsweep-go/internal/holding"
	"dustsweep-go/internal/inventory"
	"dustsweep-go/internal/metrics"
	"dustsweep-go/internal/pricing"
	"dustsweep-go/internal/util"
)

// session owns every handle a command opens and releases them in Close.
type session struct {
	cfg      *config.Config
	log      zerolog.Logger
	orch     *execution.Orchestrator
	closers  []func() error
	currency string
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Debug().Err(err).Msg("close")
		}
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !c.IsSet("config") {
		cfg, err = config.Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *config.Config) error {
	cfg.Ledger.RpcURL = util.Getenv("SOLANA_RPC_URL", cfg.Ledger.RpcURL)
	cfg.Aggregator.BaseURL = util.Getenv("JUPITER_BASE_URL", cfg.Aggregator.BaseURL)
	cfg.Ledger.Commitment = util.Getenv("SOLANA_COMMITMENT", cfg.Ledger.Commitment)
	if v := util.Getenv("DUST_THRESHOLD_USD", ""); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("DUST_THRESHOLD_USD: %w", err)
		}
		cfg.Dust.ThresholdUSD = d.InexactFloat64()
	}
	return nil
}

// open wires the pipeline. needKey is false for read-only commands with an explicit account.
func open(c *cli.Context, needKey bool) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := util.NewConsoleLogger(c.App.ErrWriter, cfg.App.LogLevel)
	s := &session{cfg: cfg, log: log, currency: cfg.Pricing.Currency}

	var owner solana.PublicKey
	if acct := c.String("account"); acct != "" {
		owner, err = solana.PublicKeyFromBase58(acct)
		if err != nil {
			return nil, fmt.Errorf("account: %w", err)
		}
	}

	var signer execution.Signer
	if needKey || owner == (solana.PublicKey{}) {
		key, err := loadKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("wallet: %w", err)
		}
		signer = ledger.NewKeypairSigner(key)
	}

	if cfg.App.MetricsAddr != "" {
		srv := metrics.Serve(cfg.App.MetricsAddr, log)
		s.closers = append(s.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		})
	}

	client := rpc.New(cfg.Ledger.RpcURL)
	s.closers = append(s.closers, client.Close)
	commitment := ledger.ParseCommitment(cfg.Ledger.Commitment)

	inv, err := newInventory(cfg, client, commitment, log)
	if err != nil {
		s.Close()
		return nil, err
	}
	oracle := pricing.NewOracle(newPriceSource(c.Context, s, log), log)

	jup := jupiter.NewClient(cfg.Aggregator.BaseURL)
	jup.PrioritizationFeeLamports = cfg.Aggregator.PrioritizationFeeLamports
	quotes := jupiter.NewQuoteService(jup, cfg.Aggregator.QuoteAttempts,
		time.Duration(cfg.Aggregator.QuoteRetryDelayMs)*time.Millisecond, log)

	broadcaster := ledger.NewBroadcaster(client, ledger.BroadcastOptions{
		Commitment:    commitment,
		SkipPreflight: *cfg.Broadcast.SkipPreflight,
		MaxRetries:    *cfg.Broadcast.MaxRetries,
		SubmitRetries: *cfg.Broadcast.SubmitRetries,
		PollInterval:  time.Duration(cfg.Broadcast.PollIntervalMs) * time.Millisecond,
	}, log)

	reporters := execution.Reporters{execution.NewLogReporter(log)}
	if cfg.App.EventsPath != "" {
		journal, err := execution.NewJSONLReporter(cfg.App.EventsPath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("events journal: %w", err)
		}
		s.closers = append(s.closers, journal.Close)
		reporters = append(reporters, journal)
	}

	exclude := lo.Uniq(append(append([]string{}, cfg.Dust.Exclude...), c.StringSlice("skip")...))
	s.orch = execution.New(execution.Deps{
		Inventory:   inv,
		Oracle:      oracle,
		Quoter:      quotes,
		Builder:     jup,
		Signer:      signer,
		Broadcaster: broadcaster,
	}, execution.Options{
		Owner:       owner,
		TargetMint:  cfg.Aggregator.TargetMint,
		SlippageBps: cfg.Aggregator.SlippageBps,
		Filter: holding.DustFilter{
			Threshold: decimal.NewFromFloat(cfg.Dust.ThresholdUSD),
			Exclude:   exclude,
		},
		RequoteOnBuildFailure: *cfg.Aggregator.RequoteOnBuildFailure,
	}, reporters, log)
	return s, nil
}

func loadKey(cfg *config.Config) (solana.PrivateKey, error) {
	if k := strings.TrimSpace(cfg.Wallet.PrivateKeyBase58); k != "" {
		return solana.PrivateKeyFromBase58(k)
	}
	return ledger.LoadPrivateKeyFromEnv()
}

func newInventory(cfg *config.Config, client *rpc.Client, commitment rpc.CommitmentType, log zerolog.Logger) (inventory.Inventory, error) {
	switch cfg.Inventory.Backend {
	case inventory.BackendIndexer:
		return inventory.NewIndexer(cfg.Inventory.IndexerURL, cfg.Inventory.IndexerAPIKey), nil
	default:
		programs := make([]solana.PublicKey, 0, len(cfg.Inventory.TokenPrograms))
		for _, p := range cfg.Inventory.TokenPrograms {
			pk, err := solana.PublicKeyFromBase58(p)
			if err != nil {
				return nil, fmt.Errorf("inventory.token_programs %q: %w", p, err)
			}
			programs = append(programs, pk)
		}
		return inventory.NewRPC(client, programs, commitment, log), nil
	}
}

// newPriceSource puts the configured source behind Redis when reachable, else an in-process cache.
func newPriceSource(ctx context.Context, s *session, log zerolog.Logger) pricing.Source {
	cfg := s.cfg
	var source pricing.Source
	switch cfg.Pricing.Source {
	case "dexscreener":
		source = pricing.NewDexScreener(cfg.Pricing.DexScreener.BaseURL, cfg.Pricing.DexScreener.DefaultChain)
	default:
		source = pricing.NewCatalog(cfg.Pricing.CatalogURL)
	}
	ttl := time.Duration(cfg.Pricing.CacheTTLSecs) * time.Second

	var cache pricing.CatalogCache = pricing.NewMemoryCache(ttl)
	if cfg.Pricing.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Pricing.RedisAddr})
		rc := pricing.NewRedisCache(client, ttl)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Pricing.RedisAddr).Msg("redis unavailable, caching in memory")
			_ = client.Close()
		} else {
			cache = rc
			s.closers = append(s.closers, client.Close)
		}
	}
	return pricing.NewCached(source, cache, log)
}
