// Package config also contains ledger and aggregator configuration surfaces.
package config

// Ledger defines the RPC endpoint shared by discovery and broadcast.
type Ledger struct {
	RpcURL     string `yaml:"rpc_url"`
	Commitment string `yaml:"commitment"` // processed|confirmed|finalized
}

// Aggregator configures the swap aggregator used for conversion.
type Aggregator struct {
	BaseURL           string `yaml:"base_url"` // https://quote-api.jup.ag
	TargetMint        string `yaml:"target_mint"`
	SlippageBps       int    `yaml:"slippage_bps"`
	QuoteAttempts     int    `yaml:"quote_attempts"`
	QuoteRetryDelayMs int    `yaml:"quote_retry_delay_ms"`
	// RequoteOnBuildFailure defaults to true when unset.
	RequoteOnBuildFailure     *bool  `yaml:"requote_on_build_failure"`
	PrioritizationFeeLamports uint64 `yaml:"prioritization_fee_lamports"`
}

// Broadcast tunes submission and confirmation.
type Broadcast struct {
	SkipPreflight *bool `yaml:"skip_preflight"`
	// MaxRetries and SubmitRetries default to 2 when unset; 0 disables retrying.
	MaxRetries     *uint `yaml:"max_retries"`
	SubmitRetries  *int  `yaml:"submit_retries"`
	PollIntervalMs int   `yaml:"poll_interval_ms"`
}

// Wallet stores env-backed signing material metadata.
type Wallet struct {
	PrivateKeyBase58 string `yaml:"private_key_base58"`
}
