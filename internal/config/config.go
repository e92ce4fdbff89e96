package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jessevdk/go-flags"
)

// Options are the command-line flags, each overridable through the environment.
type Options struct {
	HTTPPort int `long:"http-port" env:"RAFFLE_HTTP_PORT" default:"3000" description:"HTTP listen port"`

	ChainID       int64  `long:"chain-id" env:"CHAIN_ID" default:"31337" description:"selected chain id"`
	ChainsPath    string `long:"chains" env:"CHAINS_PATH" description:"JSON file with chain descriptors"`
	RPCURL        string `long:"rpc-url" env:"CHAIN_RPC_URL" description:"overrides the selected chain RPC endpoint"`
	RaffleAddress string `long:"raffle-address" env:"RAFFLE_ADDRESS" description:"overrides the raffle contract address"`
	FakeChain     bool   `long:"fake-chain" env:"RAFFLE_FAKE_CHAIN" description:"serve an in-memory raffle instead of dialing RPC"`

	DrawInterval   time.Duration `long:"draw-interval" env:"DRAW_INTERVAL" default:"720h" description:"configured raffle draw period"`
	PollInterval   time.Duration `long:"poll-interval" env:"POLL_INTERVAL" default:"4s" description:"contract read refresh period"`
	ReadRPS        int           `long:"read-rps" env:"READ_RPS" default:"10" description:"max contract reads per second"`
	RPCTimeout     time.Duration `long:"rpc-timeout" env:"RPC_TIMEOUT" default:"10s" description:"timeout for a single read call"`
	ReceiptPoll    time.Duration `long:"receipt-poll" env:"RECEIPT_POLL" default:"2s" description:"receipt polling period"`
	ReceiptTimeout time.Duration `long:"receipt-timeout" env:"RECEIPT_TIMEOUT" default:"10m" description:"how long to wait for inclusion"`

	HMACSecret        string        `long:"hmac-secret" env:"API_HMAC_SECRET" description:"signs state-changing API calls; empty disables"`
	HMACClockSkew     time.Duration `long:"hmac-clock-skew" env:"HMAC_CLOCK_SKEW" default:"60s"`
	IdempotencyWindow time.Duration `long:"idempotency-window" env:"IDEMPOTENCY_WINDOW" default:"10m"`
	AllowedOrigins    []string      `long:"allowed-origin" env:"ALLOWED_ORIGINS" env-delim:"," description:"CORS origins"`

	DevPrivateKey      string `long:"dev-private-key" env:"WALLET_DEV_PRIVATE_KEY" description:"hex key for the dev connector"`
	KeystoreDir        string `long:"keystore" env:"WALLET_KEYSTORE_DIR" description:"keystore directory for the keystore connector"`
	KeystorePassphrase string `long:"keystore-passphrase" env:"WALLET_KEYSTORE_PASSPHRASE"`
	ClefEndpoint       string `long:"clef" env:"WALLET_CLEF_ENDPOINT" description:"clef IPC path or URL"`

	LogLevel       string `long:"log-level" env:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `long:"log-development" env:"LOG_DEVELOPMENT"`
}

// AppConfig ties together parsed options and the selected chain.
type AppConfig struct {
	Service ServiceConfig
	Chain   ChainConfig
	Raffle  RaffleConfig
	Wallet  WalletConfig
	Log     LogConfig
}

type ServiceConfig struct {
	HTTPPort          int
	HMACSecret        string
	HMACClockSkew     time.Duration
	IdempotencyWindow time.Duration
	AllowedOrigins    []string
}

// ChainConfig is the network the process is pinned to.
type ChainConfig struct {
	Descriptor ChainDescriptor
	RPCURL     string
	Fake       bool
}

type RaffleConfig struct {
	Address        common.Address
	DrawInterval   time.Duration
	PollInterval   time.Duration
	ReadRPS        int
	RPCTimeout     time.Duration
	ReceiptPoll    time.Duration
	ReceiptTimeout time.Duration
}

type WalletConfig struct {
	DevPrivateKey      string
	KeystoreDir        string
	KeystorePassphrase string
	ClefEndpoint       string
}

type LogConfig struct {
	Level       string
	Development bool
}

// Load parses args and the environment, then resolves the selected chain.
func Load(args []string) (*AppConfig, error) {
	var opts Options
	if _, err := flags.ParseArgs(&opts, args); err != nil {
		return nil, fmt.Errorf("parse options: %w", err)
	}
	return FromOptions(opts)
}

// FromOptions builds the application config from already parsed options.
func FromOptions(opts Options) (*AppConfig, error) {
	chains := DefaultChains()
	if opts.ChainsPath != "" {
		loaded, err := loadChains(opts.ChainsPath)
		if err != nil {
			return nil, fmt.Errorf("load chains: %w", err)
		}
		chains = loaded
	}

	chain, ok := chains.Find(opts.ChainID)
	if !ok {
		return nil, fmt.Errorf("chain %d is not configured", opts.ChainID)
	}

	address, err := chains.RaffleAddress(chain.ChainID, opts.RaffleAddress)
	if err != nil {
		return nil, err
	}

	rpcURL := chain.RPCURL
	if opts.RPCURL != "" {
		rpcURL = opts.RPCURL
	}
	if rpcURL == "" && !opts.FakeChain {
		return nil, errors.New("rpc url is required unless --fake-chain is set")
	}

	if opts.DrawInterval <= 0 {
		return nil, errors.New("draw interval must be positive")
	}
	if opts.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}
	if opts.ReadRPS <= 0 {
		opts.ReadRPS = 1
	}

	return &AppConfig{
		Service: ServiceConfig{
			HTTPPort:          opts.HTTPPort,
			HMACSecret:        opts.HMACSecret,
			HMACClockSkew:     opts.HMACClockSkew,
			IdempotencyWindow: opts.IdempotencyWindow,
			AllowedOrigins:    opts.AllowedOrigins,
		},
		Chain: ChainConfig{
			Descriptor: chain,
			RPCURL:     rpcURL,
			Fake:       opts.FakeChain,
		},
		Raffle: RaffleConfig{
			Address:        address,
			DrawInterval:   opts.DrawInterval,
			PollInterval:   opts.PollInterval,
			ReadRPS:        opts.ReadRPS,
			RPCTimeout:     opts.RPCTimeout,
			ReceiptPoll:    opts.ReceiptPoll,
			ReceiptTimeout: opts.ReceiptTimeout,
		},
		Wallet: WalletConfig{
			DevPrivateKey:      strings.TrimSpace(opts.DevPrivateKey),
			KeystoreDir:        opts.KeystoreDir,
			KeystorePassphrase: opts.KeystorePassphrase,
			ClefEndpoint:       opts.ClefEndpoint,
		},
		Log: LogConfig{
			Level:       opts.LogLevel,
			Development: opts.LogDevelopment,
		},
	}, nil
}

func loadChains(path string) (Chains, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Chains Chains `json:"chains"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if len(file.Chains) == 0 {
		return nil, errors.New("no chains defined")
	}
	for _, c := range file.Chains {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Chains, nil
}
