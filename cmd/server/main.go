package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"rafflefront/internal/config"
	"rafflefront/internal/entry"
	"rafflefront/internal/idempotency"
	"rafflefront/internal/metrics"
	"rafflefront/internal/raffle"
	"rafflefront/internal/readview"
	"rafflefront/internal/server"
	"rafflefront/internal/wallet"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("raffle client stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	m := metrics.New()

	contract, closeContract, err := newContract(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer closeContract()

	provider := wallet.NewProvider(logger.Named("wallet"), m, connectors(cfg.Wallet)...)

	poller := readview.NewPoller(contract, readview.Options{
		PollInterval:   cfg.Raffle.PollInterval,
		CallTimeout:    cfg.Raffle.RPCTimeout,
		ReadsPerSecond: cfg.Raffle.ReadRPS,
	}, logger.Named("readview"))
	poller.Start(ctx)
	defer poller.Stop()

	flow := entry.NewFlow(poller, provider, contract, entry.Options{
		ReceiptTimeout: cfg.Raffle.ReceiptTimeout,
		OnConfirmed:    poller.Refresh,
	}, logger.Named("entry"), m)
	defer flow.Close()

	srv := server.NewServer(cfg, server.Deps{
		Wallet:   provider,
		View:     poller,
		Entries:  flow,
		Contract: contract,
		Store:    idempotency.NewMemoryStore(),
		Metrics:  m,
		Logger:   logger.Named("http"),
	})

	logger.Info("raffle client starting",
		zap.String("chain", cfg.Chain.Descriptor.Name),
		zap.Int64("chain_id", cfg.Chain.Descriptor.ChainID),
		zap.String("contract", cfg.Raffle.Address.Hex()),
		zap.Bool("fake_chain", cfg.Chain.Fake))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type contractClient interface {
	raffle.Client
	raffle.HealthChecker
}

func newContract(ctx context.Context, cfg *config.AppConfig, m *metrics.Registry) (contractClient, func(), error) {
	if cfg.Chain.Fake {
		fee := raffle.DemoFee(cfg.Chain.Descriptor.Currency.Decimals)
		return raffle.NewFakeClient(fee, time.Now()), func() {}, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Raffle.RPCTimeout)
	defer cancel()
	client, err := raffle.NewEthClient(dialCtx, raffle.EthClientConfig{
		RPCURL:      cfg.Chain.RPCURL,
		Contract:    cfg.Raffle.Address,
		ReceiptPoll: cfg.Raffle.ReceiptPoll,
		Metrics:     m,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("raffle client: %w", err)
	}
	return client, client.Close, nil
}

// connectors lists the configured wallets in display order.
func connectors(cfg config.WalletConfig) []wallet.Connector {
	var list []wallet.Connector
	if cfg.ClefEndpoint != "" {
		list = append(list, wallet.ClefConnector{Endpoint: cfg.ClefEndpoint})
	}
	if cfg.KeystoreDir != "" {
		list = append(list, wallet.KeystoreConnector{Dir: cfg.KeystoreDir, Passphrase: cfg.KeystorePassphrase})
	}
	if cfg.DevPrivateKey != "" {
		list = append(list, wallet.DevConnector{PrivateKeyHex: cfg.DevPrivateKey})
	}
	return list
}
