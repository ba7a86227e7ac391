package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"agrichain/config"
	"agrichain/core/events"
	"agrichain/core/state"
	"agrichain/crypto"
	"agrichain/native/access"
	"agrichain/native/multisig"
	"agrichain/native/payments"
	"agrichain/native/ratelimit"
	"agrichain/native/registry"
	"agrichain/observability/logging"
	"agrichain/observability/metrics"
	"agrichain/rpc"
	"agrichain/storage"
)

const envVar = "AGRICHAIN_ENV"

// meteredEmitter feeds the RPC event buffer and bumps the emission counter.
type meteredEmitter struct {
	feed *events.Recorder
}

func (m meteredEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	metrics.Core().ObserveEvent(evt.EventType())
	m.feed.Emit(evt)
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	keygen := flag.Bool("keygen", false, "Generate an operator keypair, print it, and exit")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))
	logger := logging.Setup("agrichaind", env)

	if *keygen {
		if err := printNewKeypair(os.Stdout); err != nil {
			logger.Error("Failed to generate keypair", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	admin, err := cfg.Admin()
	if err != nil {
		logger.Error("Config has no usable admin address", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "core"))
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	feed := events.NewRecorder(1024)
	emitter := meteredEmitter{feed: feed}

	limiter := ratelimit.NewLimiter(manager)
	limiter.SetWindowSeconds(cfg.Limits.WindowSeconds)

	accessEngine := access.NewEngine()
	accessEngine.SetState(manager)
	accessEngine.SetEmitter(emitter)
	if err := accessEngine.BootstrapAdmin(admin); err != nil {
		logger.Error("Failed to bootstrap admin role", slog.Any("error", err))
		os.Exit(1)
	}

	gate := multisig.NewGate(admin)
	gate.SetState(manager)
	if authority := strings.TrimSpace(cfg.MultiSig.Authority); authority != "" {
		decoded, err := crypto.DecodeAddress(authority)
		if err != nil {
			logger.Error("Invalid multisig authority in config", slog.Any("error", err))
			os.Exit(1)
		}
		if err := gate.SetAuthority(admin, decoded.Array()); err != nil {
			// A previously enabled gate refuses reconfiguration by the admin.
			logger.Warn("Could not apply configured multisig authority", slog.Any("error", err))
		} else if cfg.MultiSig.Enabled {
			if err := gate.SetEnabled(admin, true); err != nil {
				logger.Warn("Could not enable multisig gate", slog.Any("error", err))
			}
		}
	}

	registryEngine := registry.NewEngine()
	registryEngine.SetState(manager)
	registryEngine.SetAccessGate(accessEngine)
	registryEngine.SetRateGate(limiter)
	registryEngine.SetEmitter(emitter)
	registryEngine.SetCommitWindows(cfg.Commitments.RevealDelaySeconds, cfg.Commitments.ExpiryWindowSeconds)
	registryEngine.SetRegistrationLimit(cfg.Limits.ProductRegistrationPerDay)

	paymentsEngine := payments.NewEngine()
	paymentsEngine.SetState(manager)
	paymentsEngine.SetGate(gate)
	paymentsEngine.SetAccessGate(accessEngine)
	paymentsEngine.SetRateGate(limiter)
	paymentsEngine.SetEmitter(emitter)
	paymentsEngine.SetDailyLimit(cfg.Limits.PaymentCreationPerDay)
	paymentsEngine.SetGracePeriod(cfg.Payments.GracePeriodSeconds)
	if err := seedPaymentParams(manager, cfg); err != nil {
		logger.Error("Failed to seed payment parameters", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.NewServer(accessEngine, registryEngine, paymentsEngine, feed, logger)
	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("RPC server listening", slog.String("addr", cfg.RPCAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("RPC server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", slog.Any("error", err))
	}
	logger.Info("Shutdown complete")
}

// printNewKeypair mints a fresh operator identity, e.g. the admin address a
// deployment puts into its config before first start. The private key is
// printed once and never stored by the service.
func printNewKeypair(w io.Writer) error {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "address:    %s\nprivateKey: %s\n",
		key.PubKey().Address().String(), hex.EncodeToString(key.Bytes()))
	return err
}

// seedPaymentParams writes the configured fee and wallet only when no value
// is stored yet, so runtime admin updates are never clobbered on restart.
func seedPaymentParams(manager *state.Manager, cfg *config.Config) error {
	if _, ok, err := manager.PlatformFeeGet(); err != nil {
		return err
	} else if !ok {
		if err := manager.PlatformFeePut(cfg.Payments.PlatformFeeBps); err != nil {
			return err
		}
	}
	wallet := strings.TrimSpace(cfg.Payments.PlatformWallet)
	if wallet == "" {
		return nil
	}
	if _, ok, err := manager.PlatformWalletGet(); err != nil {
		return err
	} else if ok {
		return nil
	}
	decoded, err := crypto.DecodeAddress(wallet)
	if err != nil {
		return err
	}
	return manager.PlatformWalletPut(decoded.Array())
}
