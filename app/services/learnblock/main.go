package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/learnblock/learnblock/app/services/learnblock/handlers"
	"github.com/learnblock/learnblock/app/services/learnblock/handlers/v1/learngrp"
	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/business/sys/metrics"
	"github.com/learnblock/learnblock/business/web/auth"
	"github.com/learnblock/learnblock/foundation/contract"
	"github.com/learnblock/learnblock/foundation/events"
	"github.com/learnblock/learnblock/foundation/logger"
	"github.com/learnblock/learnblock/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("LEARNBLOCK")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// The chain settings have no defaults and must be provided.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10m"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			APIHost         string        `conf:"default:0.0.0.0:3000"`
			CorsOrigin      string        `conf:"default:*"`
			CookieSecure    bool          `conf:"default:false"`
		}
		Chain struct {
			RPCURL                 string        `conf:"required"`
			ContractAddress        string        `conf:"required"`
			WalletConnectProjectID string        `conf:"required"`
			DialTimeout            time.Duration `conf:"default:10s"`
		}
		Signer struct {
			Folder string `conf:"default:zblock/accounts/"`
			Name   string
		}
		Sync struct {
			Account       string
			RetryInterval time.Duration `conf:"default:30s"`
			FetchLimit    int           `conf:"default:8"`
		}
		Auth struct {
			Domain     string        `conf:"default:localhost:3000"`
			Secret     string        `conf:"mask"`
			SessionTTL time.Duration `conf:"default:24h"`
			NonceTTL   time.Duration `conf:"default:5m"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "LearnBlock on-chain state service",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "LEARNBLOCK"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for account addresses
	// and holds the signing keys found in the accounts folder.
	ns, err := nameservice.New(cfg.Signer.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	var privateKey *ecdsa.PrivateKey
	if cfg.Signer.Name != "" {
		privateKey, err = ns.PrivateKey(cfg.Signer.Name)
		if err != nil {
			return fmt.Errorf("unable to load private key for signer: %w", err)
		}
	}

	// =========================================================================
	// Contract Support

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Chain.DialTimeout)
	defer cancel()

	reader, writer, err := contract.Bind(ctx, contract.Config{
		RPCURL:  cfg.Chain.RPCURL,
		Address: cfg.Chain.ContractAddress,
	}, privateKey)
	if err != nil {
		return fmt.Errorf("binding contract: %w", err)
	}
	defer reader.Close()

	id, err := reader.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}
	chainID := id.Int64()

	log.Infow("startup", "status", "contract bound", "contract", reader.Address(), "chainid", chainID, "signer", writer != nil)

	// =========================================================================
	// State Support

	m := metrics.New("learnblock")

	// The core accepts a function of this signature to allow the application
	// to log. These messages are also sent to any websocket client that is
	// connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(events.Event{Type: events.TypeLog, Message: s})
	}

	onCommit := func(snap state.Snapshot) {
		evts.Send(events.Event{
			Type:    events.TypeSnapshot,
			Version: snap.Version,
			Data:    learngrp.ToAppSnapshot(snap),
		})
	}

	st, err := state.New(state.Config{
		Reader:        reader,
		RetryInterval: cfg.Sync.RetryInterval,
		FetchLimit:    cfg.Sync.FetchLimit,
		Metrics:       m,
		EvHandler:     ev,
		OnCommit:      onCommit,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// With a signer the core is bound to the signer's account. Without one
	// it follows a configured account or whoever signs in.
	followSession := false
	switch {
	case writer != nil:
		if err := st.Connect(context.Background(), writer.From(), writer); err != nil {
			return fmt.Errorf("connecting signer: %w", err)
		}

	case cfg.Sync.Account != "":
		if !common.IsHexAddress(cfg.Sync.Account) {
			return fmt.Errorf("invalid sync account %q", cfg.Sync.Account)
		}
		if err := st.Connect(context.Background(), common.HexToAddress(cfg.Sync.Account), nil); err != nil {
			return fmt.Errorf("connecting account: %w", err)
		}

	default:
		followSession = true
		st.LoadAllContentIDs(context.Background())
	}

	// =========================================================================
	// Auth Support

	secret := cfg.Auth.Secret
	if secret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("generating session secret: %w", err)
		}
		secret = hex.EncodeToString(b)
		log.Infow("startup", "status", "generated session secret, sessions end on restart")
	}

	ath, err := auth.New(auth.Config{
		Domain:     cfg.Auth.Domain,
		ChainID:    chainID,
		Secret:     secret,
		SessionTTL: cfg.Auth.SessionTTL,
		NonceTTL:   cfg.Auth.NonceTTL,
	})
	if err != nil {
		return fmt.Errorf("constructing auth: %w", err)
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	ready := func(ctx context.Context) error {
		_, err := reader.ChainID(ctx)
		return err
	}

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, m, ready)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Construct the mux for the API calls.
	apiMux := handlers.APIMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Metrics:  m,
		State:    st,
		Auth:     ath,
		NS:       ns,
		Evts:     evts,
		Public: learngrp.PublicConfig{
			ChainID:                chainID,
			RPCURL:                 cfg.Chain.RPCURL,
			ContractAddress:        reader.Address().Hex(),
			WalletConnectProjectID: cfg.Chain.WalletConnectProjectID,
		},
		CorsOrigin:    cfg.Web.CorsOrigin,
		CookieSecure:  cfg.Web.CookieSecure,
		FollowSession: followSession,
	})

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
