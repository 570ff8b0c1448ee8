package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	multilogin "github.com/multilogin/go-multilogin"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := multilogin.LoadConfig()
	if err != nil {
		return err
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	if err := multilogin.ApplyMigrations(ctx, db); err != nil {
		return err
	}

	repo := multilogin.NewRepositoryManager(db)
	repo.MustValidate()

	hasher := multilogin.NewHMACHasher(cfg.GetHashingSecret())

	tsOpts := []multilogin.TokenServiceOption{}
	if cfg.GetVerifyIssuer() {
		tsOpts = append(tsOpts, multilogin.WithIssuerCheck())
	}
	if cfg.GetVerifyAudience() {
		tsOpts = append(tsOpts, multilogin.WithAudienceCheck())
	}

	tokens := multilogin.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenTTL(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		tsOpts...,
	)

	auther := multilogin.NewAuthenticator(repo.Users(), hasher, tokens)

	if cfg.GetAssertionAudience() != "" {
		oracle, err := multilogin.NewOIDCOracle(ctx, cfg.GetAssertionIssuer())
		if err != nil {
			return err
		}
		auther.WithAssertionVerifier(
			multilogin.NewAssertionVerifier(oracle, cfg.GetAssertionAudience(), nil),
		)
	}

	if cfg.GetAutoProvision() {
		auther.WithProvisioningPolicy(multilogin.AutoProvisionPolicy{})
	} else {
		auther.WithProvisioningPolicy(multilogin.StrictPolicy{})
	}

	relay := multilogin.NewForwardingRelay(
		cfg.GetForwardTarget(),
		multilogin.WithRelayTimeout(cfg.GetForwardTimeout()),
	)

	controller := multilogin.NewHTTPController(
		multilogin.WithRepositoryManager(repo),
		multilogin.WithAuther(auther),
		multilogin.WithHasher(hasher),
		multilogin.WithRelay(relay),
	)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	controller.RegisterRoutes(srv.Router())

	srv.Serve(cfg.BindAddress)

	<-ctx.Done()

	return nil
}
