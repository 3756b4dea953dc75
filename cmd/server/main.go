// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/qolzam/inkwell/admin"
	"github.com/qolzam/inkwell/admin/metrics"
	"github.com/qolzam/inkwell/auth"
	authHandlers "github.com/qolzam/inkwell/auth/handlers"
	"github.com/qolzam/inkwell/auth/jwks"
	authServices "github.com/qolzam/inkwell/auth/services"
	"github.com/qolzam/inkwell/categories"
	categoryHandlers "github.com/qolzam/inkwell/categories/handlers"
	categoryModels "github.com/qolzam/inkwell/categories/models"
	categoryServices "github.com/qolzam/inkwell/categories/services"
	"github.com/qolzam/inkwell/comments"
	commentHandlers "github.com/qolzam/inkwell/comments/handlers"
	commentModels "github.com/qolzam/inkwell/comments/models"
	commentServices "github.com/qolzam/inkwell/comments/services"
	"github.com/qolzam/inkwell/internal/middleware/guards"
	"github.com/qolzam/inkwell/internal/middleware/requestid"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/platform"
	platformconfig "github.com/qolzam/inkwell/internal/platform/config"
	"github.com/qolzam/inkwell/internal/platform/email"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/posts"
	postHandlers "github.com/qolzam/inkwell/posts/handlers"
	postModels "github.com/qolzam/inkwell/posts/models"
	postServices "github.com/qolzam/inkwell/posts/services"
	"github.com/qolzam/inkwell/subscriptions"
	subscriptionHandlers "github.com/qolzam/inkwell/subscriptions/handlers"
	subscriptionModels "github.com/qolzam/inkwell/subscriptions/models"
	subscriptionServices "github.com/qolzam/inkwell/subscriptions/services"
	"github.com/qolzam/inkwell/users"
	userHandlers "github.com/qolzam/inkwell/users/handlers"
	userModels "github.com/qolzam/inkwell/users/models"
	userServices "github.com/qolzam/inkwell/users/services"
	"github.com/qolzam/inkwell/votes"
	voteHandlers "github.com/qolzam/inkwell/votes/handlers"
	voteModels "github.com/qolzam/inkwell/votes/models"
	voteServices "github.com/qolzam/inkwell/votes/services"
)

const jwksKeyID = "inkwell-auth-key-1"

var collections = []platform.Collection{
	{Name: userModels.CollectionName, Indexes: userModels.Indexes},
	{Name: userModels.FollowersCollection, Indexes: userModels.FollowerIndexes},
	{Name: categoryModels.CollectionName, Indexes: categoryModels.Indexes},
	{Name: postModels.CollectionName, Indexes: postModels.Indexes},
	{Name: postModels.ViewsCollection, Indexes: postModels.ViewIndexes},
	{Name: voteModels.CollectionName, Indexes: voteModels.Indexes},
	{Name: commentModels.CollectionName, Indexes: commentModels.Indexes},
	{Name: subscriptionModels.CollectionName, Indexes: subscriptionModels.Indexes},
	{Name: subscriptionModels.PaymentsCollection, Indexes: subscriptionModels.PaymentIndexes},
}

func main() {
	if err := run(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := platformconfig.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load platform config: %w", err)
	}
	log.SetDebug(cfg.Server.Debug)

	ctx := context.Background()
	base, err := platform.NewBaseService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create base service: %w", err)
	}
	defer func() {
		if err := base.Close(); err != nil {
			log.Warn("failed to close resources: %v", err)
		}
	}()

	if err := base.EnsureCollections(ctx, collections...); err != nil {
		return err
	}
	log.Info("✅ %s store ready (%s)", cfg.App.Name, base.GetDatabaseType())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: server.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.Origin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + requestid.HeaderRequestID,
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := base.HealthCheck(c.UserContext()); err != nil {
			return server.SendError(c, fiber.StatusServiceUnavailable, "UNAVAILABLE", "Store is unreachable", nil)
		}
		return server.SendResponse(c, fiber.StatusOK, "OK", nil)
	})

	registerRoutes(app.Group(cfg.Server.BaseRoute), base, cfg)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("Starting %s API server on %s%s", cfg.App.Name, addr, cfg.Server.BaseRoute)
		errCh <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case sig := <-quit:
		log.Info("Received %s, shutting down", sig)
	}

	return shutdown(app, cfg.Server.ShutdownTimeout)
}

func shutdown(app *fiber.App, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func registerRoutes(router fiber.Router, base *platform.BaseService, cfg *platformconfig.Config) {
	store := base.Repository
	settings := base.QuerySettings()

	userService := userServices.NewUserService(store, settings)
	followService := userServices.NewFollowService(store, userService, settings)
	categoryService := categoryServices.NewCategoryService(store, base.Cache, settings)
	subscriptionService := subscriptionServices.NewSubscriptionService(store, subscriptionServices.Plans{
		MonthlyPrice:    cfg.App.MonthlyPrice,
		AnnualPrice:     cfg.App.AnnualPrice,
		DefaultCurrency: cfg.App.DefaultCurrency,
		Monthly:         cfg.App.MonthlySubscription,
		Annual:          cfg.App.AnnualSubscription,
	}, settings)
	var mailer email.Sender
	mailFrom := email.Address{Name: cfg.Email.FromName, Email: cfg.Email.From}
	if cfg.Email.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.Email.SMTPHost, strconv.Itoa(cfg.Email.SMTPPort), cfg.Email.SMTPUser, cfg.Email.SMTPPass)
		if err != nil {
			log.Warn("failed to initialize SMTP sender: %v", err)
		} else {
			mailer = sender
		}
	}
	postService := postServices.NewPostService(store, postServices.Dependencies{
		Categories: categoryService,
		Following:  followService,
		Premium:    subscriptionService,
		Settings:   settings,
		Mailer:     mailer,
		MailFrom:   mailFrom,
	})
	authService := authServices.NewAuthService(store, authServices.Config{
		PrivateKey: cfg.JWT.PrivateKey,
		PublicKey:  cfg.JWT.PublicKey,
		AccessTTL:  cfg.JWT.AccessTTL,
		ResetTTL:   cfg.JWT.ResetTTL,
		ResetURL:   cfg.App.ClientURL + "/reset-password",
		Mailer:     mailer,
		MailFrom:   mailFrom,
	})

	g := guards.New(cfg.JWT.PublicKey, userHandlers.AccessVerifier(userService))

	auth.RegisterRoutes(router, &auth.AuthHandlers{
		AuthHandler: authHandlers.NewAuthHandler(authService),
		JWKSHandler: jwks.NewHandler(cfg.JWT.PublicKey, jwksKeyID),
	}, g, cfg)
	users.RegisterRoutes(router, &users.UsersHandlers{
		UserHandler:   userHandlers.NewUserHandler(userService),
		FollowHandler: userHandlers.NewFollowHandler(followService),
	}, g)
	categories.RegisterRoutes(router, &categories.CategoriesHandlers{
		CategoryHandler: categoryHandlers.NewCategoryHandler(categoryService),
	}, g)
	votes.RegisterRoutes(router, &votes.VotesHandlers{
		VoteHandler: voteHandlers.NewVoteHandler(voteServices.NewVoteService(store)),
	}, g)
	comments.RegisterRoutes(router, &comments.CommentsHandlers{
		CommentHandler: commentHandlers.NewCommentHandler(commentServices.NewCommentService(store, settings)),
	}, g)
	posts.RegisterRoutes(router, &posts.PostsHandlers{
		PostHandler: postHandlers.NewPostHandler(postService),
	}, g)
	subscriptions.RegisterRoutes(router, &subscriptions.SubscriptionsHandlers{
		SubscriptionHandler: subscriptionHandlers.NewSubscriptionHandler(subscriptionService),
	}, g)
	admin.RegisterRoutes(router, &admin.Handlers{
		Metrics: metrics.NewHandler(metrics.NewService(store)),
	}, g)
}
