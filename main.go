package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"farmersupply/internal/cache"
	"farmersupply/internal/cart"
	"farmersupply/internal/config"
	"farmersupply/internal/database"
	"farmersupply/internal/handlers"
	"farmersupply/internal/middleware"
	"farmersupply/internal/models"
	"farmersupply/internal/order"
	"farmersupply/internal/payment"
	"farmersupply/internal/store"
)

func main() {
	app := &cli.App{
		Name:  "farmersupply",
		Usage: "marketplace backend for farm products, carts, orders and Chapa payments",
		Before: func(*cli.Context) error {
			if err := config.Load(); err != nil {
				return err
			}
			config.ConfigureLogging(config.AppEnv)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "in-memory", Usage: "use the in-memory store instead of MongoDB"},
					&cli.StringFlag{Name: "seed", Usage: "JSON file with products and users to load at startup"},
				},
				Action: serve,
			},
			{
				Name:   "ensure-indexes",
				Usage:  "create the MongoDB indexes and exit",
				Action: ensureIndexes,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("[MAIN] exiting")
	}
}

func serve(c *cli.Context) error {
	cfg := config.AppEnv
	inMemory := c.Bool("in-memory")
	if err := cfg.Validate(inMemory); err != nil {
		return err
	}

	ctx := c.Context
	st, closeStore, err := openStore(ctx, cfg, inMemory)
	if err != nil {
		return err
	}
	defer closeStore()

	if path := c.String("seed"); path != "" {
		if err := seed(ctx, st, path); err != nil {
			return err
		}
	}

	cartCache, closeCache := openCache(ctx, cfg)
	defer closeCache()

	carts := cart.NewService(st, st, cartCache)
	orders := order.NewService(st, st, carts)
	gateway := payment.NewChapaClient(payment.ChapaConfig{
		BaseURL:   cfg.ChapaBaseURL,
		SecretKey: cfg.ChapaSecretKey,
		Timeout:   cfg.ChapaTimeout,
	})
	if !gateway.Configured() {
		log.Warn("[MAIN] CHAPA_SECRET_KEY is empty, payment initialization will be refused")
	}
	payments := payment.NewService(st, st, gateway, cfg.FrontendURL)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())
	handlers.RegisterRoutes(r, handlers.Dependencies{
		Store:     st,
		Carts:     carts,
		Orders:    orders,
		Payments:  payments,
		JWTSecret: cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("[MAIN] listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("[MAIN] server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("[MAIN] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func ensureIndexes(c *cli.Context) error {
	cfg := config.AppEnv
	if err := cfg.Validate(false); err != nil {
		return err
	}

	client, err := database.Connect(c.Context, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := database.EnsureIndexes(client.Database(cfg.DBName)); err != nil {
		return err
	}
	log.WithField("db", cfg.DBName).Info("[MAIN] indexes ensured")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, inMemory bool) (store.Store, func(), error) {
	if inMemory {
		log.Info("[MAIN] using in-memory store")
		return store.NewMemory(), func() {}, nil
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	db := client.Database(cfg.DBName)
	log.WithField("db", db.Name()).Info("[MAIN] MongoDB connected")

	if err := database.EnsureIndexes(db); err != nil {
		log.WithError(err).Warn("[MAIN] index setup incomplete")
	}

	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("[MAIN] mongo disconnect failed")
		}
	}
	return store.NewMongo(db), closeFn, nil
}

// openCache falls back to the no-op cache when Redis is not configured or
// does not answer, so the API keeps serving from the store.
func openCache(ctx context.Context, cfg config.Config) (cache.CartCache, func()) {
	if cfg.RedisAddr == "" {
		return cache.Noop{}, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("[MAIN] redis unavailable, cart cache disabled")
		_ = client.Close()
		return cache.Noop{}, func() {}
	}

	log.WithField("addr", cfg.RedisAddr).Info("[MAIN] cart cache enabled")
	return cache.NewRedisCache(client, cfg.CartCacheTTL), func() { _ = client.Close() }
}

type seedFile struct {
	Products []models.Product `json:"products"`
	Users    []models.User    `json:"users"`
}

func seed(ctx context.Context, st store.Seeder, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var data seedFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.Wrap(err, "parse seed file")
	}

	now := time.Now()
	for _, product := range data.Products {
		if err := models.ValidateSale(product); err != nil {
			return errors.Wrapf(err, "seed product %q", product.Name)
		}
		if product.CreatedAt.IsZero() {
			product.CreatedAt = now
		}
		if err := st.PutProduct(ctx, product); err != nil {
			return errors.Wrapf(err, "seed product %q", product.Name)
		}
	}
	for _, user := range data.Users {
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		if err := st.PutUser(ctx, user); err != nil {
			return errors.Wrapf(err, "seed user %q", user.Email)
		}
	}

	log.WithFields(log.Fields{"products": len(data.Products), "users": len(data.Users)}).Info("[MAIN] seed loaded")
	return nil
}
