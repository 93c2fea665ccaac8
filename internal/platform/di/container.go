// internal/platform/di/container.go
package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	httpin "ayyooya/internal/adapters/in/http"
	"ayyooya/internal/adapters/in/http/handlers"
	"ayyooya/internal/adapters/in/http/middleware"
	authout "ayyooya/internal/adapters/out/auth"
	"ayyooya/internal/adapters/out/db"
	fsout "ayyooya/internal/adapters/out/firestore"
	"ayyooya/internal/adapters/out/gcs"
	"ayyooya/internal/adapters/out/localstore"
	"ayyooya/internal/adapters/out/mail"
	"ayyooya/internal/adapters/out/memory"
	"ayyooya/internal/adapters/out/secrets"
	"ayyooya/internal/application/usecase"
	"ayyooya/internal/domain/localstate"
	"ayyooya/internal/domain/media"
	orderdom "ayyooya/internal/domain/order"
	productdom "ayyooya/internal/domain/product"
	sessiondom "ayyooya/internal/domain/session"
	"ayyooya/internal/infra/config"
	"ayyooya/internal/infra/database"
	firestoreinfra "ayyooya/internal/infra/firestore"
)

// productStore is what the catalog and the order workflow need from the
// products table.
type productStore interface {
	productdom.Repository
	usecase.ProductMarker
}

// RoleSetter grants or removes the admin role.
type RoleSetter interface {
	SetRole(ctx context.Context, uid string, role sessiondom.Role) error
}

// Container owns every client and usecase of one storefront process.
type Container struct {
	Config *config.Config
	Log    *zap.Logger

	Local    localstate.Store
	Orders   orderdom.Repository
	Products productdom.Repository
	Feed     orderdom.ChangeFeed
	Objects  media.Store
	Auth     sessiondom.AuthPort
	// Roles is nil unless the Firebase Admin SDK is configured.
	Roles RoleSetter

	Cart     *usecase.CartStore
	Sessions *usecase.SessionWatcher
	Guard    *usecase.InFlight
	Catalog  *usecase.CatalogUsecase
	Checkout *usecase.CheckoutUsecase
	Query    *usecase.OrderQuery
	Workflow *usecase.OrderWorkflow
	Board    *usecase.AdminOrders
	Tracker  *usecase.TrackingNotifier

	authWatch func(ctx context.Context) error
	ready     func(ctx context.Context) error
	closers   []func() error
}

// NewContainer builds the storefront from cfg. On error everything opened
// so far is closed.
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("di: config is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Container{Config: cfg, Log: log}
	if err := c.init(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) init(ctx context.Context) error {
	cfg, log := c.Config, c.Log

	if err := c.resolveSecrets(ctx); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var opts []option.ClientOption
	if f := strings.TrimSpace(cfg.CredentialsFile); f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}

	if err := c.initLocal(ctx); err != nil {
		return err
	}
	products, err := c.initBackend(ctx, opts)
	if err != nil {
		return err
	}
	if err := c.initObjects(ctx, opts); err != nil {
		return err
	}
	users, err := c.initAuth(ctx, opts)
	if err != nil {
		return err
	}

	c.Cart = usecase.NewCartStore(ctx, c.Local, log)
	c.Sessions = usecase.NewSessionWatcher(c.Auth, c.Cart, c.Local, log)
	if ierr := c.Sessions.Init(ctx); ierr != nil {
		log.Warn("session init failed; starting signed out", zap.Error(ierr))
	}
	c.Guard = usecase.NewInFlight(cfg.Backend.CallTimeout)

	wfOpts := []usecase.OrderWorkflowOption{
		usecase.WithRetryPolicy(usecase.RetryPolicy{
			Attempts: cfg.Backend.RetryAttempts,
			Interval: cfg.Backend.RetryInterval,
		}),
	}
	if key := strings.TrimSpace(cfg.Mail.SendGridAPIKey); key != "" && users != nil {
		client := mail.NewSendGridClient(key, cfg.Mail.FromName, log)
		wfOpts = append(wfOpts, usecase.WithTrackingMailer(
			mail.NewTrackingMailer(client, users, cfg.Mail.From, cfg.Mail.ShopBaseURL)))
		log.Info("tracking emails enabled")
	}

	c.Catalog = usecase.NewCatalogUsecase(products, c.Objects, c.Sessions, cfg.Storage.ProductImageBucket, log)
	c.Checkout = usecase.NewCheckoutUsecase(c.Cart, c.Sessions, c.Orders, c.Objects, cfg.Storage.SlipBucket, log)
	c.Query = usecase.NewOrderQuery(c.Orders, c.Sessions, usecase.WithProductLookup(products, 0))
	c.Workflow = usecase.NewOrderWorkflow(c.Orders, products, c.Sessions, log, wfOpts...)
	c.Board = usecase.NewAdminOrders(c.Query, c.Workflow, nil, log)
	c.Tracker = usecase.NewTrackingNotifier(ctx, c.Orders, c.Feed, c.Sessions, c.Local, log)
	return nil
}

func (c *Container) resolveSecrets(ctx context.Context) error {
	need := false
	for _, p := range c.Config.Secrets() {
		if secrets.IsReference(*p) {
			need = true
			break
		}
	}
	if !need {
		return nil
	}
	r, err := secrets.NewResolverSM(ctx, c.Config.ProjectID)
	if err != nil {
		return fmt.Errorf("di: secret manager: %w", err)
	}
	defer r.Close()
	return c.Config.ResolveSecrets(ctx, r)
}

func (c *Container) initLocal(ctx context.Context) error {
	cfg := c.Config.Local
	switch cfg.Driver {
	case config.LocalMemory:
		c.Local = localstore.NewMemoryStore()
	case config.LocalRedis:
		client, err := localstore.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("di: redis: %w", err)
		}
		c.closers = append(c.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("di: redis ping: %w", err)
		}
		c.Local = localstore.NewRedisStore(client, cfg.Namespace)
	default:
		s, err := localstore.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, s.Close)
		c.Local = s
	}
	c.Log.Info("local store ready", zap.String("driver", cfg.Driver))
	return nil
}

func (c *Container) initBackend(ctx context.Context, opts []option.ClientOption) (productStore, error) {
	cfg := c.Config
	switch cfg.Backend.Driver {
	case config.DriverMemory:
		feed := memory.NewChangeFeed()
		products := memory.NewProductRepository()
		c.Orders = memory.NewOrderRepository(feed)
		c.Products = products
		c.Feed = feed
		return products, nil

	case config.DriverPostgres:
		conn, err := database.NewConnection(ctx, cfg.Backend.PostgresDSN, c.Log)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, conn.Close)
		if err := db.Migrate(ctx, conn.Client); err != nil {
			return nil, err
		}
		products := db.NewProductRepositoryPG(conn.Client)
		c.Orders = db.NewOrderRepositoryPG(conn.Client)
		c.Products = products
		c.Feed = db.NewOrderChangeFeedPG(conn.DSN, c.Log)
		c.ready = conn.Client.PingContext
		return products, nil

	default:
		fs, err := firestoreinfra.NewClient(ctx, cfg.ProjectID, c.Log, opts...)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, fs.Close)
		products := fsout.NewProductRepositoryFS(fs.Client)
		c.Orders = fsout.NewOrderRepositoryFS(fs.Client)
		c.Products = products
		c.Feed = fsout.NewOrderChangeFeedFS(fs.Client, c.Log)
		c.ready = fs.Ping
		return products, nil
	}
}

func (c *Container) initObjects(ctx context.Context, opts []option.ClientOption) error {
	if c.Config.Backend.Driver == config.DriverMemory {
		c.Objects = memory.NewObjectStore(c.Config.Storage.PublicBaseURL)
		return nil
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("di: storage.NewClient: %w", err)
	}
	c.closers = append(c.closers, client.Close)
	c.Objects = gcs.NewObjectStoreGCS(client, c.Config.Storage.PublicBaseURL)
	return nil
}

// initAuth returns the address lookup for tracking emails.
func (c *Container) initAuth(ctx context.Context, opts []option.ClientOption) (mail.EmailLookup, error) {
	cfg := c.Config
	if cfg.Backend.Driver == config.DriverMemory {
		a := memory.NewAuth()
		c.Auth = a
		return a, nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("di: firebase app: %w", err)
	}
	fbClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("di: firebase auth: %w", err)
	}
	toolkit, err := authout.NewIdentityToolkit(ctx, cfg.Auth.WebAPIKey)
	if err != nil {
		return nil, err
	}
	if u := strings.TrimSpace(cfg.Auth.SecureTokenURL); u != "" {
		toolkit.SecureTokenURL = u
	}
	fa := authout.NewFirebaseAuth(toolkit, fbClient, c.Local, c.Log)
	c.Auth = fa
	c.authWatch = fa.Watch

	dir := authout.NewUserDirectory(fbClient)
	c.Roles = dir
	return dir, nil
}

// Handler builds the HTTP surface.
func (c *Container) Handler() http.Handler {
	slipURL := func(ref string) string {
		if strings.Contains(ref, "://") {
			return ref
		}
		return c.Objects.PublicURL(c.Config.Storage.SlipBucket, ref)
	}
	var limiter *middleware.RateLimiter
	if c.Config.HTTP.RatePerSecond > 0 {
		limiter = middleware.NewRateLimiter(c.Config.HTTP.RatePerSecond, c.Config.HTTP.RateBurst)
	}
	return httpin.NewRouter(httpin.Deps{
		Log:            c.Log,
		Sessions:       c.Sessions,
		AllowedOrigins: c.Config.HTTP.AllowedOrigins,
		Limiter:        limiter,

		Session:     handlers.NewSessionHandler(c.Sessions, c.Guard),
		Cart:        handlers.NewCartHandler(c.Cart),
		Product:     handlers.NewProductHandler(c.Catalog, c.Guard),
		Checkout:    handlers.NewCheckoutHandler(c.Checkout, c.Guard, slipURL),
		Order:       handlers.NewOrderHandler(c.Query, c.Tracker, slipURL),
		AdminOrders: handlers.NewAdminOrderHandler(c.Board, c.Workflow, c.Guard, slipURL),

		Ready: func(r *http.Request) error {
			if c.ready == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			return c.ready(ctx)
		},
	})
}

// RunBackground starts the session watcher, the tracking notifier and the
// token refresher. It blocks until ctx is done or one of them fails.
func (c *Container) RunBackground(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	c.goBackground(gctx, g)
	return ignoreCanceled(g.Wait())
}

// Serve runs the background loops and the HTTP server until ctx is done,
// then shuts the server down gracefully.
func (c *Container) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              c.Config.HTTP.Addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	c.goBackground(gctx, g)
	g.Go(func() error {
		c.Log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.Log.Warn("server shutdown error", zap.Error(err))
		}
		return nil
	})
	return ignoreCanceled(g.Wait())
}

func (c *Container) goBackground(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error { return c.Sessions.Run(ctx) })
	g.Go(func() error { return c.Tracker.Run(ctx) })
	if c.authWatch != nil {
		g.Go(func() error { return c.authWatch(ctx) })
	}
}

// Close releases clients in reverse order of creation.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// ---- helpers ----

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
