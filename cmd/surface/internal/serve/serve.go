// Package serve runs the demo host and the devtools service over HTTP and
// persistent TCP JSON-RPC connections.
package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"

	"github.com/broady/surface"
	"github.com/broady/surface/cmd/surface/internal/gen"
	"github.com/broady/surface/devtools"
	"github.com/broady/surface/internal/accounts"
	"github.com/broady/surface/internal/config"
	"github.com/broady/surface/middleware"
	"github.com/broady/surface/surfacegen"
)

const shutdownTimeout = 10 * time.Second

type Cmd struct {
	Config string `help:"Path to the YAML config file." short:"c" type:"path"`

	Version string `kong:"-"`
}

func (c *Cmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	logger := NewLogger(cfg, os.Stderr)

	srv, err := New(cfg, c.Version, logger)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		srv.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx)
}

// NewLogger builds the process logger from the log config.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Server owns the app, the account manager and the listeners.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	app     *surface.App
	manager *accounts.Manager
	meters  *sdkmetric.MeterProvider

	httpLn net.Listener
	rpcLn  net.Listener
}

// New opens the account store, mounts the demo host and devtools, and
// writes the client document if the config asks for one.
func New(cfg *config.Config, version string, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	manager := accounts.New(store,
		accounts.WithLogger(logger),
		accounts.WithCredentials(accounts.DefaultCredentials(store, logger)))

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		manager: manager,
		meters:  sdkmetric.NewMeterProvider(),
	}
	if err := s.buildApp(version); err != nil {
		s.Close()
		return nil, err
	}
	if cfg.Client.OutDir != "" {
		if err := s.writeClient(); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func openStore(cfg config.StoreConfig) (accounts.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return accounts.OpenSQLite(cfg.DSN)
	default:
		return accounts.NewMemoryStore(), nil
	}
}

func (s *Server) buildApp(version string) error {
	enc, err := surface.ParseParamEncoding(s.cfg.Dispatch.ParamEncoding)
	if err != nil {
		return err
	}
	metrics, err := middleware.MetricsInterceptor(s.meters.Meter("github.com/broady/surface"))
	if err != nil {
		return err
	}

	app := surface.NewApp().
		WithLogger(s.logger).
		WithParamEncoding(enc).
		WithUnaryInterceptor(middleware.LoggingInterceptor(s.logger)).
		WithUnaryInterceptor(metrics)
	if s.cfg.Dispatch.ParamSchemas {
		app = app.WithParamSchemas()
	}
	if s.cfg.Dispatch.MaskInternalErrors {
		app = app.WithMaskInternalErrors()
	}
	if s.cfg.HTTP.MaxBodyBytes > 0 {
		app = app.WithMaxRequestBodySize(s.cfg.HTTP.MaxBodyBytes)
	}
	if s.cfg.HTTP.CORS {
		app = app.WithMiddleware(middleware.CORS(middleware.DefaultCORSConfig()))
	}

	table, err := surface.Bind(s.manager, accounts.Decls())
	if err != nil {
		return fmt.Errorf("bind accounts: %w", err)
	}
	app.Mount(table)
	if err := devtools.New(app, version).Register(); err != nil {
		return fmt.Errorf("bind devtools: %w", err)
	}
	s.app = app
	return nil
}

func (s *Server) writeClient() error {
	c := s.cfg.Client
	g := surfacegen.FromHost(s.manager, accounts.Decls()).
		WithClientConfig(gen.ClientConfig(c.ClassName, c.Positional, c.StubCase(), false)).
		WithLogger(s.logger)
	if c.Schemas {
		g = g.WithSchemas()
	}
	result, err := g.ToDir(c.OutDir)
	if err != nil {
		return fmt.Errorf("generate client: %w", err)
	}
	s.logger.Info("client generated",
		slog.String("dir", c.OutDir),
		slog.Any("files", result.Files))
	return nil
}

// App returns the configured app.
func (s *Server) App() *surface.App { return s.app }

// Listen binds the configured listeners. An empty address disables its
// transport.
func (s *Server) Listen() error {
	if addr := s.cfg.HTTP.Addr; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
		s.httpLn = ln
	}
	if addr := s.cfg.RPC.Addr; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			if s.httpLn != nil {
				s.httpLn.Close()
			}
			return fmt.Errorf("listen rpc: %w", err)
		}
		s.rpcLn = ln
	}
	if s.httpLn == nil && s.rpcLn == nil {
		return errors.New("no transport configured: set http.addr or rpc.addr")
	}
	return nil
}

// HTTPAddr returns the bound HTTP address, or nil.
func (s *Server) HTTPAddr() net.Addr { return addrOf(s.httpLn) }

// RPCAddr returns the bound JSON-RPC address, or nil.
func (s *Server) RPCAddr() net.Addr { return addrOf(s.rpcLn) }

func addrOf(ln net.Listener) net.Addr {
	if ln == nil {
		return nil
	}
	return ln.Addr()
}

// Serve serves until ctx is done, then shuts down gracefully and closes
// the server.
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()

	var httpSrv *http.Server
	g, gctx := errgroup.WithContext(ctx)
	if s.httpLn != nil {
		httpSrv = &http.Server{
			Handler:           s.app.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		s.logger.Info("serving http", slog.String("addr", s.httpLn.Addr().String()))
		g.Go(func() error {
			if err := httpSrv.Serve(s.httpLn); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	if s.rpcLn != nil {
		s.logger.Info("serving json-rpc", slog.String("addr", s.rpcLn.Addr().String()))
		g.Go(func() error {
			return s.app.ServeListener(context.WithoutCancel(gctx), s.rpcLn)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if httpSrv != nil {
			errs = append(errs, httpSrv.Shutdown(shutdownCtx))
		}
		errs = append(errs, s.app.Shutdown(shutdownCtx))
		return errors.Join(errs...)
	})
	return g.Wait()
}

// Close releases the store and the meter provider.
func (s *Server) Close() error {
	return errors.Join(
		s.meters.Shutdown(context.Background()),
		s.manager.Close(),
	)
}
