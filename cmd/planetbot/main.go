package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"planetbot/internal/adapter/config"
	httpadapter "planetbot/internal/adapter/http"
	"planetbot/internal/adapter/logging"
	"planetbot/internal/adapter/maps/yamlfs"
	metricsinmem "planetbot/internal/adapter/metrics/inmemory"
	"planetbot/internal/adapter/notify"
	"planetbot/internal/adapter/notify/ws"
	gormrepo "planetbot/internal/adapter/repo/gorm"
	"planetbot/internal/adapter/repo/memory"
	"planetbot/internal/adapter/staticdata"
	"planetbot/internal/adapter/transport/tcp"
	"planetbot/internal/app/auth"
	"planetbot/internal/app/history"
	"planetbot/internal/app/ports"
	"planetbot/internal/app/session"
	"planetbot/internal/app/status"

	"github.com/cloudwego/hertz/pkg/app/server"
)

type repos struct {
	accounts ports.AccountRepository
	events   ports.EventRepository
	tallies  ports.TallyRepository
	maps     ports.MapCacheRepository
	tx       ports.TxManager
}

func main() {
	configPath := flag.String("config", "planetbot.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := mustBuildRepos(ctx, cfg.Store, lg)
	registerUC := auth.RegisterUseCase{Accounts: r.accounts, TxManager: r.tx, Now: time.Now}
	seedAccounts(ctx, registerUC, cfg.Accounts, lg)

	catalog, err := staticdata.Load(cfg.Data.Dir)
	if err != nil {
		lg.Fatalw("load static data", "dir", cfg.Data.Dir, "error", err)
	}
	maps := yamlfs.New(cfg.Data.MapsDir)
	maps.Cache = r.maps

	hub := ws.NewHub(lg.Named("ws"))
	events := &http.Server{Addr: cfg.HTTP.EventsAddr, Handler: eventsMux(hub)}
	go func() {
		if err := events.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Errorw("events listener stopped", "addr", cfg.HTTP.EventsAddr, "error", err)
		}
	}()

	kpiRecorder := metricsinmem.NewRecorder()
	engine := session.New(sessionConfig(cfg.Game), session.Deps{
		Dialer:   tcp.Dialer{Log: lg.Named("tcp")},
		Auth:     auth.LoginUseCase{Accounts: r.accounts},
		Maps:     maps,
		Catalog:  catalog,
		Events:   r.events,
		Tallies:  r.tallies,
		Notifier: notify.Fanout{hub, notify.Log{L: lg.Named("notify")}},
		Metrics:  kpiRecorder,
		Log:      lg.Named("session"),
		Now:      time.Now,
	})
	go engine.Run(ctx)

	h := httpadapter.Handler{
		Session:    engine,
		RegisterUC: registerUC,
		StatusUC:   status.UseCase{Session: engine, Now: time.Now},
		HistoryUC:  history.UseCase{Events: r.events, Tallies: r.tallies},
		Rules:      cfg.Rules,
		KPI:        kpiRecorder,
	}

	s := server.Default(server.WithHostPorts(cfg.HTTP.Addr))
	s.OnShutdown = append(s.OnShutdown, func(c context.Context) {
		cancel()
		hub.Close()
		_ = events.Shutdown(c)
	})
	h.RegisterRoutes(s)

	lg.Infow("planetbot listening", "addr", cfg.HTTP.Addr, "events_addr", cfg.HTTP.EventsAddr, "game", cfg.Game.Addr)
	s.Spin()
}

// mustBuildRepos uses Postgres when a DSN is configured and keeps state in
// memory otherwise.
func mustBuildRepos(ctx context.Context, cfg config.Store, lg *zap.SugaredLogger) repos {
	if cfg.DSN == "" {
		lg.Infow("no database configured, history is kept in memory")
		store := memory.NewStore()
		return repos{
			accounts: memory.NewAccountRepo(store),
			events:   memory.NewEventRepo(store),
			tallies:  memory.NewTallyRepo(store),
			maps:     memory.NewMapCacheRepo(store),
			tx:       memory.NewTxManager(store),
		}
	}
	db, err := gormrepo.OpenPostgres(cfg.DSN)
	if err != nil {
		lg.Fatalw("open postgres", "error", err)
	}
	if cfg.Migrations != "" {
		if err := gormrepo.ApplyMigrations(ctx, db, cfg.Migrations); err != nil {
			lg.Fatalw("apply migrations", "dir", cfg.Migrations, "error", err)
		}
	}
	return gormRepos(db)
}

func gormRepos(db *gorm.DB) repos {
	return repos{
		accounts: gormrepo.NewAccountRepo(db),
		events:   gormrepo.NewEventRepo(db),
		tallies:  gormrepo.NewTallyRepo(db),
		maps:     gormrepo.NewMapCacheRepo(db),
		tx:       gormrepo.NewTxManager(db),
	}
}

// seedAccounts registers the logins listed in the config file. Accounts
// that already exist are left untouched.
func seedAccounts(ctx context.Context, uc auth.RegisterUseCase, accounts []config.Account, lg *zap.SugaredLogger) {
	for _, a := range accounts {
		_, err := uc.Execute(ctx, auth.RegisterRequest{
			Username:     a.Username,
			Password:     a.Password,
			UserID:       a.UserID,
			HashPassword: a.HashPassword,
		})
		switch {
		case err == nil:
			lg.Infow("account registered", "user", a.Username)
		case errors.Is(err, ports.ErrConflict):
		default:
			lg.Warnw("skip account", "user", a.Username, "error", err)
		}
	}
}

func sessionConfig(g config.Game) session.Config {
	out := session.DefaultConfig()
	if g.Addr != "" {
		out.Addr = g.Addr
	}
	if g.Version != "" {
		out.Version = g.Version
	}
	out.Secret = g.Secret
	out.PositionKey = g.PositionKey
	if g.HeartbeatSeconds > 0 {
		out.Heartbeat = time.Duration(g.HeartbeatSeconds) * time.Second
	}
	return out
}

func eventsMux(hub *ws.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	return mux
}
