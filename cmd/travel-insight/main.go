package main

import (
	"database/sql"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"travel-insight/api"
	"travel-insight/audit"
	"travel-insight/auth"
	"travel-insight/cache"
	"travel-insight/config"
	"travel-insight/finance"
	"travel-insight/logging"
	"travel-insight/period"
	"travel-insight/report"
	"travel-insight/static"
	"travel-insight/template"
	"travel-insight/utils"
	"travel-insight/worker"
)

var handlers = &api.Handlers{}

func main() {
	loadEverything()
	cfg := handlers.Cfg

	worker.StartWorkers(cfg.Workers, handlers.Engine, cfg.Server.ExportDir, handlers.ReportLog, handlers.Audit)
	worker.StartCleanup(cfg.MaxFileAgeHours, handlers.ReportLog)

	api.RegisterHandlers(handlers)
	static.RegisterStaticHandler(cfg, handlers.AccessLog)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)
	go func() {
		for range sigs {
			log.Println("Reloading configs...")
			loadEverything()
		}
	}()

	log.Printf("Server started listening on %s ...", cfg.Server.Listen)
	log.Fatal(api.StartServer(cfg.Server.Listen))
}

func loadEverything() {
	cfg, err := auth.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed config.yaml: %v", err)
	}
	var users *auth.UsersFile
	if cfg.Auth.UserBackend == "file" {
		users, err = auth.LoadUsers(cfg.Auth.UserFile)
		if err != nil {
			log.Fatalf("Failed %s: %v", cfg.Auth.UserFile, err)
		}
	}
	registry, err := config.LoadReportsConfig(cfg.ReportsFile)
	if err != nil {
		log.Fatalf("Failed %s: %v", cfg.ReportsFile, err)
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		store = cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	case "none":
		store = nil
	default:
		store = cache.NewMemoryStore()
	}
	ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute

	os.MkdirAll(cfg.Server.LogDir, 0755)
	accessLog := logging.NewOrDie(cfg.Server.LogDir, "access.log", cfg.Server.LogLevel)
	loginLog := logging.NewOrDie(cfg.Server.LogDir, "login.log", cfg.Server.LogLevel)
	reportLog := logging.NewOrDie(cfg.Server.LogDir, "report.log", cfg.Server.LogLevel)
	recorder := audit.NewRecorderOrDie(cfg.Server.LogDir, "audit.log")

	exec := &report.SQLExecutor{DB: db, Driver: cfg.Database.Driver}
	engine := report.NewEngine(registry, exec, store, ttl, recorder, reportLog)

	templates, err := template.NewStore(filepath.Join(utils.GetProjectRoot(), cfg.TemplatesFile), recorder)
	if err != nil {
		log.Fatalf("Failed %s: %v", cfg.TemplatesFile, err)
	}

	handlers.Cfg = cfg
	handlers.Users = users
	handlers.Registry = registry
	handlers.Engine = engine
	handlers.Periods = period.NewGenerator(registry, engine, recorder)
	handlers.Finance = finance.NewService(engine, recorder)
	handlers.Store = store
	handlers.Templates = templates
	handlers.Audit = recorder
	handlers.AccessLog = accessLog
	handlers.LoginLog = loginLog
	handlers.ReportLog = reportLog
}
