package gormx

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/core"
)

// Dialect 由具体数据库组件提供
type Dialect struct {
	BuildDSN  func(ds *DataSourceConfig) (string, error)
	Dialector func(dsn string) gorm.Dialector
}

// Component 每个数据源一个 *gorm.DB
type Component struct {
	*core.BaseComponent
	cfg     *Config
	dialect Dialect
	log     logger.Interface

	mu  sync.RWMutex
	dbs map[string]*gorm.DB
}

func NewComponent(name string, cfg *Config, dialect Dialect, deps ...string) *Component {
	return &Component{
		BaseComponent: core.NewBaseComponent(name, deps...),
		cfg:           cfg,
		dialect:       dialect,
		log:           NewLogger(name, cfg),
		dbs:           make(map[string]*gorm.DB),
	}
}

func (c *Component) Start(ctx context.Context) error {
	if c.cfg == nil || len(c.cfg.DataSources) == 0 {
		return fmt.Errorf("%s: no data_sources configured", c.Name())
	}
	for _, name := range sortedKeys(c.cfg.DataSources) {
		db, err := c.open(ctx, name, c.cfg.DataSources[name])
		if err != nil {
			c.closeAll(ctx)
			return err
		}
		c.mu.Lock()
		c.dbs[name] = db
		c.mu.Unlock()
		logging.Infof(ctx, "[%s] datasource %s initialized", c.Name(), name)
	}
	return c.BaseComponent.Start(ctx)
}

func (c *Component) open(ctx context.Context, name string, ds *DataSourceConfig) (*gorm.DB, error) {
	if ds == nil {
		return nil, fmt.Errorf("datasource %s config is nil", name)
	}
	dsn, err := c.dialect.BuildDSN(ds)
	if err != nil {
		return nil, fmt.Errorf("build dsn for %s failed: %w", name, err)
	}
	gdb, err := gorm.Open(c.dialect.Dialector(dsn), &gorm.Config{
		Logger:                 c.log,
		SkipDefaultTransaction: ds.SkipDefaultTransaction,
		PrepareStmt:            ds.PrepareStmt,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s failed: %w", name, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB for %s failed: %w", name, err)
	}
	applyPool(sqlDB, ds)

	if ds.PingOnStart {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := sqlDB.PingContext(pingCtx)
		cancel()
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("ping %s failed: %w", name, err)
		}
	}
	if ds.MigrateEnabled {
		if strings.TrimSpace(ds.MigrateDir) == "" {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("datasource %s migrate_enabled=true but migrate_dir empty", name)
		}
		start := time.Now()
		n, err := RunMigrations(ctx, sqlDB, ds.MigrateDir)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("datasource %s migrations failed: %w", name, err)
		}
		logging.Infof(ctx, "[%s] datasource %s applied %d migration files dur=%s", c.Name(), name, n, time.Since(start))
	}
	return gdb, nil
}

func applyPool(sqlDB *sql.DB, ds *DataSourceConfig) {
	maxOpen, maxIdle, life := 50, 10, 60*time.Minute
	if ds.MaxOpenConns > 0 {
		maxOpen = ds.MaxOpenConns
	}
	if ds.MaxIdleConns > 0 {
		maxIdle = ds.MaxIdleConns
	}
	if ds.ConnMaxLife > 0 {
		life = ds.ConnMaxLife
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(life)
	if ds.ConnMaxIdle > 0 {
		sqlDB.SetConnMaxIdleTime(ds.ConnMaxIdle)
	}
}

func (c *Component) Stop(ctx context.Context) error {
	c.closeAll(ctx)
	return c.BaseComponent.Stop(ctx)
}

func (c *Component) closeAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, gdb := range c.dbs {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
		logging.Infof(ctx, "[%s] datasource %s closed", c.Name(), name)
	}
	c.dbs = make(map[string]*gorm.DB)
}

func (c *Component) HealthCheck() error {
	if err := c.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, gdb := range c.dbs {
		sqlDB, err := gdb.DB()
		if err != nil {
			return fmt.Errorf("datasource %s get sql.DB failed: %w", name, err)
		}
		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("datasource %s ping failed: %w", name, err)
		}
	}
	return nil
}

func (c *Component) GetDB(name string) (*gorm.DB, error) {
	c.mu.RLock()
	db, ok := c.dbs[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s datasource %s not found", c.Name(), name)
	}
	return db, nil
}

// RunMigrations 返回执行的文件数; 语句按 ';' 切分, 所以脚本里不要写存储过程
func RunMigrations(ctx context.Context, db *sql.DB, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", f, err)
		}
		for _, stmt := range strings.Split(string(b), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return 0, fmt.Errorf("exec %s failed: %w", filepath.Base(f), err)
			}
		}
	}
	return len(files), nil
}

func sortedKeys(m map[string]*DataSourceConfig) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
