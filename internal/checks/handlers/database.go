package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/domain"
)

// connCache keeps one *sql.DB per connection string so repeated checks
// reuse the driver's own pool instead of dialing fresh every interval.
var connCache sync.Map // map[string]*sql.DB

func dbFor(driver, dsn string) (*sql.DB, error) {
	key := driver + "|" + dsn
	if v, ok := connCache.Load(key); ok {
		return v.(*sql.DB), nil
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	actual, loaded := connCache.LoadOrStore(key, db)
	if loaded {
		_ = db.Close()
	}
	return actual.(*sql.DB), nil
}

// NewDatabaseContract returns the database monitor type's handler: opens
// (or reuses) a connection and issues a bare liveness ping, dispatching to
// postgres or mysql by `engine`.
func NewDatabaseContract() checks.HandlerContract {
	return checks.HandlerContract{
		Check: func(ctx context.Context, view domain.View, hb *domain.Heartbeat, _ time.Duration) error {
			engine := view.GetString("engine")
			dsn := view.GetString("connectionString")
			if dsn == "" {
				return fmt.Errorf("monitor has no connectionString configured")
			}

			driver := "postgres"
			if engine == "mysql" {
				driver = "mysql"
			}

			db, err := dbFor(driver, dsn)
			if err != nil {
				return err
			}

			start := time.Now()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping %s: %w", engine, err)
			}
			elapsed := float64(time.Since(start).Milliseconds())

			hb.Status = domain.StatusUp
			hb.Ping = &elapsed
			hb.Msg = "connection alive"
			return nil
		},
	}
}
