// Package sql adapts database/sql connections to the dialect.Driver
// contract consumed by generated repository code.
//
// # Opening a driver
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// An existing *sql.DB can be wrapped instead:
//
//	drv := sql.OpenDB(dialect.Postgres, db)
//
// # Transactions
//
// Generated cascade operations run on a single transaction obtained from
// the driver:
//
//	tx, err := drv.Tx(ctx)
//	if err != nil {
//	    return err
//	}
//	// ... Exec / Query on tx ...
//	return tx.Commit()
//
// # Observability
//
// StatsDriver wraps any Driver with query counting, latency accumulation
// and slow-query detection:
//
//	statsDrv := sql.NewStatsDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(),
//	)
package sql
