package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// DSN builds the MySQL connection string.
//
// parseTime maps DATE/DATETIME to time.Time and loc=UTC keeps them in UTC.
// clientFoundRows makes RowsAffected count matched rows, so an UPDATE that
// rewrites identical values is not mistaken for a missing row.
func DSN(user, pass, host, port, name string) string {
	c := mysql.NewConfig()
	c.User = user
	c.Passwd = pass
	c.Net = "tcp"
	c.Addr = host + ":" + port
	c.DBName = name
	c.ParseTime = true
	c.Loc = time.UTC
	c.ClientFoundRows = true
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// Open connects to MySQL and waits for it to answer.  The ping is retried
// a few times so the service can start alongside a database container.
func Open(user, pass, host, port, name string, log logrus.FieldLogger) (*sql.DB, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := sql.Open("mysql", DSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	const attempts = 5
	backoff := time.Second
	for i := 1; ; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return db, nil
		}
		if i == attempts {
			_ = db.Close()
			return nil, fmt.Errorf("ping mysql at %s:%s: %w", host, port, err)
		}
		log.WithError(err).WithField("attempt", i).Warn("mysql not ready, retrying")
		time.Sleep(backoff)
		backoff *= 2
	}
}
