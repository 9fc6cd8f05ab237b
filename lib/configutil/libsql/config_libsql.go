package configlibsql

import (
	"database/sql"
	"fmt"

	"canadiantracker/internal/db"

	"github.com/tursodatabase/libsql-client-go/libsql"
)

// Struct is the "database" section of a config file: either a local sqlite
// file or a remote libsql database.
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Struct) OpenDB() (*sql.DB, error) {
	if config.Url == "" {
		if config.File == "" {
			return nil, fmt.Errorf("a path was not specified")
		}
		return db.OpenDB(config.File)
	}

	var opts []libsql.Option
	if config.AuthToken != "" {
		opts = append(opts, libsql.WithAuthToken(config.AuthToken))
	}
	connector, err := libsql.NewConnector(config.Url, opts...)
	if err != nil {
		return nil, fmt.Errorf("open remote db: %w", err)
	}
	remote := sql.OpenDB(connector)
	// the store relies on there being a single connection, see db.OpenDB
	remote.SetMaxOpenConns(1)
	return remote, nil
}

// String is the path or the url of the database, without credentials.
func (config Struct) String() string {
	if config.Url != "" {
		return config.Url
	}
	return config.File
}
