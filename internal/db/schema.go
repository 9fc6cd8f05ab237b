package db

import _ "embed"

//go:embed schema.sql
var Schema string

// SchemaVersion is the token stored in the schema_version table of a database
// whose layout matches Schema. Bump it whenever Schema changes in a way that
// requires a migration.
const SchemaVersion = "2-skus-samples-cents"
