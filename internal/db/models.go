package db

import (
	"database/sql"
)

type Product struct {
	ID            int64
	Code          string
	Name          string
	IsInClearance sql.NullBool
	LastListed    sql.NullInt64
	Url           sql.NullString
}

type Sku struct {
	ID            int64
	Code          string
	FormattedCode sql.NullString
	ProductID     int64
}

type Sample struct {
	ID         int64
	SampleTime int64
	SkuID      int64
	PriceCents int64
	InPromo    bool
	RawPayload sql.NullString
}
