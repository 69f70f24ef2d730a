package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// constraintHints names the unique indexes that encode business rules so an
// operator reading a log line sees which rule fired.
var constraintHints = map[string]string{
	"ux_transactions_type_reference":      "ledger entry already recorded for this reference",
	"ux_shop_orders_reference":            "payment reference already used by a shop order",
	"ux_agent_store_orders_transaction_id": "payment reference already used by an agent store order",
	"ux_agent_profits_order":              "profit already booked for this store order",
	"ux_deferred_tasks_task_key":          "task already scheduled",
	"ux_top_ups_reference":                "top-up reference already approved",
	"ux_agent_storefronts_store_slug":     "store slug taken",
	"ux_storefront_product":               "product already listed on storefront",
}

// ErrorDump is the log-friendly breakdown of an error chain.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	SQLState   string `json:"sql_state,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Hint       string `json:"hint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Column = pgxErr.ColumnName
		d.Detail = pgxErr.Detail
	case errors.As(err, &pqErr):
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Column = pqErr.Column
		d.Detail = pqErr.Detail
	}
	d.Hint = constraintHints[d.Constraint]
	return d
}
