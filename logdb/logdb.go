// Copyright (c) 2018 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package logdb journals committed receipts into sqlite for filtered queries.
package logdb

import (
	"context"
	"database/sql"
	"encoding/json"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/hooks"
	"github.com/vechain/sbtvote/log"
	"github.com/vechain/sbtvote/thor"
	"github.com/vechain/sbtvote/voting"
)

var logger = log.WithContext("pkg", "logdb")

const insertReceipt = "INSERT INTO receipt(height, time, action, voter, tokenID, attributes, messages) VALUES (?, ?, ?, ?, ?, ?, ?);"

type LogDB struct {
	path          string
	db            *sql.DB
	stmtCache     *stmtCache
	driverVersion string
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	return open(path, db)
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	// every connection would see its own database
	db.SetMaxOpenConns(1)
	return open(":memory:", db)
}

func open(path string, db *sql.DB) (logDB *LogDB, err error) {
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	if _, err := db.Exec(receiptTableSchema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}
	driverVer, _, _ := sqlite3.Version()
	return &LogDB{
		path:          path,
		db:            db,
		stmtCache:     newStmtCache(db),
		driverVersion: driverVer,
	}, nil
}

// Close close the log db.
func (db *LogDB) Close() error {
	db.stmtCache.Clear()
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

// DriverVersion returns the sqlite library version.
func (db *LogDB) DriverVersion() string {
	return db.driverVersion
}

// Record journals a receipt.
func (db *LogDB) Record(r *voting.Receipt) error {
	attrs, err := json.Marshal(r.Attributes)
	if err != nil {
		return err
	}
	msgs, err := json.Marshal(r.Messages)
	if err != nil {
		return err
	}

	var voter, tokenID any
	if s, ok := r.Attributes["voter"]; ok {
		if addr, err := thor.ParseAddress(s); err == nil {
			voter = addr.Bytes()
		}
	}
	if s, ok := r.Attributes["token_id"]; ok {
		tokenID = s
	}

	stmt, err := db.stmtCache.Prepare(insertReceipt)
	if err != nil {
		return err
	}
	if _, err := stmt.Exec(r.Height, r.Time, r.Action, voter, tokenID, string(attrs), string(msgs)); err != nil {
		return err
	}
	metricRecords().AddWithLabel(1, map[string]string{"action": r.Action})
	return nil
}

// Observer returns a commit observer journaling every receipt. Failures are
// logged and reported to onError when set.
func (db *LogDB) Observer(onError func(error)) voting.CommitObserver {
	return func(r *voting.Receipt) {
		if err := db.Record(r); err != nil {
			logger.Warn("failed to journal receipt", "action", r.Action, "height", r.Height, "err", err)
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Filter queries journaled receipts.
func (db *LogDB) Filter(ctx context.Context, filter *Filter) ([]*Entry, error) {
	if filter == nil {
		return db.query(ctx, "SELECT * FROM receipt ORDER BY seq ASC")
	}
	metricsHandleFilter(filter)

	var args []any
	stmt := "SELECT * FROM receipt WHERE 1"
	if filter.Range != nil {
		condition := "height"
		if filter.Range.Unit == Time {
			condition = "time"
		}
		args = append(args, filter.Range.From)
		stmt += " AND " + condition + " >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND " + condition + " <= ? "
		}
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		stmt += " AND action = ? "
	}
	if filter.Voter != nil {
		args = append(args, filter.Voter.Bytes())
		stmt += " AND voter = ? "
	}
	if filter.TokenID != nil {
		args = append(args, *filter.TokenID)
		stmt += " AND tokenID = ? "
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}

	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(ctx, stmt, args...)
}

func (db *LogDB) query(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	stmt, err := db.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			entry   Entry
			voter   []byte
			tokenID sql.NullString
			attrs   string
			msgs    string
		)
		if err := rows.Scan(
			&entry.Seq,
			&entry.Height,
			&entry.Time,
			&entry.Action,
			&voter,
			&tokenID,
			&attrs,
			&msgs,
		); err != nil {
			return nil, err
		}
		if len(voter) > 0 {
			addr := thor.BytesToAddress(voter)
			entry.Voter = &addr
		}
		if tokenID.Valid {
			entry.TokenID = &tokenID.String
		}
		if err := json.Unmarshal([]byte(attrs), &entry.Attributes); err != nil {
			return nil, errors.Wrap(err, "decode attributes")
		}
		entry.Messages = []hooks.Message{}
		if err := json.Unmarshal([]byte(msgs), &entry.Messages); err != nil {
			return nil, errors.Wrap(err, "decode messages")
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
