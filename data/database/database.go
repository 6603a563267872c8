// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package database owns the postgres connection pool used for the instrument
// master and the market holiday calendar. Transactions handed out by Trx are
// tracked so leaked ones can be reported.
package database

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
)

type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
}

var (
	ErrNoPool = errors.New("database pool has not been configured")
)

var (
	pool             PgxIface
	openTransactions map[string]string
	trxMu            sync.Mutex
)

func SetPool(myPool PgxIface) {
	trxMu.Lock()
	defer trxMu.Unlock()
	openTransactions = make(map[string]string)
	pool = myPool
}

func Connect(ctx context.Context, url string) error {
	myPool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to pool")
		return err
	}
	if err = myPool.Ping(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not ping database server")
		return err
	}
	SetPool(myPool)
	return nil
}

// LogOpenTransactions writes an INFO log for each open transaction
func LogOpenTransactions() {
	trxMu.Lock()
	defer trxMu.Unlock()
	for k, v := range openTransactions {
		log.Info().Str("TrxId", k).Str("Caller", v).Msg("open transaction")
	}
}

// OpenTransactions returns the number of transactions not yet committed or
// rolled back
func OpenTransactions() int {
	trxMu.Lock()
	defer trxMu.Unlock()
	return len(openTransactions)
}

// Trx begins a tracked transaction
func Trx(ctx context.Context) (pgx.Tx, error) {
	if pool == nil {
		return nil, ErrNoPool
	}

	trx, err := pool.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not begin transaction")
		return nil, err
	}

	_, file, lineno, ok := runtime.Caller(1)
	caller := fmt.Sprintf("[%v] %s:%d", ok, file, lineno)
	trxID := uuid.New().String()

	trxMu.Lock()
	openTransactions[trxID] = caller
	trxMu.Unlock()

	return &TrackedTx{id: trxID, tx: trx}, nil
}

func release(id string) {
	trxMu.Lock()
	defer trxMu.Unlock()
	delete(openTransactions, id)
}
