// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the persistent key-value store that holds session
// artifacts for cashdesk.
//
// The store owns a small fixed set of keys (userData, userName,
// sessionCookie, userToken). Operations take a context, may fail, and are
// idempotent: deleting an absent key is not an error. There is no
// transaction across keys; a partially cleared session is overwritten by the
// next login.
//
// # Key Types
//
//   - Store: the key-value contract
//   - SQLiteStore: durable backend (modernc.org/sqlite)
//   - MemoryStore: in-process backend for tests and ephemeral runs
//   - SealedStore: encrypts values at rest around any Store
//   - SessionRecord: the authenticated user as persisted at login
//
// # Usage
//
//	st, err := store.OpenSQLite(path)
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	if err := store.SaveRecord(ctx, st, rec); err != nil {
//		return err
//	}
//
//	// On logout: best-effort, every key is attempted.
//	if err := store.ClearSession(ctx, st); err != nil {
//		log.Warn().Err(err).Msg("SESSION_CLEAR_PARTIAL")
//	}
package store
