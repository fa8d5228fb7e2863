// Package models defines the core domain models for ClearDues.
//
// # Models
//
//   - User: registered account, optionally carrying a UPI handle for payments
//   - Group: a set of members who share expenses, joinable by invite code
//   - Expense: a shared cost paid by one member and split across members
//   - Split: one member's share of an expense
//   - Settlement: a payment between two members, with its own lifecycle
//
// # Design Principles
//
//  1. **Plain values**: models are plain structs with no storage coupling;
//     validation happens in constructors, not at write time
//  2. **Avoid circular references**: relationships use ID strings, never
//     pointers to other models
//  3. **Derived state stays out**: balances are recomputed on demand from
//     expense and settlement history, never stored on a model
//
// Monetary amounts are float64 rounded to two decimal places, with 0.01
// treated as the tolerance below which differences are rounding noise.
// This matches the observable behavior of every computation downstream.
package models
