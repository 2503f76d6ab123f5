// Package models defines the core domain records for splitledger.
//
// # Models
//
//   - Relationship: a two-party pairing carrying one running signed balance
//   - Entry: a two-party expense or settlement contributing to that balance
//   - Group, GroupMember: n-party containers; the membership id (not the raw
//     user id) is the unit of group ledger identity
//   - GroupBalanceEdge: one signed balance per unordered membership pair
//   - GroupEntry, GroupSettlement: group-scoped ledger facts
//
// # Design principles
//
//  1. **Exact money**: every amount is money.Cents (integer minor units),
//     never a float.
//  2. **Single writer**: balance fields are only ever written by the ledger
//     engine (internal/ledger); no other code path mutates them.
//  3. **Soft deletion**: ledger facts are never physically removed while a
//     balance references their history; DeletedAt marks them dead.
//  4. **Avoid circular references**: relationships are expressed with ID
//     strings, not pointers.
package models
