// Package models defines the core domain models for billspace.
//
// # Entities
//
//   - User: a registered account
//   - Space: a shared context that scopes categories, bills and roles
//   - Membership: the (space, user, role) relation
//   - Category: a grouping for bills inside a space
//   - Bill: a possibly recurring expense, optionally split among members
//   - Settlement: a payment between two members that offsets their debts
//
// # Design Principles
//
//  1. **Soft delete**: records are never removed.
//     Their Status flips from active to inactive through Record.Deactivate.
//  2. **IDs over pointers**: relationships are expressed with ID strings
//     (SpaceID, ParentID, CategoryID) instead of pointers.
//  3. **Exact money**: amounts are shopspring decimals so split sums can be
//     compared exactly in the currency's minor unit.
//
// Only the space-based schema is modelled. Categories and bills belong to a
// Space, and access to them flows through Membership roles.
package models
