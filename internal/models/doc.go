// Package models defines the core domain models for the FoodHunt split
// service.
//
// # Models
//
//   - MealSplit: a proposed group order that users join to divide cost
//   - SplitRequest: a pending ask from a non-member to join an open split
//   - Conversation / Message: the one-on-one chat rows the split flow owns
//   - User: the slice of the user record this service reads and writes
//
// # Design Principles
//
//  1. **Soft deletion**: splits are never physically removed; closing a
//     split retains its membership for participants' history views
//  2. **Avoid circular references**: relationships use ID strings, never
//     pointers between models
//  3. **IDs and timestamps are store-generated**: the storage layer fills
//     ID and CreatedAt on insert; callers leave them zero
package models
