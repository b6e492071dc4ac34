// Package integration contains the CRM synchronization bounded context.
// It describes what is exchanged between the order source, the central-bank
// rate feed and the Bitrix24 CRM, and the ports the adapters implement.
//
// Key concepts:
//   - Order: an incoming delivery order, validated before any CRM call
//   - Contact, Deal, ProductRow: CRM records reconciled by natural key
//   - CurrencyRate: a daily rate upserted by currency code
//   - UserField: a custom string field on the CRM deal object
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
