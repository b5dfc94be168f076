// Package settlementengine implements the Payout Settlement Engine inside Meridian.
//
// Layering:
// - domain: payout entity, state machine, authorization rules, errors
// - application: settlement service and event workers using explicit ports
// - ports: stable boundaries for persistence/provider/events
// - adapters: concrete HTTP, memory, postgres, and provider implementations
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - Keep this module self-contained under finance-core context.
// - Do not import other context adapters into domain/application.
// - The settlement provider is called at most once per payout version.
package settlementengine
