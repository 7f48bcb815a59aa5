// Package climate turns parsed voice intents into validated climate
// device commands and spoken replies.
//
// A request flows through five stages:
//
//	received -> resolving -> validating -> dispatching -> responded
//
// Resolver ranks devices for the target phrase in three tiers (exact name,
// exact alias, fuzzy). Disambiguate picks a single device or reports
// NotFound/Ambiguous. Validate checks the action against the device's
// capability descriptor, snapping temperatures onto the step grid and
// rejecting anything out of range. CommandBuilder stamps the command, a
// Dispatcher delivers it, and Renderer produces the reply from
// text/template files embedded under templates/.
//
// Group phrases ("all radiators", "everything") skip disambiguation. Each
// device is validated separately and the valid commands are dispatched
// concurrently, bounded by Config.MaxConcurrent, each with its own
// deadline. One aggregate reply reports the successes and per-device
// failures. Nothing is rolled back or retried.
//
// Failures the user can act on are replies, not errors. Handle only
// returns an error when the registry is unavailable.
package climate
