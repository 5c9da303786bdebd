// Package deeplink turns took:// URLs into navigation.
//
// # Overview
//
// Links reach the shell from three places: the URL the process was started
// with, links delivered to a running instance, and notification taps that carry
// a link. All three call Router.HandleDeepLink.
//
// # Pipeline
//
//	raw URL ──→ NormalizePath ──→ claim ──→ Parse ──→ Classify ──→ side effect ──→ NavigateReplace
//	                               │
//	                               └─ dropped when another link is in flight
//	                                  or the path was seen before
//
// The normalized path (scheme and query removed) is the dedup key. Two URLs
// that differ only in their query are the same logical link, so only the first
// delivery's save flag is honored.
//
// # Intents
//
//	received/interesting, received-interesting  → Interesting
//	card-notes, card-notes/...                   → Notes
//	card-share/<id>[?save=true]                  → CardShare
//	card-detail/<id>[?type=...]                  → CardDetail
//	anything else                                → Unknown (auth screen)
//
// # Concurrency
//
// The Router holds one mutex for its check-and-claim sections only. The card
// save and navigation run with the mutex released. A delivery that arrives
// while another is in flight is dropped rather than queued, which keeps rapid
// duplicate deliveries from producing a burst of navigations.
//
// Card saves are tracked separately by card ID. A card is claimed before the
// save call and released when the call fails, so a later link of a different
// shape can retry it.
package deeplink
