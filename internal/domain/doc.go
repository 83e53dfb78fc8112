// Package domain models citizen-submitted civic issue reports and the three
// pieces of logic that act on them: hazard classification, the report
// lifecycle, and spatial declustering for map rendering.
//
// # Report workflow
//
// A report is created once with immutable core fields and enters the
// lifecycle at "pending". Status then advances monotonically:
//
//	pending → in-progress → resolved
//
// Only users with the "authority" role may advance a report, and the role
// and state preconditions are enforced inside [Approve] and [Resolve]
// themselves, never delegated to callers. Invalid transitions are silent
// no-ops by design: a stale UI button or a racing second authority session
// must not be able to corrupt state or surface an error.
//
// # Hazard classification
//
// Classification happens exactly once, at submission, from the weather
// snapshot fetched for the report's coordinates:
//
//	rain + {pothole, manhole, water-leak}  →  rainy hazard, priority critical
//	manhole (dry)                          →  priority high
//	anything else                          →  priority medium
//
// Exposed holes and escaping water become materially more dangerous when
// wet; waste and streetlight issues do not. [Classify] is pure and total;
// weather lookup failures are handled upstream by substituting
// [NeutralWeather].
//
// # Declustering
//
// Reports filed at the same street corner share coordinates, so the map
// layer would stack their markers. [DeclusterPositions] assigns each report
// in a co-located group (coordinates equal after rounding to 5 decimals,
// about 1.1 m) a distinct rendering position on rings of 8 around the true
// point. Rendering positions are derived state: computed per render, never
// stored.
//
// # Reputation
//
// User counters and reputation are derived incrementally from lifecycle
// events ([CreditSubmission], [CreditResolution]) and never recomputed from
// the report set. Reputation is monotonically increasing.
package domain
