// Package domain models tropical-cyclone track data in the ATCF
// (Automated Tropical Cyclone Forecasting) interchange conventions.
//
// # Storm Identity
//
// A storm is identified globally by its ATCF ID: a two-letter basin code,
// a two-digit cyclone number and a four-digit year, e.g. "WP012025".
//
//	Basins: AL (Atlantic), EP (East Pacific), CP (Central Pacific),
//	        WP (West Pacific), IO (North Indian), SH (Southern Hemisphere),
//	        plus the North Indian sub-basins BB and AS.
//
// Cyclone numbers at or above the invest threshold (conventionally 70) denote
// provisionally numbered disturbances. They are renumbered once designated, so
// they must never be written to cross-reference tables.
//
// # Records and Track Points
//
// A ForecastRecord is one agency product: a reference time (DTG, YYYYMMDDHH),
// a technique code (OFCL, JTWC, RJTD, EC01, ...) and up to 36 track points.
// Each TrackPoint is offset from the reference time by tau hours; tau 0 is
// the initial fix.
//
// Missing values are nil pointers. Upstream parsers and legacy files still use
// the sentinels -999 and 1.0e100 (the BUFR "missing double"); [FromSentinel]
// converts them on the way in, and the codec never writes them out.
//
// # Time Keys
//
// Records are compared by Julian Day ([ToJulianDay]), never by DTG strings:
// the Julian Day is continuous across month and year boundaries, so the
// duplicate window of one hour (1/24 day) works at 2024123123 vs 2025010100.
//
// Many bulletins carry only day-of-month and hour. [ResolveMonth] assigns the
// month: a day later than today's day belongs to the previous month, since
// bulletins are near-real-time and never come from the future.
//
// # Radius of Maximum Wind
//
// Ensemble products give the storm centre and the location of the maximum
// wind separately. The RMW is their great-circle distance in nautical miles,
// clamped to 70 nm; larger values are data artifacts, not real radii.
package domain
