// Package domain models Pandora spectrometer total-column measurements and
// the chart figures the dashboard draws from them.
//
// # Data Source
//
// Measurements come from Pandora ground spectrometers operated at a handful of
// fixed sites. An upstream service exposes pre-aggregated data over two GET
// endpoints; this repository only consumes them:
//
//	/data?range=3d&location=Mcmillan&chemical=HCHO
//	/compare?locations=Mcmillan&locations=Goddard&chemical=NO2&year=2024
//
// The upstream keeps only "high quality" rows (quality flag 10, not-assured
// high quality). The "all" range is downsampled upstream to 15 minute means.
//
// # Wire Conventions
//
// Time series responses are two index-aligned arrays:
//
//	{"datetime": ["2024-06-01 13:05:00", ...], "vertical_amount": [3.21, ...]}
//
// Timestamps are local EST wall-clock time formatted "YYYY-MM-DD HH:MM:SS".
// They are passed to the chart untouched; [TimeSeries.Points] parses them
// when a typed series is needed (PNG export, validation).
//
// Comparison responses are nested objects keyed by site, then by month
// number as a JSON string:
//
//	{"Mcmillan": {"1": [{"date": "2024-01-05 10:00:00", "vertical_amount": 3.2}], "2": []}}
//
// The upstream reindexes months 1..12, so empty months usually appear as
// empty arrays, but absent months are accepted as well.
//
// # Site Names
//
// Older payloads spell the Beltsville site "BeltsVille". Site parsing is
// case-insensitive, so both spellings resolve to [Beltsville], and requests
// always use the canonical spelling.
//
// # Units
//
// Vertical amounts are total-column densities in micromole/m².
package domain
