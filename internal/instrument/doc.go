// Package instrument describes the telescopes of a subarray: optics,
// cameras and ground positions, as stored in the configuration tables of
// an event file.
package instrument
