// Package coordinates owns the ground based cartesian reference frames of the
// array and the transformations between them.
//
// Frames: GroundFrame (x north, y west, z up from the array centre),
// TiltedGroundFrame (z aligned with a pointing direction, used for shower
// core reconstruction) and EastingNorthingFrame (surveying convention).
//
// Angles are radians throughout; use Deg to convert from degrees.
//
// Dependency rule: no table or storage code is allowed in this package.
package coordinates
