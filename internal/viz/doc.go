// Package viz renders simulation output for the terminal and for files.
//
//   - [Canvas]: Braille pixel canvas; [Camera] and [RenderBeads] project a
//     bead configuration onto it
//   - [Plot]: asciigraph line plot of a sampled series
//   - [WritePNG]: go-chart PNG of one or more series
//   - Styles and themes shared by the CLI and the live monitor
//
// # Colours
//
// Bead types are coloured from the current theme's palette in type order,
// wrapping when there are more types than colours.
package viz
