// Package tableloader assembles subarray and telescope event tables from
// an event file.
//
// A Loader joins the trigger tables with whichever simulation, DL1 and
// DL2 datasets its Options request. Results always follow the order of the
// subarray trigger table; telescope rows of one event follow the telescope
// trigger table. Chunked reads slice the subarray trigger first and read
// only the matching rows of every other dataset.
package tableloader
