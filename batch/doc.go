// Package batch converts a directory of PDF files.
//
// [Run] turns every *.pdf in the directory into a sibling .html file and
// merges the inputs, in file name order, into Combined.pdf:
//
//	summary, err := batch.Run(ctx, "/data/reports",
//	    batch.WithLogger(logger),
//	    batch.WithTimeout(time.Minute))
//	if err != nil {
//	    log.Fatal(err) // bad directory, or the merged file could not be written
//	}
//	fmt.Println(summary)
//
// Files are converted by a bounded pool of goroutines, each under its own
// timeout. A file that fails to parse or convert is recorded in its
// [Outcome] and left out of the merge; the rest of the batch continues.
// Combined.pdf is never taken as an input and is replaced on each run
// that merges at least one page.
package batch
