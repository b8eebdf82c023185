/*
Package status counts what a sweep run did and formats it for people.

	            +-------------+
	            |   Counter   |
	            | (mutex)     |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+------+
	|   Stats   |           | FileInfo  |
	| (totals)  |           | (per file)|
	+-----------+           +-----------+

🎯 Purpose:
- Counts files changed and replacements made
- Keeps one record per changed or failed file
- Formats the end-of-run summary line

🔄 Flow:
1. The orchestrator calls Update once per file with replacements
2. MarkWritten follows a successful write, RecordError follows a failure
3. Stats and Summary are read after the walk ends

⚡ Guarantees:
- FilesChanged is the number of Update calls
- TotalReplacements is the sum of their counts
- Counters never go down and are safe under concurrent workers

🔍 Example:

	counter := status.New(zerolog.Ctx(ctx))
	_ = counter.Update("main.go", 3)
	fmt.Println(counter.Summary(true))
	// 3 replacements in 1 file. This was a dry run: re-run with --go to write the changes
*/
package status
