/*
Package operation runs a query over a directory tree.

	+------------------+
	| DirectoryPatcher |
	|  (orchestrator)  |
	+--------+---------+
	         |
	+--------+---------+
	| OperationRunner  |
	| (sync or pool)   |
	+--------+---------+
	         |
	+--------+---------+
	|   FilePatcher    |
	| (match + write)  |
	+------------------+

🎯 Purpose:
- Walks the eligible files under a root
- Builds a patch for each file and previews it
- Writes the patch back unless the run is a dry run
- Counts files and replacements for the summary

🔄 Flow, per file:
1. patch.Build reads the file; binary files and files without matches are skipped
2. the counter is updated once with the number of replacements
3. the patch is previewed through the console logger
4. with dry-run off, the patch is written atomically

⚡ Error policy:
- an unreadable directory entry is logged as a warning, counted and skipped
- a file that cannot be read or written stops the run
- the first error wins when workers run in parallel

🔍 Example:

	dp, err := operation.New(operation.Options{Root: ".", Settings: settings})
	if err != nil {
		return err
	}
	stats, err := dp.Run(ctx, q)
*/
package operation
