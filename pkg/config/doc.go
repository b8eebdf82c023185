/*
Package config loads sweep settings from a project file and validates them.

	            +-------------+
	            |  Settings   |
	            +------+------+
	                   |
	            +------+------+
	            | FileConfig  |
	            +------+------+
	                   |
	    +--------------+--------------+
	    |              |              |
	+---+---+      +---+---+      +---+---+
	|  HCL  |      | YAML  |      | JSON  |
	|Parser |      |Parser |      |Parser |
	+-------+      +-------+      +-------+

🎯 Purpose:
- Finds .sweep.hcl, .sweep.yaml, .sweep.yml or .sweep.json in the root
- Parses the file with the parser registered for its extension
- Turns the file into Settings the walker and orchestrator share

🔄 Flow:
1. Discover picks the first default file present
2. Load parses it and rejects unknown keys
3. FileConfig.Settings fills in defaults (dry-run on)
4. The command layer applies flags on top and calls Validate

🔍 Example:

	types = {
		proto = ["*.proto"]
	}
	type     = ["go", "proto"]
	type_not = ["*_test.go"]
	hidden   = false
	jobs     = 4

	path := config.Discover(root)
	if path != "" {
		cfg, err := config.Load(ctx, path)
		if err != nil {
			return err
		}
		settings = cfg.Settings()
	}

Flags always win over the file. List flags are appended to the file's lists.
*/
package config
