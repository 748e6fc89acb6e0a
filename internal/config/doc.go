// Package config provides configuration parsing for routecheck projects.
//
// The configuration is stored in routecheck.json at the project root.
// This package handles loading, saving, and validating configuration.
// Relative paths are resolved against the directory holding the file.
//
// # Configuration File Structure
//
//	{
//	  "routes": "routes.yaml",
//	  "sources": ["./internal/handlers"],
//	  "injected": ["*app.Ctx"],
//	  "textAliases": ["Slug"],
//	  "converters": [
//	    {"name": "year", "type": "int", "regexp": "[0-9]{4}"}
//	  ],
//	  "silenced": {
//	    "admin.*": "E003,W002"
//	  },
//	  "format": "text",
//	  "failOn": "error",
//	  "concurrency": 4,
//	  "serve": {"host": "localhost", "port": 8085},
//	  "metrics": {"namespace": "routecheck"},
//	  "publish": {"bucket": "ci-reports", "prefix": "reports/", "region": "eu-west-1"}
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//
//	fmt.Println("Routes:", cfg.RoutesPath())
package config
