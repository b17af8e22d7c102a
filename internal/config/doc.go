// Package config loads scm-web configuration.
//
// Values are layered: built-in defaults, then an optional config file
// (scm.yaml, scm.json or scm.toml in the working directory, or an explicit
// path), then environment variables. Environment keys use the SCM_ prefix
// with dots replaced by underscores:
//
//	SCM_SERVER_ADDRESS=:9090
//	SCM_REGISTRY_TREE_TTL=10m
//	SCM_SNAPSHOT_BACKEND=s3
//
// GITHUB_TOKEN and NEXT_PUBLIC_APP_URL are also honoured for github.token
// and http.app_url.
//
// # Example File
//
//	server:
//	  address: ":8080"
//	registry:
//	  owner: Shadcn-Component-Manager
//	  repo: registry
//	  branch: main
//	  tree_ttl: 5m
//	http:
//	  cache_ttl: 300s
//	  allowed_origins:
//	    - https://scm-registry.vercel.app
//	log:
//	  level: debug
//	  format: json
//
// # Usage
//
//	cfg, err := config.Load(config.LoadOptions{})
//	if err != nil {
//	    return err
//	}
//	fmt.Println("Listening on", cfg.Server.Address)
package config
