// Package config loads stockdesk's configuration.
//
// Configuration lives in a single directory. The default is
// ~/.config/stockdesk; commands accept --config-path to point elsewhere.
// The directory holds config.yaml, and the session store keeps session.json
// in its session/ subdirectory unless session.tokenDir says otherwise.
//
// # Configuration Structure
//
//	api:
//	  endpoint: "https://stock.example.com"  # API root (default: http://localhost:8000)
//	  loginPath: "/api/auth/login/"
//	  refreshPath: "/api/auth/refresh/"
//	  registerPath: "/api/auth/register/"
//	  mePath: "/api/auth/me/"
//	  requestTimeout: 60s
//	  refreshTimeout: 30s
//	session:
//	  tokenDir: ""                           # default: <config dir>/session
//	  persist: true
//	  watch: true
//	logging:
//	  level: info                            # debug, info, warn, error
//	  format: text                           # text or json
//	output:
//	  format: table                          # table, json, yaml, go-template=...
//
// Values missing from the file keep their defaults. STOCKDESK_ENDPOINT,
// STOCKDESK_TOKEN_DIR and STOCKDESK_LOG_LEVEL override the file.
//
// # Usage
//
//	cfg, err := config.LoadConfig(config.GetDefaultConfigPathOrPanic())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.API.Endpoint)
package config
