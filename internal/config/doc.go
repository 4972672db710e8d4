// Package config loads the start command configuration.
//
// Settings come from start.yaml (or start.json / start.toml) in the working
// directory or ./config, then from START_* environment variables, which
// win. Nested keys join with underscores: render.mode is START_RENDER_MODE.
//
// # Configuration File Structure
//
//	server:
//	  address: ":3000"
//	  environment: dev        # dev | prod
//	  shutdown_timeout: 10s
//	logging:
//	  level: info             # debug | info | warn | error
//	render:
//	  mode: stream            # sync | async | stream
//	  ssr: true
//	  islands_router: false
//	  timeout: 0s
//	rpc:
//	  max_body_bytes: 1048576
//	  allowed_redirect_hosts: [auth.example.com]
//	static:
//	  dir: ./dist
//	  assets_prefix: /_build
//	  s3:
//	    bucket: my-site
//	    region: eu-west-1
//	metrics:
//	  enabled: true
//	  path: /metrics
//	tracing:
//	  stdout: false
//	compression:
//	  enabled: true
//
// Config.Watch re-reads the file when it changes so settings such as the
// log level can follow without a restart.
package config
