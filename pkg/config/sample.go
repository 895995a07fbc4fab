package config

const sample = `# pyrate configuration
#
# Every key is optional; omitted keys keep their defaults. Any value can be
# overridden with PYRATE_<SECTION>__<KEY>, for example
# PYRATE_SCANNER__MAX_CONCURRENT_REQUESTS=5. Durations accept Go syntax
# ("1.5s", "250ms") or a number of seconds.

scanner:
  # Plugins running at the same time (1-100).
  max_concurrent_requests: 10
  # Per-request timeout, at most 300s.
  request_timeout: 30s
  # Retries for connection resets, DNS timeouts and 5xx responses (0-10).
  retry_attempts: 3
  retry_backoff_max: 10s
  # Spacing between requests issued from one slot (0-5s).
  delay_between_requests: 100ms
  # Budget for a single plugin run.
  plugin_timeout: 60s
  # Stop admitting plugins after this long; 0 disables the deadline.
  hard_deadline: 0s
  user_agent: "Mozilla/5.0 (compatible; pyrate/1.4; +https://github.com/pyrate-scanner/pyrate)"
  follow_redirects: true
  verify_ssl: true
  # Loopback, private and link-local targets are refused unless enabled.
  allow_private_targets: false
  # http://, https://, socks5:// or socks5h:// proxy. Empty uses HTTP(S)_PROXY.
  proxy: ""

plugins:
  # Omit to run every plugin; an empty list runs none.
  # enabled_plugins: [security_headers, csrf, directory_traversal]
  disabled_plugins: []
  # Directories scanned for .tengo and .so plugins, in order.
  plugin_directories:
    - ./plugins

reports:
  # json, html, txt, xml or pdf.
  default_format: json
  output_directory: reports
  include_request_response: false
  include_payloads: true
  max_response_size: 10485760
  # Findings at or above this severity make the scan exit 1.
  fail_severity: medium

logging:
  # debug, info, warn or error.
  level: info
  # text or json.
  format: text
  # Log to this file instead of stderr.
  file_path: ""

telemetry:
  # Serve Prometheus metrics on this port while scanning; 0 disables.
  metrics_port: 0
  # Export traces to this OTLP/gRPC collector, e.g. localhost:4317.
  otlp_endpoint: ""
  otlp_insecure: false
  # POST scan events as JSON to this URL.
  webhook_url: ""
  # Skip webhook finding events below this severity; empty sends all.
  webhook_min_severity: ""
  # Send only finding and scan_complete events to the webhook and --events.
  findings_only: false
`
