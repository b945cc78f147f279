// Package gigasetelements implements a stateful client for the Gigaset
// Elements security system cloud.
//
// # Architecture
//
// The client is structured into several key packages:
//   - api: session lifecycle and HTTP transport against the vendor cloud
//   - models: raw vendor documents bundled into per-cycle snapshots
//   - state: alarm-mode reconciliation, event cursor and attribute
//     normalization
//   - service: the orchestrating client consumed by callers
//   - scheduler: interval-driven polling loop
//   - exporter: Prometheus metrics over HTTP
//
// Key behaviors
//
//   - Reconciliation:
//     The remote applies arm/disarm requests asynchronously. The client
//     tracks the reported state and the requested target separately and
//     derives arming/disarming/pending presentation states while a
//     transition is in flight.
//
//   - Event delivery:
//     Remote events are consumed through a monotonically advancing
//     watermark, so each relevant event is delivered exactly once per
//     client lifetime.
//
//   - Degradation:
//     Vendor documents may be partially absent; decoding gaps degrade
//     to unknown states and omitted attributes instead of errors, and a
//     failed refresh keeps the previously cached state available.
//
// Example usage
//
//	client := api.New(api.Config{Email: email, Password: password}, logger)
//	svc, _ := service.New(client, time.Local, logger)
//	alarmState, err := svc.Refresh(ctx)
//	detected, attrs := svc.PollSensor("abcd1234")
//
// For more information about specific packages, see their respective
// documentation.
package gigasetelements
